package pdf

import (
	"bytes"
	"errors"
)

var (
	// ErrNotPDF indicates the uploaded bytes are not a PDF file
	ErrNotPDF = errors.New("file is not a PDF")
	// ErrEncrypted indicates the PDF carries an encryption dictionary
	ErrEncrypted = errors.New("PDF is encrypted")
)

// trailerScanWindow bounds how far back from EOF the trailer is searched.
const trailerScanWindow = 4096

// Inspect validates an uploaded document. Encrypted PDFs declare an /Encrypt
// entry in the trailer dictionary, so only the tail of the file is scanned to
// avoid false positives from page content streams.
func Inspect(data []byte) error {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return ErrNotPDF
	}

	tail := data
	if len(tail) > trailerScanWindow {
		tail = tail[len(tail)-trailerScanWindow:]
	}
	if bytes.Contains(tail, []byte("/Encrypt")) {
		return ErrEncrypted
	}
	return nil
}
