package pdf

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateEntry describes one recipient on the signing certificate.
type CertificateEntry struct {
	Name     string
	Email    string
	Role     string
	SignedAt time.Time
}

// Generator produces signing-certificate pages for completed documents.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateCertificate renders the signing certificate appended alongside a
// completed document: title, completion time, and one row per recipient.
func (g *Generator) GenerateCertificate(title string, completedAt time.Time, entries []CertificateEntry) (io.Reader, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.Cell(0, 12, "Signing Certificate")
	doc.Ln(14)

	doc.SetFont("Helvetica", "", 11)
	doc.Cell(0, 8, fmt.Sprintf("Document: %s", title))
	doc.Ln(8)
	doc.Cell(0, 8, fmt.Sprintf("Completed: %s", completedAt.UTC().Format(time.RFC1123)))
	doc.Ln(12)

	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(50, 8, "Name", "1", 0, "L", false, 0, "")
	doc.CellFormat(70, 8, "Email", "1", 0, "L", false, 0, "")
	doc.CellFormat(30, 8, "Role", "1", 0, "L", false, 0, "")
	doc.CellFormat(40, 8, "Signed at", "1", 1, "L", false, 0, "")

	doc.SetFont("Helvetica", "", 10)
	for _, entry := range entries {
		doc.CellFormat(50, 8, entry.Name, "1", 0, "L", false, 0, "")
		doc.CellFormat(70, 8, entry.Email, "1", 0, "L", false, 0, "")
		doc.CellFormat(30, 8, entry.Role, "1", 0, "L", false, 0, "")
		doc.CellFormat(40, 8, entry.SignedAt.UTC().Format("2006-01-02 15:04"), "1", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render certificate: %w", err)
	}
	return &buf, nil
}
