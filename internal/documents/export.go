package documents

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{"Title", "Status", "Created", "Updated"}

// ExportDocuments builds an XLSX listing of the given documents.
func ExportDocuments(docs []Document) (*excelize.File, error) {
	file := excelize.NewFile()
	sheet := "Documents"
	file.SetSheetName("Sheet1", sheet)

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, err
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
		_ = file.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for row, doc := range docs {
		values := []interface{}{
			doc.Title,
			string(doc.Status),
			doc.CreatedAt.Format("2006-01-02 15:04"),
			doc.UpdatedAt.Format("2006-01-02 15:04"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row+2, err)
			}
		}
	}

	_ = file.AutoFilter(sheet, "A1:D1", nil)
	return file, nil
}
