package history

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Results"

var exportHeaders = []string{
	"ID", "Processed At", "File Name", "Document Type", "Confidence",
	"Vendor", "GSTIN", "Product", "Serial Number", "Purchase Date", "Warranty Expiry",
	"Subtotal", "Tax", "Total", "Currency", "Engine",
}

// ExportXLSX renders every stored result, newest first, as a single-sheet workbook
func (s *Service) ExportXLSX() ([]byte, error) {
	records, err := s.listRecords()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	headers := make([]any, len(exportHeaders))
	for i, h := range exportHeaders {
		headers[i] = h
	}
	if err := writeRow(f, exportSheet, 1, headers); err != nil {
		return nil, err
	}

	for r, record := range records {
		result := record.Result
		fields := result.ExtractedFields
		values := []any{
			result.ID,
			result.Metadata.ProcessedAt.UTC().Format(time.RFC3339),
			result.Metadata.FileName,
			result.DocumentType,
			result.Confidence,
			cellString(fields.Vendor.Name),
			cellString(fields.Vendor.GSTIN),
			cellString(fields.Product.Name),
			cellString(fields.Product.SerialNumber),
			cellString(fields.Dates.PurchaseDate),
			cellString(fields.Dates.WarrantyExpiry),
			cellNumber(fields.Amount.Subtotal),
			cellNumber(fields.Amount.Tax),
			cellNumber(fields.Amount.Total),
			fields.Amount.Currency,
			result.Metadata.Engine,
		}
		if err := writeRow(f, exportSheet, r+2, values); err != nil {
			return nil, err
		}
	}

	for _, w := range []struct {
		from, to string
		width    float64
	}{
		{"A", "A", 38}, // id
		{"B", "C", 22},
		{"F", "H", 28},
	} {
		if err := f.SetColWidth(exportSheet, w.from, w.to, w.width); err != nil {
			return nil, fmt.Errorf("setting column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeRow fills one spreadsheet row starting at column A
func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for c, v := range values {
		cell, err := excelize.CoordinatesToCellName(c+1, row)
		if err != nil {
			return fmt.Errorf("addressing cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("writing cell %s: %w", cell, err)
		}
	}
	return nil
}

// cellString leaves missing values blank
func cellString(s *string) any {
	if s == nil {
		return ""
	}
	return *s
}

func cellNumber(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}
