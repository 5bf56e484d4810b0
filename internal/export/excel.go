package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"greenchain/credit-engine/internal/certificate"
)

// ExcelOptions configures the registry export workbook.
type ExcelOptions struct {
	SheetName    string `json:"sheet_name"`
	FreezeHeader bool   `json:"freeze_header"`
	AutoFilter   bool   `json:"auto_filter"`
}

// DefaultExcelOptions returns the standard registry export settings.
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		SheetName:    "Certificates",
		FreezeHeader: true,
		AutoFilter:   true,
	}
}

var registryColumns = []struct {
	header string
	width  float64
}{
	{"Certificate ID", 38},
	{"Farmer", 18},
	{"Issued (UTC)", 20},
	{"Score", 9},
	{"Grade", 7},
	{"Tier", 11},
	{"Approved", 10},
	{"Approved Amount", 16},
	{"Interest Rate", 13},
	{"Fingerprint", 70},
}

// ExcelExporter writes the certificate registry to a workbook.
type ExcelExporter struct {
	options ExcelOptions
}

// NewExcelExporter creates an exporter.
func NewExcelExporter(options ExcelOptions) *ExcelExporter {
	if options.SheetName == "" {
		options.SheetName = DefaultExcelOptions().SheetName
	}
	return &ExcelExporter{options: options}
}

// Export writes the certificates to w as an XLSX workbook, newest first as
// provided by the repository.
func (e *ExcelExporter) Export(certs []*certificate.Certificate, w io.Writer) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := e.options.SheetName
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2E7D32"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, col := range registryColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := file.SetCellValue(sheet, cell, col.header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		if err := file.SetColWidth(sheet, name, name, col.width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	lastCol, err := excelize.ColumnNumberToName(len(registryColumns))
	if err != nil {
		return fmt.Errorf("last column: %w", err)
	}
	if err := file.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, cert := range certs {
		row := i + 2
		values := []interface{}{
			cert.ID.String(),
			cert.FarmerID,
			cert.IssuedAt.UTC().Format(time.RFC3339),
			cert.Score.Overall,
			cert.Score.Grade,
			string(cert.Decision.Tier),
			cert.Decision.Approved,
			cert.Decision.ApprovedAmount,
			cert.Decision.InterestRate,
			cert.Fingerprint,
		}
		for j, value := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, row)
			if err != nil {
				return fmt.Errorf("data cell: %w", err)
			}
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	if e.options.FreezeHeader {
		if err := file.SetPanes(sheet, &excelize.Panes{
			Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
		}); err != nil {
			return fmt.Errorf("freeze header: %w", err)
		}
	}
	if e.options.AutoFilter && len(certs) > 0 {
		ref := fmt.Sprintf("A1:%s%d", lastCol, len(certs)+1)
		if err := file.AutoFilter(sheet, ref, nil); err != nil {
			return fmt.Errorf("auto filter: %w", err)
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
