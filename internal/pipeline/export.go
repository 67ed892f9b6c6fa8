package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"invoicemerge/internal"
)

var baseHeaders = []string{
	"Status", "Submission Date", "Issuance Date", "Internal ID", "Issuer", "Recipients",
	"Code Name", "Item Code", "Description", "Quantity / Unit Type",
	"Unit Price (EGP)", "Total Sales Amount (EGP)", "Source File",
}

var extraHeaderLabels = map[string]string{
	"TotalSaleAmount":      "Total Sale Amount (EGP)",
	"TotalSales":           "Total Sales",
	"TotalDiscount":        "Total Discount",
	"TotalItemDiscount":    "Total Items Discount",
	"ValueAddedTax":        "Value Added Tax",
	"ExtraInvoiceDiscount": "Extra Invoice Discount",
	"TotalAmount":          "Total Amount",
}

// ExportMergedToXLSX writes one worksheet row per merged record. Extra columns
// follow the line-item columns; rows without attached extras get the field's
// default value.
func ExportMergedToXLSX(records []internal.MergedRecord, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	extras := ExtraFieldNames()
	headers := make([]string, 0, len(baseHeaders)+len(extras))
	headers = append(headers, baseHeaders...)
	for _, name := range extras {
		headers = append(headers, extraHeaderLabel(name))
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, rec := range records {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, rec.Status)
		set(2, rec.SubmissionDate)
		set(3, rec.IssuanceDate)
		set(4, rec.InternalID)
		set(5, rec.Issuer)
		set(6, rec.Recipients)
		set(7, rec.CodeName)
		set(8, rec.ItemCode)
		set(9, rec.Description)
		set(10, rec.QuantityUnitType)
		set(11, rec.UnitPrice)
		set(12, rec.TotalSalesAmount)
		set(13, rec.SourceDocumentID)

		for j, name := range extras {
			value := ExtraFieldDefault(name)
			if rec.Extras != nil {
				if v, ok := rec.Extras[name]; ok {
					value = v
				}
			}
			set(len(baseHeaders)+j+1, value)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func extraHeaderLabel(name string) string {
	if label, ok := extraHeaderLabels[name]; ok {
		return label
	}
	return name
}
