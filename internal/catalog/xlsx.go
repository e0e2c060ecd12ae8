package catalog

import (
	"fmt"
	"io"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/pkg/errors"
	"github.com/talkincode/shopsync/internal/domain"
)

const xlsxSheet = "Sheet1"

// WriteXLSX writes products as a single sheet workbook with CSVHeaders as first row.
func WriteXLSX(w io.Writer, products []domain.Product) error {
	f := excelize.NewFile()
	for col, name := range CSVHeaders {
		f.SetCellValue(xlsxSheet, cellName(col, 1), name)
	}
	for i, p := range products {
		row := i + 2
		values := []interface{}{
			p.ID, p.Name, p.Price, p.Unit, p.Category, p.Sku, p.Description, p.Slug, p.Image, JoinImages(p.Images),
		}
		for col, v := range values {
			f.SetCellValue(xlsxSheet, cellName(col, row), v)
		}
	}
	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write xlsx")
	}
	return nil
}

// cellName maps a zero based column and one based row to an A1 reference.
func cellName(col, row int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return fmt.Sprintf("%s%d", name, row)
}
