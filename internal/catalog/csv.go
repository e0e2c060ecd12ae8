package catalog

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/talkincode/shopsync/internal/domain"
)

// CSVHeaders is the column order of exported catalogs.
var CSVHeaders = []string{"id", "name", "price", "unit", "category", "sku", "description", "slug", "image", "images"}

// csvRow keeps every cell as text so that normalization decides what is valid.
type csvRow struct {
	ID          string `csv:"id"`
	Name        string `csv:"name"`
	Price       string `csv:"price"`
	Unit        string `csv:"unit"`
	Category    string `csv:"category"`
	Sku         string `csv:"sku"`
	Description string `csv:"description"`
	Slug        string `csv:"slug"`
	Image       string `csv:"image"`
	Images      string `csv:"images"`
}

// rowReader feeds gocsv: it trims header cells and skips blank records.
type rowReader struct {
	r          *csv.Reader
	headerSeen bool
}

func newRowReader(in io.Reader) *rowReader {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return &rowReader{r: r}
}

func (rr *rowReader) Read() ([]string, error) {
	for {
		record, err := rr.r.Read()
		if err != nil {
			return nil, err
		}
		if isBlankRecord(record) {
			continue
		}
		if !rr.headerSeen {
			rr.headerSeen = true
			for i := range record {
				record[i] = strings.TrimSpace(record[i])
			}
		}
		return record, nil
	}
}

func (rr *rowReader) ReadAll() ([][]string, error) {
	var records [][]string
	for {
		record, err := rr.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ParseCSV reads catalog rows into loosely typed records ready for NormalizeList.
// Quoted cells may contain commas, quotes and newlines. An empty document yields no
// records.
func ParseCSV(in io.Reader) ([]interface{}, error) {
	var rows []csvRow
	if err := gocsv.UnmarshalCSV(newRowReader(in), &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []interface{}{}, nil
		}
		return nil, errors.Wrap(err, "parse csv")
	}
	out := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRaw())
	}
	return out, nil
}

// ParseCSVString is ParseCSV over a string body.
func ParseCSVString(text string) ([]interface{}, error) {
	return ParseCSV(strings.NewReader(text))
}

func (row csvRow) toRaw() map[string]interface{} {
	raw := map[string]interface{}{
		"name":        row.Name,
		"unit":        row.Unit,
		"category":    row.Category,
		"sku":         row.Sku,
		"description": row.Description,
		"slug":        row.Slug,
		"image":       row.Image,
		"images":      SplitImages(row.Images),
	}
	if strings.TrimSpace(row.ID) != "" {
		raw["id"] = strings.TrimSpace(row.ID)
	}
	if strings.TrimSpace(row.Price) != "" {
		raw["price"] = strings.TrimSpace(row.Price)
	}
	return raw
}

// WriteCSV writes products with CSVHeaders and CRLF line endings.
func WriteCSV(w io.Writer, products []domain.Product) error {
	rows := make([]*csvRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, &csvRow{
			ID:          cast.ToString(p.ID),
			Name:        p.Name,
			Price:       cast.ToString(p.Price),
			Unit:        p.Unit,
			Category:    p.Category,
			Sku:         p.Sku,
			Description: p.Description,
			Slug:        p.Slug,
			Image:       p.Image,
			Images:      JoinImages(p.Images),
		})
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return errors.Wrap(err, "write csv")
	}
	return nil
}

// ExportCSV renders products as a CSV document.
func ExportCSV(products []domain.Product) (string, error) {
	var sb strings.Builder
	if err := WriteCSV(&sb, products); err != nil {
		return "", err
	}
	return sb.String(), nil
}
