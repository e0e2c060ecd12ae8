package catalog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/shopsync/internal/domain"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "green-tea-latte", Slugify("  Green Tea  Latte! "))
	assert.Equal(t, "ชาเขียว-นม", Slugify("ชาเขียว นม"))
	assert.Equal(t, "a-b", Slugify("a\t\nb"))
	assert.Equal(t, "", Slugify("!!!"))
	assert.Len(t, []rune(Slugify(strings.Repeat("x", 100))), 60)
}

func TestMergeImages(t *testing.T) {
	assert.Equal(t, []string{"a.png", "b.png"}, MergeImages(" a.png ", []string{"b.png", "a.png", ""}))
	assert.Equal(t, []string{"b.png"}, MergeImages("", []string{"b.png"}))
	assert.Empty(t, MergeImages("", nil))
}

func TestSplitImages(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitImages("a | b|c"))
	assert.Equal(t, []string{"a", "b"}, SplitImages("a\n\nb"))
	assert.Empty(t, SplitImages("  "))
}

func TestNormalizeRaw(t *testing.T) {
	p, err := NormalizeRaw(map[string]interface{}{
		"id":          "7",
		"name":        "  Mango ",
		"price":       "12.5",
		"unit":        " kg",
		"category":    "fruit ",
		"description": "  sweet ",
		"images":      []interface{}{"b.jpg", "a.jpg"},
		"image":       "a.jpg",
		"createdAt":   "2024-01-02T03:04:05Z",
	}, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "Mango", p.Name)
	assert.Equal(t, 12.5, p.Price)
	assert.Equal(t, "kg", p.Unit)
	assert.Equal(t, "fruit", p.Category)
	assert.Equal(t, "  sweet ", p.Description)
	assert.Equal(t, "mango", p.Slug)
	assert.Equal(t, "a.jpg", p.Image)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, p.Images)
	assert.Equal(t, 2024, p.CreatedAt.Year())
}

func TestNormalizeRawFallbacks(t *testing.T) {
	p, err := NormalizeRaw(map[string]interface{}{"name": "Tea", "unit": "cup", "category": "drinks", "price": "abc"}, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.ID)
	assert.Equal(t, 0.0, p.Price)
	assert.Equal(t, []string{}, p.Images)

	p, err = NormalizeRaw(map[string]interface{}{"id": 4, "name": "Tea", "unit": "cup", "category": "drinks", "createdAt": float64(1700000000000)}, 1)
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1700000000000), p.CreatedAt)
}

func TestNormalizeRawRejects(t *testing.T) {
	cases := []map[string]interface{}{
		{"id": 1, "unit": "cup", "category": "drinks"},
		{"id": 1, "name": "Tea", "category": "drinks"},
		{"id": 1, "name": "Tea", "unit": "cup"},
		{"id": "x", "name": "Tea", "unit": "cup", "category": "drinks"},
		{"id": -2, "name": "Tea", "unit": "cup", "category": "drinks"},
		{"id": 1, "name": "!!!", "unit": "cup", "category": "drinks"},
	}
	for _, raw := range cases {
		_, err := NormalizeRaw(raw, 1)
		assert.ErrorIs(t, err, ErrInvalidProduct, "%v", raw)
	}
	_, err := NormalizeRaw("not an object", 1)
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestNormalizeListDedup(t *testing.T) {
	list, skipped := NormalizeList([]interface{}{
		map[string]interface{}{"id": 1, "name": "A", "unit": "u", "category": "c"},
		map[string]interface{}{"id": 1, "name": "B", "unit": "u", "category": "c"},
		map[string]interface{}{"name": "C", "unit": "u", "category": "c"},
		map[string]interface{}{"id": 5, "name": "", "unit": "u", "category": "c"},
	})
	require.Len(t, list, 2)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, "A", list[0].Name)
	assert.Equal(t, int64(3), list[1].ID)
}

func TestNormalizeProducts(t *testing.T) {
	list := NormalizeProducts([]domain.Product{
		{ID: 5, Name: " B ", Unit: "u", Category: "c"},
		{Name: "A", Unit: "u", Category: "c"},
		{ID: 2, Name: "dup", Unit: "u", Category: "c"},
	})
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].Name)
	assert.Equal(t, int64(2), list[1].ID)
	assert.Equal(t, "a", list[1].Slug)
}

func TestParseCSV(t *testing.T) {
	text := " id , name ,price,unit,category,sku,description,slug,image,images\r\n" +
		"1,\"Tea, green\",30,cup,drinks,,\"line one\nline \"\"two\"\"\",,,a.png | b.png\r\n" +
		"\r\n" +
		",Coffee,45,cup,drinks,,,,,\n"
	raws, err := ParseCSVString(text)
	require.NoError(t, err)
	require.Len(t, raws, 2)

	list, skipped := NormalizeList(raws)
	assert.Zero(t, skipped)
	require.Len(t, list, 2)
	assert.Equal(t, "Tea, green", list[0].Name)
	assert.Equal(t, "line one\nline \"two\"", list[0].Description)
	assert.Equal(t, []string{"a.png", "b.png"}, list[0].Images)
	assert.Equal(t, "a.png", list[0].Image)
	assert.Equal(t, int64(2), list[1].ID)
	assert.Equal(t, 45.0, list[1].Price)
}

func TestParseCSVEmpty(t *testing.T) {
	raws, err := ParseCSVString("")
	require.NoError(t, err)
	assert.Empty(t, raws)

	raws, err = ParseCSVString("id,name\n")
	require.NoError(t, err)
	assert.Empty(t, raws)
}

func TestCSVRoundTrip(t *testing.T) {
	in := []domain.Product{
		{ID: 1, Name: "Tea, green", Price: 30.5, Unit: "cup", Category: "drinks", Description: "says \"hi\"\nnew line", Slug: "tea", Image: "a.png", Images: []string{"a.png", "b.png"}},
		{ID: 2, Name: "Bun", Price: 12, Unit: "pc", Category: "bakery", Sku: "B-1", Slug: "bun", Images: []string{}},
	}
	text, err := ExportCSV(in)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, strings.Join(CSVHeaders, ",")+"\r\n"))

	raws, err := ParseCSVString(text)
	require.NoError(t, err)
	out, skipped := NormalizeList(raws)
	assert.Zero(t, skipped)
	require.Len(t, out, 2)
	for i := range in {
		assert.Equal(t, in[i].ID, out[i].ID)
		assert.Equal(t, in[i].Name, out[i].Name)
		assert.Equal(t, in[i].Price, out[i].Price)
		assert.Equal(t, in[i].Description, out[i].Description)
		assert.Equal(t, in[i].Sku, out[i].Sku)
		assert.Equal(t, in[i].Images, out[i].Images)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf, []domain.Product{{ID: 1, Name: "Tea", Images: []string{"a"}}})
	require.NoError(t, err)
	// xlsx files are zip archives
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")))
}

func TestCellName(t *testing.T) {
	assert.Equal(t, "A1", cellName(0, 1))
	assert.Equal(t, "J3", cellName(9, 3))
	assert.Equal(t, "AA2", cellName(26, 2))
}
