package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTheme(t *testing.T) {
	assert.Equal(t, "sunset", NormalizeTheme(" sunset "))
	assert.Equal(t, DefaultTheme, NormalizeTheme(""))
	assert.Equal(t, DefaultTheme, NormalizeTheme("neon"))
	for _, opt := range ThemeOptions {
		assert.Equal(t, opt.ID, NormalizeTheme(opt.ID))
	}
}

func TestNormalizePageSize(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int
	}{
		{nil, 9},
		{"abc", 9},
		{6, 6},
		{"12", 12},
		{10, 9},
		{11, 12},
		{0, 6},
		{100, 12},
		{7.6, 9},
		{"7.6", 9},
		{7.4, 6},
		{10.4, 9},
		{math.NaN(), 9},
		{int64(9), 9},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePageSize(tc.in), "input %v", tc.in)
	}
}

func TestNormalizePageSizeTieGoesToEarlierOption(t *testing.T) {
	assert.Equal(t, 6, NormalizePageSize(7.5))
	assert.Equal(t, 9, NormalizePageSize("10.5"))
}

func TestNormalizeCategories(t *testing.T) {
	got := NormalizeCategories([]string{" fruit ", "", "drinks", "fruit", "  ", "bakery"})
	assert.Equal(t, []string{"bakery", "drinks", "fruit"}, got)

	assert.Empty(t, NormalizeCategories(nil))
	assert.NotNil(t, NormalizeCategories(nil))
}

func TestNormalizeCategoriesMixedCase(t *testing.T) {
	assert.Equal(t, []string{"a", "B"}, NormalizeCategories([]string{"B", " a ", "a", "B"}))
}

func TestNormalizeCategoriesThai(t *testing.T) {
	got := NormalizeCategories([]string{"ผลไม้", "เครื่องดื่ม", "ขนม"})
	require.Len(t, got, 3)
	assert.Equal(t, "ขนม", got[0])
	assert.ElementsMatch(t, []string{"ผลไม้", "เครื่องดื่ม", "ขนม"}, got)
}

func TestCategoriesOf(t *testing.T) {
	got := CategoriesOf([]Product{{ID: 1, Category: "b"}, {ID: 2, Category: "a"}, {ID: 3, Category: "b"}})
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestProductClone(t *testing.T) {
	p := Product{ID: 1, Images: []string{"a"}}
	c := p.Clone()
	c.Images[0] = "b"
	assert.Equal(t, "a", p.Images[0])

	assert.NotNil(t, Product{}.Clone().Images)
}

func TestSortProductsByID(t *testing.T) {
	list := []Product{{ID: 3}, {ID: 1}, {ID: 2}}
	SortProductsByID(list)
	assert.Equal(t, []int64{1, 2, 3}, ProductIDs(list))
}

func TestSnapshotClone(t *testing.T) {
	var nilSnap *Snapshot
	assert.Nil(t, nilSnap.Clone())

	s := &Snapshot{Products: []Product{{ID: 1, Images: []string{"x"}}}, Categories: []string{"a"}, Theme: "mint", PageSize: 6, Version: 4}
	c := s.Clone()
	c.Categories[0] = "z"
	c.Products[0].Images[0] = "y"
	assert.Equal(t, "a", s.Categories[0])
	assert.Equal(t, "x", s.Products[0].Images[0])
	assert.Equal(t, int64(4), c.Version)
}
