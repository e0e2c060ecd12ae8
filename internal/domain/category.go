package domain

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CategoryLanguage drives the collation order of category lists.
var CategoryLanguage = language.Thai

// NormalizeCategories trims, drops empty values, removes duplicates and sorts the
// result with a locale-aware collator.
func NormalizeCategories(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, c := range list {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	// a Collator keeps internal buffers, one per call
	collate.New(CategoryLanguage).SortStrings(out)
	return out
}

// CategoriesOf derives the normalized category set of products.
func CategoriesOf(products []Product) []string {
	list := make([]string, 0, len(products))
	for _, p := range products {
		list = append(list, p.Category)
	}
	return NormalizeCategories(list)
}

// EqualCategories compares two category sequences, order included.
func EqualCategories(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
