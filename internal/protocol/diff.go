package protocol

import (
	"slices"
	"strings"

	"github.com/talkincode/shopsync/internal/domain"
)

// Diff is the minimal change set that turns a previous snapshot into the current one.
type Diff struct {
	Upserts           []domain.Product
	DeletedIDs        []int64
	CategoriesChanged bool
	Categories        []string
	ThemeChanged      bool
	Theme             string
	PageSizeChanged   bool
	PageSize          int
}

// Empty reports whether the diff carries no change at all.
func (d Diff) Empty() bool {
	return len(d.Upserts) == 0 && len(d.DeletedIDs) == 0 &&
		!d.CategoriesChanged && !d.ThemeChanged && !d.PageSizeChanged
}

// Request renders the diff as a patch body. The full category list always travels so
// that categories without products survive; unchanged theme and page size are omitted.
func (d Diff) Request() PatchRequest {
	req := PatchRequest{
		Action:     ActionPatch,
		Upserts:    d.Upserts,
		DeleteIDs:  d.DeletedIDs,
		Categories: slices.Clone(d.Categories),
	}
	if req.Upserts == nil {
		req.Upserts = []domain.Product{}
	}
	if req.DeleteIDs == nil {
		req.DeleteIDs = []int64{}
	}
	if d.ThemeChanged {
		theme := d.Theme
		req.Theme = &theme
	}
	if d.PageSizeChanged {
		size := d.PageSize
		req.PageSize = &size
	}
	return req
}

// BuildDiff compares cur against prev. Without a previous snapshot every product is an
// upsert and categories, theme and page size all count as changed.
func BuildDiff(prev, cur *domain.Snapshot) Diff {
	if cur == nil {
		cur = &domain.Snapshot{}
	}
	d := Diff{
		Categories: slices.Clone(cur.Categories),
		Theme:      themeOrDefault(cur.Theme),
		PageSize:   pageSizeOrDefault(cur.PageSize),
	}
	if prev == nil {
		d.Upserts = domain.CloneProducts(cur.Products)
		d.CategoriesChanged = true
		d.ThemeChanged = true
		d.PageSizeChanged = true
		return d
	}

	before := make(map[int64]domain.Product, len(prev.Products))
	for _, p := range prev.Products {
		before[p.ID] = p
	}
	current := make(map[int64]struct{}, len(cur.Products))
	for _, p := range cur.Products {
		current[p.ID] = struct{}{}
		old, ok := before[p.ID]
		if !ok || ProductChanged(old, p) {
			d.Upserts = append(d.Upserts, p.Clone())
		}
	}
	for _, p := range prev.Products {
		if _, ok := current[p.ID]; !ok {
			d.DeletedIDs = append(d.DeletedIDs, p.ID)
		}
	}
	slices.Sort(d.DeletedIDs)

	d.CategoriesChanged = !domain.EqualCategories(prev.Categories, cur.Categories)
	d.ThemeChanged = themeOrDefault(prev.Theme) != d.Theme
	d.PageSizeChanged = pageSizeOrDefault(prev.PageSize) != d.PageSize
	return d
}

// ProductChanged compares the user-editable fields of two products. Timestamps are not
// part of the comparison.
func ProductChanged(a, b domain.Product) bool {
	return a.Name != b.Name ||
		a.Price != b.Price ||
		a.Unit != b.Unit ||
		a.Category != b.Category ||
		a.Sku != b.Sku ||
		a.Description != b.Description ||
		a.Slug != b.Slug ||
		a.Image != b.Image ||
		strings.Join(a.Images, "|") != strings.Join(b.Images, "|")
}

// ApplyDiff applies d to base and returns the resulting snapshot with products ordered
// by id. The version is left untouched.
func ApplyDiff(base *domain.Snapshot, d Diff) *domain.Snapshot {
	out := base.Clone()
	if out == nil {
		out = &domain.Snapshot{Theme: domain.DefaultTheme, PageSize: domain.DefaultPageSize}
	}
	byID := make(map[int64]domain.Product, len(out.Products)+len(d.Upserts))
	for _, p := range out.Products {
		byID[p.ID] = p
	}
	for _, id := range d.DeletedIDs {
		delete(byID, id)
	}
	for _, p := range d.Upserts {
		byID[p.ID] = p.Clone()
	}
	out.Products = make([]domain.Product, 0, len(byID))
	for _, p := range byID {
		out.Products = append(out.Products, p)
	}
	domain.SortProductsByID(out.Products)
	if d.CategoriesChanged {
		out.Categories = slices.Clone(d.Categories)
	}
	if d.ThemeChanged {
		out.Theme = d.Theme
	}
	if d.PageSizeChanged {
		out.PageSize = d.PageSize
	}
	return out
}

func themeOrDefault(theme string) string {
	if theme == "" {
		return domain.DefaultTheme
	}
	return theme
}

func pageSizeOrDefault(size int) int {
	if size == 0 {
		return domain.DefaultPageSize
	}
	return size
}
