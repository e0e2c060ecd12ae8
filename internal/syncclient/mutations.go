package syncclient

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/talkincode/shopsync/internal/catalog"
	"github.com/talkincode/shopsync/internal/domain"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateProduct = errors.New("product id already exists")
	ErrInvalidCategory  = errors.New("category name is empty")
	ErrCategoryExists   = errors.New("category already exists")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryInUse    = errors.New("category is used by products")
	ErrUnknownTheme     = errors.New("unknown theme")
)

// Add normalizes p and appends it. A zero id gets the next free id. The product's
// category joins the category list when missing.
func (e *Engine) Add(p domain.Product) (domain.Product, error) {
	e.mu.Lock()
	if p.ID == 0 {
		p.ID = nextID(e.state.Products)
	}
	p, err := catalog.Normalize(p)
	if err != nil {
		e.mu.Unlock()
		return domain.Product{}, err
	}
	if indexOf(e.state.Products, p.ID) >= 0 {
		e.mu.Unlock()
		return domain.Product{}, errors.Wrapf(ErrDuplicateProduct, "id %d", p.ID)
	}
	e.state.Products = append(e.state.Products, p.Clone())
	domain.SortProductsByID(e.state.Products)
	e.ensureCategoryLocked(p.Category)
	e.commit()
	return p, nil
}

// Update replaces the product with the same id. A zero createdAt keeps the stored one.
func (e *Engine) Update(p domain.Product) (domain.Product, error) {
	e.mu.Lock()
	idx := indexOf(e.state.Products, p.ID)
	if idx < 0 {
		e.mu.Unlock()
		return domain.Product{}, errors.Wrapf(ErrProductNotFound, "id %d", p.ID)
	}
	p, err := catalog.Normalize(p)
	if err != nil {
		e.mu.Unlock()
		return domain.Product{}, err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = e.state.Products[idx].CreatedAt
	}
	e.state.Products[idx] = p.Clone()
	e.ensureCategoryLocked(p.Category)
	e.commit()
	return p, nil
}

func (e *Engine) Remove(id int64) error {
	e.mu.Lock()
	idx := indexOf(e.state.Products, id)
	if idx < 0 {
		e.mu.Unlock()
		return errors.Wrapf(ErrProductNotFound, "id %d", id)
	}
	e.state.Products = append(e.state.Products[:idx], e.state.Products[idx+1:]...)
	e.commit()
	return nil
}

func (e *Engine) AddCategory(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidCategory
	}
	e.mu.Lock()
	if contains(e.state.Categories, name) {
		e.mu.Unlock()
		return errors.Wrap(ErrCategoryExists, name)
	}
	e.ensureCategoryLocked(name)
	e.commit()
	return nil
}

// RenameCategory renames a category and moves its products along.
func (e *Engine) RenameCategory(from, to string) error {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return ErrInvalidCategory
	}
	e.mu.Lock()
	if !contains(e.state.Categories, from) {
		e.mu.Unlock()
		return errors.Wrap(ErrCategoryNotFound, from)
	}
	if from == to {
		e.mu.Unlock()
		return nil
	}
	list := make([]string, 0, len(e.state.Categories))
	for _, c := range e.state.Categories {
		if c == from {
			c = to
		}
		list = append(list, c)
	}
	e.state.Categories = domain.NormalizeCategories(list)
	for i := range e.state.Products {
		if e.state.Products[i].Category == from {
			e.state.Products[i].Category = to
		}
	}
	e.commit()
	return nil
}

// RemoveCategory drops an unused category.
func (e *Engine) RemoveCategory(name string) error {
	name = strings.TrimSpace(name)
	e.mu.Lock()
	if !contains(e.state.Categories, name) {
		e.mu.Unlock()
		return errors.Wrap(ErrCategoryNotFound, name)
	}
	for _, p := range e.state.Products {
		if p.Category == name {
			e.mu.Unlock()
			return errors.Wrap(ErrCategoryInUse, name)
		}
	}
	list := make([]string, 0, len(e.state.Categories))
	for _, c := range e.state.Categories {
		if c != name {
			list = append(list, c)
		}
	}
	e.state.Categories = list
	e.commit()
	return nil
}

func (e *Engine) SetTheme(theme string) error {
	theme = strings.TrimSpace(theme)
	if !domain.IsTheme(theme) {
		return errors.Wrap(ErrUnknownTheme, theme)
	}
	e.mu.Lock()
	e.state.Theme = theme
	e.commit()
	return nil
}

// SetPageSize snaps size to an allowed option and returns it.
func (e *Engine) SetPageSize(size int) int {
	size = domain.NormalizePageSize(size)
	e.mu.Lock()
	e.state.PageSize = size
	e.commit()
	return size
}

// ClearAll removes every product and category.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	e.state.Products = []domain.Product{}
	e.state.Categories = []string{}
	e.commit()
}

// commit marks the engine dirty, releases mu and announces the new state. It must be
// called with mu held.
func (e *Engine) commit() {
	e.markDirtyLocked()
	snap := e.state.Clone()
	e.mu.Unlock()
	e.emit(TopicChanged, snap)
}

func (e *Engine) ensureCategoryLocked(name string) {
	if name == "" || contains(e.state.Categories, name) {
		return
	}
	e.state.Categories = domain.NormalizeCategories(append(e.state.Categories, name))
}

func nextID(list []domain.Product) int64 {
	var top int64
	for _, p := range list {
		if p.ID > top {
			top = p.ID
		}
	}
	return top + 1
}

func indexOf(list []domain.Product, id int64) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
