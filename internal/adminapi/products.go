package adminapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/shopsync/internal/domain"
	"github.com/talkincode/shopsync/internal/webserver"
	"golang.org/x/text/collate"
)

// pagedResult is the storefront listing envelope.
type pagedResult struct {
	Data       []domain.Product `json:"data"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
	Version    int64            `json:"version"`
}

// registerProductRoutes registers the read-only storefront listing.
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/:id", getProduct)
}

func paged(c echo.Context, rows []domain.Product, total, page, pageSize int, version int64) error {
	totalPages := (total + pageSize - 1) / pageSize
	return ok(c, pagedResult{
		Data:       rows,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Version:    version,
	})
}

// listProducts filters by ?q (name and description) and ?category, orders by ?sort
// (latest, price-asc, price-desc, name) and returns one page. ?perPage defaults to the
// stored page size; an out of range ?page is clamped.
func listProducts(c echo.Context) error {
	snap, err := GetAppContext(c).Store().Load(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "failed to load state", err.Error())
	}

	pageSize := snap.PageSize
	if ps, err := strconv.Atoi(c.QueryParam("perPage")); err == nil && ps > 0 && ps <= 500 {
		pageSize = ps
	}
	page := 1
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}

	rows := filterProducts(snap.Products,
		strings.ToLower(strings.TrimSpace(c.QueryParam("q"))),
		strings.TrimSpace(c.QueryParam("category")))
	sortProducts(rows, strings.TrimSpace(c.QueryParam("sort")))

	total := len(rows)
	if last := (total + pageSize - 1) / pageSize; page > last {
		page = last
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	return paged(c, rows[start:end], total, page, pageSize, snap.Version)
}

// getProduct looks a product up by id or slug.
func getProduct(c echo.Context) error {
	key := strings.TrimSpace(c.Param("id"))
	snap, err := GetAppContext(c).Store().Load(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "failed to load state", err.Error())
	}
	id, _ := strconv.ParseInt(key, 10, 64)
	for _, p := range snap.Products {
		if (id > 0 && p.ID == id) || p.Slug == key {
			return ok(c, p)
		}
	}
	return fail(c, http.StatusNotFound, "product not found", key)
}

func filterProducts(list []domain.Product, q, category string) []domain.Product {
	out := make([]domain.Product, 0, len(list))
	for _, p := range list {
		if category != "" && p.Category != category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Description), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func sortProducts(list []domain.Product, by string) {
	switch by {
	case "price-asc":
		sort.SliceStable(list, func(i, j int) bool { return list[i].Price < list[j].Price })
	case "price-desc":
		sort.SliceStable(list, func(i, j int) bool { return list[i].Price > list[j].Price })
	case "name":
		col := collate.New(domain.CategoryLanguage)
		sort.SliceStable(list, func(i, j int) bool { return col.CompareString(list[i].Name, list[j].Name) < 0 })
	default:
		sort.SliceStable(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	}
}
