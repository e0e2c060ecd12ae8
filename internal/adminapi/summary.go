package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/montanaflynn/stats"
	"github.com/talkincode/shopsync/internal/domain"
)

type priceSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

type categorySummary struct {
	Category string       `json:"category"`
	Count    int          `json:"count"`
	Price    priceSummary `json:"price"`
}

type catalogSummary struct {
	Version    int64             `json:"version"`
	Products   int               `json:"products"`
	Price      priceSummary      `json:"price"`
	Categories []categorySummary `json:"categories"`
}

func getSummary(c echo.Context) error {
	snap, err := GetAppContext(c).Store().Load(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "failed to load state", err.Error())
	}
	return ok(c, summarize(snap))
}

// summarize lists categories in catalog order, followed by product categories missing
// from the stored list. Empty categories are reported with a zero price summary.
func summarize(snap *domain.Snapshot) catalogSummary {
	prices := make(map[string][]float64)
	all := make([]float64, 0, len(snap.Products))
	for _, p := range snap.Products {
		prices[p.Category] = append(prices[p.Category], p.Price)
		all = append(all, p.Price)
	}

	order := append([]string(nil), snap.Categories...)
	listed := make(map[string]bool, len(order))
	for _, cat := range order {
		listed[cat] = true
	}
	var extra []string
	for cat := range prices {
		if !listed[cat] {
			extra = append(extra, cat)
		}
	}
	order = append(order, domain.NormalizeCategories(extra)...)

	out := catalogSummary{
		Version:    snap.Version,
		Products:   len(snap.Products),
		Price:      describe(all),
		Categories: make([]categorySummary, 0, len(order)),
	}
	for _, cat := range order {
		out.Categories = append(out.Categories, categorySummary{
			Category: cat,
			Count:    len(prices[cat]),
			Price:    describe(prices[cat]),
		})
	}
	return out
}

func describe(values []float64) priceSummary {
	if len(values) == 0 {
		return priceSummary{}
	}
	data := stats.Float64Data(values)
	var s priceSummary
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	s.Mean, _ = stats.Mean(data)
	s.Median, _ = stats.Median(data)
	return s
}
