package app

import (
	"context"
	"time"

	"github.com/talkincode/shopsync/internal/catalog"
	"github.com/talkincode/shopsync/internal/domain"
	"github.com/talkincode/shopsync/internal/snapshot"
	"go.uber.org/zap"
)

// DemoProducts is the catalog written by checkCatalog on an empty store.
func DemoProducts() []domain.Product {
	return catalog.NormalizeProducts([]domain.Product{
		{ID: 1, Name: "Thai Milk Tea", Price: 45, Unit: "cup", Category: "Drinks", Sku: "DRK-001",
			Description: "Strong black tea with condensed milk.", Images: []string{"/images/thai-milk-tea.jpg"}},
		{ID: 2, Name: "Green Tea Latte", Price: 55, Unit: "cup", Category: "Drinks", Sku: "DRK-002",
			Images: []string{"/images/green-tea-latte.jpg"}},
		{ID: 3, Name: "Mango Sticky Rice", Price: 80, Unit: "box", Category: "Desserts", Sku: "DST-001",
			Description: "Sweet mango with coconut sticky rice.", Images: []string{"/images/mango-sticky-rice.jpg"}},
		{ID: 4, Name: "Coconut Pudding", Price: 35, Unit: "piece", Category: "Desserts", Sku: "DST-002"},
		{ID: 5, Name: "Roti", Price: 40, Unit: "piece", Category: "Snacks", Sku: "SNK-001"},
		{ID: 6, Name: "Pork Satay", Price: 60, Unit: "set", Category: "Snacks", Sku: "SNK-002",
			Images: []string{"/images/pork-satay.jpg", "/images/pork-satay-2.jpg"}},
	})
}

// checkCatalog writes the demo catalog when catalog.seed_demo is set and nothing
// was ever written.
func (a *Application) checkCatalog() {
	if !a.appConfig.Catalog.SeedDemo || a.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	version, err := a.store.Version(ctx)
	if err != nil {
		zap.L().Error("failed to read catalog version", zap.Error(err))
		return
	}
	if version > 0 {
		return
	}
	products, err := a.store.Backend().ListProducts(ctx)
	if err != nil {
		zap.L().Error("failed to list catalog", zap.Error(err))
		return
	}
	if len(products) > 0 {
		return
	}

	demo := DemoProducts()
	res, err := a.store.Replace(ctx, demo, snapshot.Settings{})
	if err != nil {
		zap.L().Error("failed to seed demo catalog", zap.Error(err))
		return
	}
	zap.L().Info("initialized demo catalog",
		zap.Int("products", len(demo)),
		zap.Int64("version", res.Version))
}
