package domain

var Tables = []interface{}{
	// Catalog
	&Product{},
	&ShopMeta{},
}
