package domain

// Well-known metadata keys. Each logical field lives under its own key so that a
// backend only needs per-key atomicity.
const (
	VersionKey  = "products_version"
	CategoryKey = "products_categories"
	ThemeKey    = "products_theme"
	PageSizeKey = "products_page_size"
)

// ShopMeta holds one metadata entry for the SQL backend. Value carries JSON for
// plain entries, Counter carries the version counter.
type ShopMeta struct {
	Key     string `gorm:"column:meta_key;primaryKey;size:64" json:"key"`
	Value   string `gorm:"type:text" json:"value"`
	Counter int64  `gorm:"not null;default:0" json:"counter"`
}

// TableName Specify table name
func (ShopMeta) TableName() string {
	return "shop_meta"
}
