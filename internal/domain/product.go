package domain

import (
	"slices"
	"time"
)

// Product represents a catalog item as stored by every backend and synchronized to clients
type Product struct {
	ID          int64     `gorm:"primaryKey;autoIncrement:false" json:"id" bson:"id"`
	Name        string    `gorm:"index" json:"name" bson:"name"`
	Price       float64   `json:"price" bson:"price"` // price in main currency units
	Unit        string    `gorm:"size:64" json:"unit" bson:"unit"`
	Category    string    `gorm:"index;size:200" json:"category" bson:"category"`
	Sku         string    `gorm:"size:128" json:"sku,omitempty" bson:"sku"`
	Description string    `gorm:"type:text" json:"description,omitempty" bson:"description"`
	Slug        string    `gorm:"size:200" json:"slug" bson:"slug"`
	Image       string    `gorm:"type:text" json:"image,omitempty" bson:"image"` // mirror of Images[0]
	Images      []string  `gorm:"serializer:json;type:text" json:"images" bson:"images"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false" json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false" json:"updatedAt" bson:"updatedAt"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "shop_product"
}

// Clone returns a copy that does not share the images slice.
func (p Product) Clone() Product {
	p.Images = slices.Clone(p.Images)
	if p.Images == nil {
		p.Images = []string{}
	}
	return p
}

// CloneProducts copies a product list element by element.
func CloneProducts(list []Product) []Product {
	out := make([]Product, len(list))
	for i, p := range list {
		out[i] = p.Clone()
	}
	return out
}

// ProductIDs returns the ids of list in order.
func ProductIDs(list []Product) []int64 {
	ids := make([]int64, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	return ids
}

// SortProductsByID orders list by ascending id in place.
func SortProductsByID(list []Product) {
	slices.SortFunc(list, func(a, b Product) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
