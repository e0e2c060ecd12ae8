package domain

import "slices"

// Snapshot is the unit of synchronization: the whole catalog state at one version.
type Snapshot struct {
	Products   []Product `json:"products"`
	Categories []string  `json:"categories"`
	Theme      string    `json:"theme"`
	PageSize   int       `json:"pageSize"`
	Version    int64     `json:"version"`
}

// Clone deep-copies s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	return &Snapshot{
		Products:   CloneProducts(s.Products),
		Categories: slices.Clone(s.Categories),
		Theme:      s.Theme,
		PageSize:   s.PageSize,
		Version:    s.Version,
	}
}
