package domain

import (
	"math"

	"github.com/spf13/cast"
)

// DefaultPageSize is the storefront grid size used when none is stored.
const DefaultPageSize = 9

var PageSizeOptions = []int{6, 9, 12}

// NormalizePageSize snaps v to the nearest entry of PageSizeOptions. Ties resolve to
// the earlier option; nil, unparseable or non-finite input yields DefaultPageSize.
func NormalizePageSize(v interface{}) int {
	if v == nil {
		return DefaultPageSize
	}
	n, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return DefaultPageSize
	}
	best := PageSizeOptions[0]
	bestDist := math.Abs(n - float64(best))
	for _, opt := range PageSizeOptions[1:] {
		if d := math.Abs(n - float64(opt)); d < bestDist {
			best, bestDist = opt, d
		}
	}
	return best
}
