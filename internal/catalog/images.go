package catalog

import (
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

var imageSeparator = regexp.MustCompile(`\s*\|\s*|\n+`)

// SplitImages splits a CSV images cell on '|' or newlines.
func SplitImages(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return []string{}
	}
	return imageSeparator.Split(cell, -1)
}

// JoinImages is the inverse of SplitImages used by the CSV export.
func JoinImages(images []string) string {
	return strings.Join(images, " | ")
}

// MergeImages trims every entry, drops empty ones and removes duplicates while keeping
// the first occurrence. primary is placed first when set.
func MergeImages(primary string, images []string) []string {
	out := make([]string, 0, len(images)+1)
	seen := make(map[string]struct{}, len(images)+1)
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	add(primary)
	for _, img := range images {
		add(img)
	}
	return out
}

// toImageList accepts a list, a single delimited string or nothing.
func toImageList(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return SplitImages(val)
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, err := cast.ToStringE(item); err == nil {
				out = append(out, s)
			}
		}
		return out
	default:
		return cast.ToStringSlice(val)
	}
}
