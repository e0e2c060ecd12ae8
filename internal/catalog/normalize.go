package catalog

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/talkincode/shopsync/internal/domain"
)

// ErrInvalidProduct marks a record that cannot become a catalog product.
var ErrInvalidProduct = errors.New("invalid product")

// productInput is the tolerant decode target for loosely typed product payloads.
type productInput struct {
	ID          interface{} `mapstructure:"id"`
	Name        string      `mapstructure:"name"`
	Price       interface{} `mapstructure:"price"`
	Unit        string      `mapstructure:"unit"`
	Category    string      `mapstructure:"category"`
	Sku         string      `mapstructure:"sku"`
	Description string      `mapstructure:"description"`
	Slug        string      `mapstructure:"slug"`
	Image       string      `mapstructure:"image"`
	Images      interface{} `mapstructure:"images"`
	CreatedAt   interface{} `mapstructure:"createdAt"`
	UpdatedAt   interface{} `mapstructure:"updatedAt"`
}

// Normalize cleans a typed product: text fields are trimmed (description excepted),
// the slug is derived from the name when missing and the image list is merged with the
// primary image. Records missing a required field are rejected with ErrInvalidProduct.
func Normalize(p domain.Product) (domain.Product, error) {
	out := domain.Product{
		ID:          p.ID,
		Name:        strings.TrimSpace(p.Name),
		Price:       p.Price,
		Unit:        strings.TrimSpace(p.Unit),
		Category:    strings.TrimSpace(p.Category),
		Sku:         strings.TrimSpace(p.Sku),
		Description: p.Description,
		Slug:        strings.TrimSpace(p.Slug),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if out.Slug == "" {
		out.Slug = Slugify(out.Name)
	}
	out.Images = MergeImages(p.Image, p.Images)
	if len(out.Images) > 0 {
		out.Image = out.Images[0]
	}
	if err := validate(out); err != nil {
		return domain.Product{}, err
	}
	return out, nil
}

func validate(p domain.Product) error {
	var missing []string
	if p.ID <= 0 {
		missing = append(missing, "id")
	}
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if p.Unit == "" {
		missing = append(missing, "unit")
	}
	if p.Category == "" {
		missing = append(missing, "category")
	}
	if p.Slug == "" {
		missing = append(missing, "slug")
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrInvalidProduct, "id %d: missing %s", p.ID, strings.Join(missing, ","))
	}
	return nil
}

// NormalizeRaw decodes and normalizes one loosely typed product. A missing id takes
// fallbackID; an id that is present but not a positive integer rejects the record.
// An unparseable price becomes 0.
func NormalizeRaw(raw interface{}, fallbackID int64) (domain.Product, error) {
	var in productInput
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &in,
	})
	if err != nil {
		return domain.Product{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return domain.Product{}, errors.Wrap(ErrInvalidProduct, err.Error())
	}

	p := domain.Product{
		Name:        in.Name,
		Unit:        in.Unit,
		Category:    in.Category,
		Sku:         in.Sku,
		Description: in.Description,
		Slug:        in.Slug,
		Image:       in.Image,
		Images:      toImageList(in.Images),
		CreatedAt:   toTime(in.CreatedAt),
		UpdatedAt:   toTime(in.UpdatedAt),
	}
	p.ID = fallbackID
	if in.ID != nil && strings.TrimSpace(cast.ToString(in.ID)) != "" {
		id, err := cast.ToInt64E(in.ID)
		if err != nil {
			return domain.Product{}, errors.Wrapf(ErrInvalidProduct, "bad id %v", in.ID)
		}
		p.ID = id
	}
	if in.Price != nil {
		p.Price, _ = cast.ToFloat64E(in.Price)
	}
	return Normalize(p)
}

// NormalizeList normalizes a loosely typed product list. Record i falls back to id
// i+1, invalid records are dropped and the first record wins for a repeated id. The
// number of dropped records is returned alongside.
func NormalizeList(raws []interface{}) ([]domain.Product, int) {
	out := make([]domain.Product, 0, len(raws))
	seen := make(map[int64]struct{}, len(raws))
	skipped := 0
	for i, raw := range raws {
		p, err := NormalizeRaw(raw, int64(i+1))
		if err != nil {
			skipped++
			continue
		}
		if _, ok := seen[p.ID]; ok {
			skipped++
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out, skipped
}

// NormalizeProducts applies Normalize to typed products with the same drop and dedup
// rules as NormalizeList.
func NormalizeProducts(list []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(list))
	seen := make(map[int64]struct{}, len(list))
	for i, item := range list {
		if item.ID == 0 {
			item.ID = int64(i + 1)
		}
		p, err := Normalize(item)
		if err != nil {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

func toTime(v interface{}) time.Time {
	switch val := v.(type) {
	case nil:
		return time.Time{}
	case time.Time:
		return val
	case string:
		if strings.TrimSpace(val) == "" {
			return time.Time{}
		}
		t, err := dateparse.ParseAny(val)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		ms, err := cast.ToInt64E(val)
		if err != nil || ms <= 0 {
			return time.Time{}
		}
		return time.UnixMilli(ms)
	}
}
