package protocol

import (
	"github.com/spf13/cast"
	"github.com/talkincode/shopsync/internal/domain"
)

// Actions accepted by POST /api/state. An empty action means a full replace.
const (
	ActionReplace     = ""
	ActionPatch       = "patch"
	ActionImportChunk = "importChunk"
	ActionPreview     = "preview"
)

// StateRequest is the tolerant decode target of a POST body. Product lists stay loosely
// typed until normalization; a nil slice means the field was absent.
type StateRequest struct {
	Action     string        `json:"action" mapstructure:"action"`
	Products   []interface{} `json:"products" mapstructure:"products"`
	Upserts    []interface{} `json:"upserts" mapstructure:"upserts"`
	DeleteIDs  []interface{} `json:"deleteIds" mapstructure:"deleteIds"`
	Categories []string      `json:"categories" mapstructure:"categories"`
	CSV        string        `json:"csv" mapstructure:"csv"`
	Theme      *string       `json:"theme" mapstructure:"theme"`
	PageSize   interface{}   `json:"pageSize" mapstructure:"pageSize"`
	Reset      bool          `json:"reset" mapstructure:"reset"`
}

// PatchRequest is the incremental write sent by the sync engine.
type PatchRequest struct {
	Action     string           `json:"action"`
	Upserts    []domain.Product `json:"upserts"`
	DeleteIDs  []int64          `json:"deleteIds"`
	Categories []string         `json:"categories,omitempty"`
	Theme      *string          `json:"theme,omitempty"`
	PageSize   *int             `json:"pageSize,omitempty"`
}

// ImportChunkRequest carries one slice of a bulk import.
type ImportChunkRequest struct {
	Action     string           `json:"action"`
	Products   []domain.Product `json:"products"`
	Reset      bool             `json:"reset"`
	Categories []string         `json:"categories,omitempty"`
	Theme      *string          `json:"theme,omitempty"`
	PageSize   *int             `json:"pageSize,omitempty"`
}

// StateResponse is the full snapshot returned by GET /api/state.
type StateResponse struct {
	Products   []domain.Product `json:"products"`
	Categories []string         `json:"categories"`
	Theme      string           `json:"theme"`
	PageSize   int              `json:"pageSize"`
	Version    int64            `json:"version"`
}

// Snapshot converts the response into a domain snapshot.
func (r *StateResponse) Snapshot() *domain.Snapshot {
	products := r.Products
	if products == nil {
		products = []domain.Product{}
	}
	categories := r.Categories
	if categories == nil {
		categories = []string{}
	}
	return &domain.Snapshot{
		Products:   products,
		Categories: categories,
		Theme:      domain.NormalizeTheme(r.Theme),
		PageSize:   domain.NormalizePageSize(r.PageSize),
		Version:    r.Version,
	}
}

// VersionResponse answers GET /api/state?versionOnly=true.
type VersionResponse struct {
	Version int64 `json:"version"`
}

// WriteResult is the part shared by every write response.
type WriteResult struct {
	OK         bool     `json:"ok"`
	Categories []string `json:"categories"`
	Theme      string   `json:"theme"`
	PageSize   int      `json:"pageSize"`
}

// PatchResponse answers action=patch. Version is a pointer so that a client can tell a
// missing value apart from zero.
type PatchResponse struct {
	WriteResult
	Version *int64 `json:"version,omitempty"`
}

type ImportChunkResponse struct {
	WriteResult
	Imported int   `json:"imported"`
	Version  int64 `json:"version"`
}

type ReplaceResponse struct {
	WriteResult
	Products int   `json:"products"`
	Version  int64 `json:"version"`
}

type PreviewResponse struct {
	WriteResult
	Products []domain.Product `json:"products"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ParseVersion reads a version field from a loosely typed body. Missing, negative or
// non-numeric values report ok=false.
func ParseVersion(v interface{}) (int64, bool) {
	if v == nil {
		return 0, false
	}
	n, err := cast.ToInt64E(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
