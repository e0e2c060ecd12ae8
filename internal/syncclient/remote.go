package syncclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/guonaihong/gout"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/talkincode/shopsync/internal/domain"
	"github.com/talkincode/shopsync/internal/protocol"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RemoteError is a non-2xx answer of the state endpoint.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Code)
}

// HTTPRemote talks to /api/state over HTTP.
type HTTPRemote struct {
	endpoint string
	client   *http.Client

	mu    sync.RWMutex
	token string
}

var _ Remote = (*HTTPRemote)(nil)

// NewHTTPRemote returns a remote for endpoint, the full URL of the state resource
// (for example http://127.0.0.1:1816/api/state). token may be empty.
func NewHTTPRemote(endpoint string, timeout time.Duration, token string) *HTTPRemote {
	return &HTTPRemote{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		token:    token,
	}
}

func (r *HTTPRemote) Endpoint() string {
	return r.endpoint
}

// Login exchanges admin credentials for a bearer token used by later writes.
func (r *HTTPRemote) Login(ctx context.Context, username, password string) error {
	var (
		raw  []byte
		code int
	)
	loginURL := strings.TrimSuffix(r.endpoint, "/state") + "/login"
	err := gout.New(r.client).
		POST(loginURL).
		WithContext(ctx).
		SetJSON(gout.H{"username": username, "password": password}).
		BindBody(&raw).
		Code(&code).
		Do()
	if err != nil {
		return errors.Wrap(err, "login request")
	}
	var res struct {
		Token string `json:"token"`
	}
	if err := decodeResponse(code, raw, &res); err != nil {
		return err
	}
	r.mu.Lock()
	r.token = res.Token
	r.mu.Unlock()
	return nil
}

func (r *HTTPRemote) Version(ctx context.Context) (int64, bool, error) {
	var (
		raw  []byte
		code int
	)
	err := gout.New(r.client).
		GET(r.endpoint).
		WithContext(ctx).
		SetQuery(gout.H{"versionOnly": "true"}).
		SetHeader(r.headers()).
		BindBody(&raw).
		Code(&code).
		Do()
	if err != nil {
		return 0, false, errors.Wrap(err, "version request")
	}
	var res map[string]interface{}
	if err := decodeResponse(code, raw, &res); err != nil {
		return 0, false, err
	}
	version, ok := protocol.ParseVersion(res["version"])
	return version, ok, nil
}

func (r *HTTPRemote) State(ctx context.Context) (*domain.Snapshot, error) {
	var (
		raw  []byte
		code int
	)
	err := gout.New(r.client).
		GET(r.endpoint).
		WithContext(ctx).
		SetHeader(r.headers()).
		BindBody(&raw).
		Code(&code).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, "state request")
	}
	var res protocol.StateResponse
	if err := decodeResponse(code, raw, &res); err != nil {
		return nil, err
	}
	return res.Snapshot(), nil
}

func (r *HTTPRemote) Patch(ctx context.Context, req protocol.PatchRequest) (*protocol.PatchResponse, error) {
	var res protocol.PatchResponse
	if err := r.post(ctx, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *HTTPRemote) ImportChunk(ctx context.Context, req protocol.ImportChunkRequest) (*protocol.ImportChunkResponse, error) {
	var res protocol.ImportChunkResponse
	if err := r.post(ctx, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *HTTPRemote) post(ctx context.Context, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	var (
		raw  []byte
		code int
	)
	err = gout.New(r.client).
		POST(r.endpoint).
		WithContext(ctx).
		SetHeader(r.headers()).
		SetJSON(string(payload)).
		BindBody(&raw).
		Code(&code).
		Do()
	if err != nil {
		return errors.Wrap(err, "post state")
	}
	return decodeResponse(code, raw, out)
}

func (r *HTTPRemote) headers() gout.H {
	h := gout.H{"Accept": "application/json"}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.token != "" {
		h["Authorization"] = "Bearer " + r.token
	}
	return h
}

func decodeResponse(code int, raw []byte, out interface{}) error {
	if code < 200 || code >= 300 {
		var er protocol.ErrorResponse
		if err := json.Unmarshal(raw, &er); err != nil || er.Error == "" {
			er.Error = strings.ToLower(http.StatusText(code))
		}
		return &RemoteError{Status: code, Code: er.Error, Message: er.Message}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
