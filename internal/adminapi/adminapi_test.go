package adminapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/shopsync/config"
	"github.com/talkincode/shopsync/internal/app"
	"github.com/talkincode/shopsync/internal/auth"
	"github.com/talkincode/shopsync/internal/backend"
	"github.com/talkincode/shopsync/internal/backend/memstore"
	"github.com/talkincode/shopsync/internal/domain"
	"github.com/talkincode/shopsync/internal/protocol"
	"github.com/talkincode/shopsync/internal/webserver"
)

type brokenUpserts struct {
	*memstore.Store
}

func (brokenUpserts) UpsertProducts(context.Context, []domain.Product) error {
	return errors.New("disk full")
}

type testServer struct {
	handler http.Handler
	app     *app.Application
	cfg     *config.AppConfig
}

func newServer(t *testing.T, b backend.Backend, tune func(*config.AppConfig)) *testServer {
	Init()
	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()
	if tune != nil {
		tune(&cfg)
	}
	if b == nil {
		b = memstore.New()
	}
	application := app.NewApplication(&cfg)
	application.OverrideBackend(b)
	ws := webserver.NewWebServer(&cfg, application)
	return &testServer{handler: ws.Echo(), app: application, cfg: &cfg}
}

func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

const seedBody = `{"products":[
	{"id":1,"name":"Thai Tea","price":"45","unit":"cup","category":"Drinks","images":"a.jpg | b.jpg"},
	{"id":2,"name":"Roti","price":30,"unit":"piece","category":"Snacks"}
],"theme":"noir","pageSize":12}`

func TestGetStateEmpty(t *testing.T) {
	s := newServer(t, nil, nil)
	rec := s.do(http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res protocol.StateResponse
	decode(t, rec, &res)
	assert.Empty(t, res.Products)
	assert.Equal(t, domain.DefaultTheme, res.Theme)
	assert.Equal(t, domain.DefaultPageSize, res.PageSize)
	assert.Zero(t, res.Version)
	assert.Contains(t, rec.Body.String(), `"products":[]`)
}

func TestReplaceThenRead(t *testing.T) {
	s := newServer(t, nil, nil)
	rec := s.do(http.MethodPost, "/api/state", seedBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res protocol.ReplaceResponse
	decode(t, rec, &res)
	assert.True(t, res.OK)
	assert.Equal(t, 2, res.Products)
	assert.Equal(t, int64(1), res.Version)
	assert.Equal(t, []string{"Drinks", "Snacks"}, res.Categories)
	assert.Equal(t, "noir", res.Theme)
	assert.Equal(t, 12, res.PageSize)

	rec = s.do(http.MethodGet, "/api/state?versionOnly=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"version":1}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/state", "")
	var state protocol.StateResponse
	decode(t, rec, &state)
	require.Len(t, state.Products, 2)
	assert.Equal(t, 45.0, state.Products[0].Price)
	assert.Equal(t, "thai-tea", state.Products[0].Slug)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, state.Products[0].Images)
	assert.Equal(t, "a.jpg", state.Products[0].Image)
}

func TestPatch(t *testing.T) {
	s := newServer(t, nil, nil)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/state", seedBody).Code)

	rec := s.do(http.MethodPost, "/api/state", `{"action":"patch",
		"upserts":[{"id":3,"name":"Mango","price":80,"unit":"box","category":"Desserts"}],
		"deleteIds":[2,"x"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res protocol.PatchResponse
	decode(t, rec, &res)
	require.NotNil(t, res.Version)
	assert.Equal(t, int64(2), *res.Version)
	assert.Equal(t, []string{"Desserts", "Drinks"}, res.Categories)
	assert.Equal(t, "noir", res.Theme)

	// products is accepted when upserts is absent
	rec = s.do(http.MethodPost, "/api/state", `{"action":"patch",
		"products":[{"id":1,"name":"Thai Tea","price":50,"unit":"cup","category":"Drinks"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	snap, err := s.app.Store().Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, domain.ProductIDs(snap.Products))
	assert.Equal(t, 50.0, snap.Products[0].Price)
	assert.Equal(t, int64(3), snap.Version)
}

func TestImportChunks(t *testing.T) {
	s := newServer(t, nil, nil)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/state", seedBody).Code)

	rec := s.do(http.MethodPost, "/api/state", `{"action":"importChunk","reset":true,
		"products":[{"id":10,"name":"A","price":1,"unit":"pc","category":"X"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res protocol.ImportChunkResponse
	decode(t, rec, &res)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, int64(2), res.Version)

	rec = s.do(http.MethodPost, "/api/state", `{"action":"importChunk",
		"products":[{"id":11,"name":"B","price":2,"unit":"pc","category":"Y"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	snap, err := s.app.Store().Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, domain.ProductIDs(snap.Products))
	assert.Equal(t, []string{"X", "Y"}, snap.Categories)
}

func TestPreviewDoesNotWrite(t *testing.T) {
	s := newServer(t, nil, nil)
	csv := "id,name,price,unit,category\n1,Latte,55,cup,Drinks\n2,\"Cake, slice\",60,piece,Bakery\n"
	body, err := json.Marshal(map[string]interface{}{"action": "preview", "csv": csv})
	require.NoError(t, err)

	rec := s.do(http.MethodPost, "/api/state", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res protocol.PreviewResponse
	decode(t, rec, &res)
	require.Len(t, res.Products, 2)
	assert.Equal(t, "Cake, slice", res.Products[1].Name)
	assert.Equal(t, []string{"Bakery", "Drinks"}, res.Categories)

	version, err := s.app.Store().Version(context.Background())
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestUnknownActionRejected(t *testing.T) {
	s := newServer(t, nil, nil)
	rec := s.do(http.MethodPost, "/api/state", `{"action":"wipe"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"unknown action","message":"wipe"}`, rec.Body.String())
}

func TestMalformedBodyIsEmptyReplace(t *testing.T) {
	s := newServer(t, nil, nil)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/state", seedBody).Code)

	rec := s.do(http.MethodPost, "/api/state", `{not json`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res protocol.ReplaceResponse
	decode(t, rec, &res)
	assert.Zero(t, res.Products)
	assert.Equal(t, int64(2), res.Version)
	// stored settings survive a body that does not mention them
	assert.Equal(t, "noir", res.Theme)
}

func TestOtherMethodsNotAllowed(t *testing.T) {
	s := newServer(t, nil, nil)
	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		rec := s.do(method, "/api/state", "{}")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
		assert.JSONEq(t, `{"error":"method not allowed"}`, rec.Body.String())
	}
}

func TestBackendFailure(t *testing.T) {
	s := newServer(t, brokenUpserts{memstore.New()}, nil)
	rec := s.do(http.MethodPost, "/api/state", seedBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var res protocol.ErrorResponse
	decode(t, rec, &res)
	assert.Equal(t, "failed to save state", res.Error)
	assert.Contains(t, res.Message, "disk full")

	version, err := s.app.Store().Version(context.Background())
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestProtectedWrites(t *testing.T) {
	s := newServer(t, nil, func(cfg *config.AppConfig) {
		cfg.Admin.ProtectWrites = true
	})

	rec := s.do(http.MethodPost, "/api/state", seedBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// reads stay public
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/state", "").Code)

	rec = s.do(http.MethodPost, "/api/login", `{"username":"admin","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/login", `{"username":"admin","password":"shopsync"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	decode(t, rec, &login)
	assert.Equal(t, "admin", login.Username)
	require.NotEmpty(t, login.Token)
	cookie := rec.Header().Get("Set-Cookie")
	require.True(t, strings.HasPrefix(cookie, auth.SessionName+"="))

	rec = s.do(http.MethodPost, "/api/state", seedBody, "Authorization", "Bearer "+login.Token)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sessionCookie := strings.SplitN(cookie, ";", 2)[0]
	rec = s.do(http.MethodPost, "/api/state", seedBody, "Cookie", sessionCookie)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/session", "", "Cookie", sessionCookie)
	assert.JSONEq(t, `{"authenticated":true,"username":"admin","protectWrites":true}`, rec.Body.String())
}

func TestSessionAnonymous(t *testing.T) {
	s := newServer(t, nil, nil)
	rec := s.do(http.MethodGet, "/api/session", "")
	assert.JSONEq(t, `{"authenticated":false,"username":"","protectWrites":false}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/logout", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExport(t *testing.T) {
	s := newServer(t, nil, nil)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/state", seedBody).Code)

	rec := s.do(http.MethodGet, "/api/state/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "products-v1-")
	assert.Contains(t, rec.Body.String(), "Thai Tea")

	rec = s.do(http.MethodGet, "/api/state/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxMime, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = s.do(http.MethodGet, "/api/state/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummary(t *testing.T) {
	s := newServer(t, nil, nil)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/state", seedBody).Code)

	rec := s.do(http.MethodGet, "/api/state/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res catalogSummary
	decode(t, rec, &res)
	assert.Equal(t, 2, res.Products)
	assert.Equal(t, 30.0, res.Price.Min)
	assert.Equal(t, 45.0, res.Price.Max)
	assert.Equal(t, 37.5, res.Price.Mean)
	require.Len(t, res.Categories, 2)
	assert.Equal(t, "Drinks", res.Categories[0].Category)
	assert.Equal(t, 1, res.Categories[0].Count)
}

func TestSummarizeOrder(t *testing.T) {
	snap := &domain.Snapshot{
		Products: []domain.Product{
			{ID: 1, Category: "Snacks", Price: 10},
			{ID: 2, Category: "Snacks", Price: 20},
			{ID: 3, Category: "Bakery", Price: 40},
		},
		Categories: []string{"Snacks", "Drinks"},
		Version:    4,
	}
	res := summarize(snap)
	require.Len(t, res.Categories, 3)
	assert.Equal(t, "Snacks", res.Categories[0].Category)
	assert.Equal(t, 15.0, res.Categories[0].Price.Median)
	assert.Equal(t, "Drinks", res.Categories[1].Category)
	assert.Zero(t, res.Categories[1].Count)
	assert.Equal(t, "Bakery", res.Categories[2].Category)
	assert.Equal(t, int64(4), res.Version)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t, nil, nil)
	rec := s.do(http.MethodGet, "/api/metrics/catalog_version?minutes=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"catalog_version","points":[]}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/metrics/Bad-Name", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListProducts(t *testing.T) {
	s := newServer(t, nil, nil)
	body := `{"products":[
		{"id":1,"name":"Thai Tea","price":45,"unit":"cup","category":"Drinks","description":"sweet"},
		{"id":2,"name":"Roti","price":30,"unit":"piece","category":"Snacks"},
		{"id":3,"name":"Latte","price":55,"unit":"cup","category":"Drinks"},
		{"id":4,"name":"Mango","price":80,"unit":"box","category":"Desserts","description":"Sweet mango"}
	],"pageSize":6}`
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/state", body).Code)

	var res pagedResult
	rec := s.do(http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &res)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 6, res.PageSize)
	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, []int64{4, 3, 2, 1}, domain.ProductIDs(res.Data))

	rec = s.do(http.MethodGet, "/api/products?category=Drinks&sort=price-desc", "")
	decode(t, rec, &res)
	assert.Equal(t, []int64{3, 1}, domain.ProductIDs(res.Data))

	rec = s.do(http.MethodGet, "/api/products?q=SWEET&sort=price-asc", "")
	decode(t, rec, &res)
	assert.Equal(t, []int64{1, 4}, domain.ProductIDs(res.Data))

	rec = s.do(http.MethodGet, "/api/products?sort=name&perPage=3&page=9", "")
	decode(t, rec, &res)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 2, res.TotalPages)
	assert.Equal(t, []int64{1}, domain.ProductIDs(res.Data))

	rec = s.do(http.MethodGet, "/api/products/roti", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":2`)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/products/3", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/products/99", "").Code)
}
