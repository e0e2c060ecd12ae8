package syncclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/shopsync/config"
	"github.com/talkincode/shopsync/internal/adminapi"
	"github.com/talkincode/shopsync/internal/app"
	"github.com/talkincode/shopsync/internal/backend/memstore"
	"github.com/talkincode/shopsync/internal/domain"
	"github.com/talkincode/shopsync/internal/webserver"
)

func startServer(t *testing.T, protect bool) string {
	t.Helper()
	adminapi.Init()
	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()
	cfg.Admin.ProtectWrites = protect
	application := app.NewApplication(&cfg)
	application.OverrideBackend(memstore.New())
	srv := httptest.NewServer(webserver.NewWebServer(&cfg, application).Echo())
	t.Cleanup(srv.Close)
	return srv.URL + "/api/state"
}

func TestHTTPRemoteRoundTrip(t *testing.T) {
	ctx := context.Background()
	endpoint := startServer(t, false)
	remote := NewHTTPRemote(endpoint, 5*time.Second, "")

	version, ok, err := remote.Version(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, version)

	writer := newEngine(t, remote, Options{})
	require.NoError(t, writer.Start(ctx))
	_, err = writer.Add(product(0, "Thai Tea", 45, "Drinks"))
	require.NoError(t, err)
	_, err = writer.Add(product(0, "Roti", 30, "Snacks"))
	require.NoError(t, err)
	require.NoError(t, writer.SetTheme("mint"))
	require.NoError(t, writer.Apply(ctx))
	assert.Equal(t, int64(1), writer.Version())

	reader := newEngine(t, NewHTTPRemote(endpoint, 5*time.Second, ""), Options{})
	require.NoError(t, reader.Refresh(ctx))
	snap := reader.Snapshot()
	assert.Equal(t, int64(1), snap.Version)
	assert.Equal(t, []int64{1, 2}, domain.ProductIDs(snap.Products))
	assert.Equal(t, "thai-tea", snap.Products[0].Slug)
	assert.Equal(t, []string{"Drinks", "Snacks"}, snap.Categories)
	assert.Equal(t, "mint", snap.Theme)
	assert.False(t, snap.Products[0].CreatedAt.IsZero())

	require.NoError(t, writer.Remove(2))
	require.NoError(t, writer.Apply(ctx))
	require.NoError(t, reader.Poll(ctx))
	snap = reader.Snapshot()
	assert.Equal(t, int64(2), snap.Version)
	assert.Equal(t, []int64{1}, domain.ProductIDs(snap.Products))
	assert.Equal(t, []string{"Drinks", "Snacks"}, snap.Categories)
}

func TestHTTPRemoteKeepsEmptyCategory(t *testing.T) {
	ctx := context.Background()
	endpoint := startServer(t, false)
	e := newEngine(t, NewHTTPRemote(endpoint, 5*time.Second, ""), Options{})
	require.NoError(t, e.Start(ctx))

	_, err := e.Add(product(0, "Tea", 40, "Drinks"))
	require.NoError(t, err)
	require.NoError(t, e.AddCategory("Bakery"))
	require.NoError(t, e.Apply(ctx))
	require.Equal(t, []string{"Bakery", "Drinks"}, e.Snapshot().Categories)

	tea := e.Snapshot().Products[0]
	tea.Price = 45
	_, err = e.Update(tea)
	require.NoError(t, err)
	require.NoError(t, e.Apply(ctx))
	assert.Contains(t, e.Snapshot().Categories, "Bakery")

	server, err := NewHTTPRemote(endpoint, 5*time.Second, "").State(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bakery", "Drinks"}, server.Categories)
	assert.Equal(t, 45.0, server.Products[0].Price)
}

func TestHTTPRemoteImport(t *testing.T) {
	ctx := context.Background()
	remote := NewHTTPRemote(startServer(t, false), 5*time.Second, "")
	e := newEngine(t, remote, Options{ChunkSize: 2})

	csv := "id,name,price,unit,category,images\n" +
		"1,Latte,55,cup,Drinks,a.jpg | b.jpg\n" +
		"2,Mocha,60,cup,Drinks,\n" +
		"3,Brownie,45,piece,Bakery,\n"
	report, err := e.ImportCSV(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Imported)
	assert.Equal(t, int64(2), report.Version)

	state, err := remote.State(ctx)
	require.NoError(t, err)
	assert.Len(t, state.Products, 3)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, state.Products[0].Images)
	assert.Equal(t, []string{"Bakery", "Drinks"}, state.Categories)
}

func TestHTTPRemoteProtectedWrites(t *testing.T) {
	ctx := context.Background()
	remote := NewHTTPRemote(startServer(t, true), 5*time.Second, "")
	e := newEngine(t, remote, Options{})
	require.NoError(t, e.Refresh(ctx))
	_, err := e.Add(product(0, "Tea", 40, "Drinks"))
	require.NoError(t, err)

	err = e.Apply(ctx)
	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr), "%v", err)
	assert.Equal(t, http.StatusUnauthorized, remoteErr.Status)
	assert.Equal(t, "unauthorized", remoteErr.Code)
	assert.True(t, e.Pending())

	assert.Error(t, remote.Login(ctx, "admin", "wrong"))
	require.NoError(t, remote.Login(ctx, "admin", "shopsync"))
	require.NoError(t, e.Apply(ctx))
	assert.Equal(t, int64(1), e.Version())
	assert.False(t, e.Pending())
}

func TestHTTPRemoteUnreachable(t *testing.T) {
	remote := NewHTTPRemote("http://127.0.0.1:1/api/state", time.Second, "")
	_, _, err := remote.Version(context.Background())
	assert.Error(t, err)
}
