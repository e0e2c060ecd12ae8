package adminapi

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/talkincode/shopsync/internal/auth"
	"github.com/talkincode/shopsync/internal/catalog"
	"github.com/talkincode/shopsync/internal/domain"
	"github.com/talkincode/shopsync/internal/protocol"
	"github.com/talkincode/shopsync/internal/snapshot"
	"github.com/talkincode/shopsync/internal/webserver"
	"github.com/talkincode/shopsync/pkg/metrics"
	"go.uber.org/zap"
)

func registerStateRoutes() {
	webserver.ApiGET("/state", getState)
	webserver.ApiPOST("/state", postState, protectWrites)
	webserver.ApiPUT("/state", methodNotAllowed)
	webserver.ApiPATCH("/state", methodNotAllowed)
	webserver.ApiDELETE("/state", methodNotAllowed)
	webserver.ApiGET("/state/export", exportState)
	webserver.ApiGET("/state/summary", getSummary)
}

// protectWrites requires an admin session or bearer token when admin.protect_writes
// is on.
func protectWrites(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cfg := GetAppContext(c).Config()
		if !cfg.Admin.ProtectWrites {
			return next(c)
		}
		return auth.Guard(cfg.Web.Secret)(next)(c)
	}
}

func getState(c echo.Context) error {
	store := GetAppContext(c).Store()
	ctx := c.Request().Context()

	if cast.ToBool(c.QueryParam("versionOnly")) {
		version, err := store.Version(ctx)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "failed to read version", err.Error())
		}
		return ok(c, protocol.VersionResponse{Version: version})
	}

	snap, err := store.Load(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "failed to load state", err.Error())
	}
	return ok(c, protocol.StateResponse{
		Products:   snap.Products,
		Categories: snap.Categories,
		Theme:      snap.Theme,
		PageSize:   snap.PageSize,
		Version:    snap.Version,
	})
}

func postState(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.Observe("api_state_write_ms", time.Since(start)) }()

	req := decodeStateRequest(c)
	store := GetAppContext(c).Store()
	ctx := c.Request().Context()
	settings := settingsOf(req)

	switch req.Action {
	case protocol.ActionPatch:
		raws := req.Upserts
		if raws == nil {
			raws = req.Products
		}
		upserts, skipped := catalog.NormalizeList(raws)
		res, err := store.Patch(ctx, upserts, parseIDs(req.DeleteIDs), settings)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "failed to patch state", err.Error())
		}
		if skipped > 0 {
			zap.L().Warn("patch dropped invalid products", zap.String("namespace", "adminapi"), zap.Int("skipped", skipped))
		}
		version := res.Version
		return ok(c, protocol.PatchResponse{WriteResult: writeResult(res), Version: &version})

	case protocol.ActionImportChunk:
		products, _ := catalog.NormalizeList(req.Products)
		res, err := store.ImportChunk(ctx, products, req.Reset, settings)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "failed to import chunk", err.Error())
		}
		return ok(c, protocol.ImportChunkResponse{
			WriteResult: writeResult(&res.WriteResult),
			Imported:    res.Imported,
			Version:     res.Version,
		})

	case protocol.ActionPreview:
		products := productsOf(req)
		snap := store.Preview(products, settings)
		return ok(c, protocol.PreviewResponse{
			WriteResult: protocol.WriteResult{OK: true, Categories: snap.Categories, Theme: snap.Theme, PageSize: snap.PageSize},
			Products:    snap.Products,
		})

	case protocol.ActionReplace:
		products := productsOf(req)
		res, err := store.Replace(ctx, products, settings)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "failed to save state", err.Error())
		}
		return ok(c, protocol.ReplaceResponse{
			WriteResult: writeResult(res),
			Products:    len(products),
			Version:     res.Version,
		})

	default:
		return fail(c, http.StatusBadRequest, "unknown action", req.Action)
	}
}

// decodeStateRequest reads the body leniently: a missing or malformed body is an
// empty request.
func decodeStateRequest(c echo.Context) protocol.StateRequest {
	var req protocol.StateRequest
	body, err := io.ReadAll(c.Request().Body)
	if err != nil || len(strings.TrimSpace(string(body))) == 0 {
		return req
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		zap.L().Debug("ignoring malformed state body", zap.String("namespace", "adminapi"), zap.Error(err))
		return req
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &req,
	})
	if err != nil {
		return req
	}
	if err := decoder.Decode(raw); err != nil {
		zap.L().Debug("state body partially decoded", zap.String("namespace", "adminapi"), zap.Error(err))
	}
	return req
}

func settingsOf(req protocol.StateRequest) snapshot.Settings {
	s := snapshot.Settings{Categories: req.Categories, Theme: req.Theme}
	if req.PageSize != nil {
		size := domain.NormalizePageSize(req.PageSize)
		s.PageSize = &size
	}
	return s
}

// productsOf prefers the csv field when it yields at least one product.
func productsOf(req protocol.StateRequest) []domain.Product {
	if strings.TrimSpace(req.CSV) != "" {
		raws, err := catalog.ParseCSVString(req.CSV)
		if err != nil {
			zap.L().Warn("csv payload rejected", zap.String("namespace", "adminapi"), zap.Error(err))
		} else if products, _ := catalog.NormalizeList(raws); len(products) > 0 {
			return products
		}
	}
	products, _ := catalog.NormalizeList(req.Products)
	return products
}

func parseIDs(values []interface{}) []int64 {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := cast.ToInt64E(v)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func writeResult(res *snapshot.WriteResult) protocol.WriteResult {
	return protocol.WriteResult{
		OK:         true,
		Categories: res.Categories,
		Theme:      res.Theme,
		PageSize:   res.PageSize,
	}
}
