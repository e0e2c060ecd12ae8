package adminapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/shopsync/internal/catalog"
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportState downloads the catalog as csv (default) or xlsx.
func exportState(c echo.Context) error {
	snap, err := GetAppContext(c).Store().Load(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "failed to load state", err.Error())
	}

	format := strings.ToLower(strings.TrimSpace(c.QueryParam("format")))
	if format == "" {
		format = "csv"
	}
	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case "csv":
		err = catalog.WriteCSV(&buf, snap.Products)
		contentType = "text/csv; charset=utf-8"
	case "xlsx":
		err = catalog.WriteXLSX(&buf, snap.Products)
		contentType = xlsxMime
	default:
		return fail(c, http.StatusBadRequest, "unsupported format", format)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "failed to export state", err.Error())
	}

	filename := fmt.Sprintf("products-v%d-%s.%s", snap.Version, time.Now().Format("20060102"), format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}
