package adminapi

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/shopsync/internal/app"
	"github.com/talkincode/shopsync/internal/protocol"
	"github.com/talkincode/shopsync/internal/webserver"
)

var initOnce sync.Once

// Init registers every admin and storefront route with the webserver registry.
func Init() {
	initOnce.Do(func() {
		registerStateRoutes()
		registerProductRoutes()
		registerAuthRoutes()
		registerMetricsRoutes()
	})
}

// GetAppContext returns the application context injected by the webserver.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func fail(c echo.Context, status int, errText, message string) error {
	return c.JSON(status, protocol.ErrorResponse{Error: errText, Message: message})
}

func methodNotAllowed(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderAllow, "GET, POST")
	return c.JSON(http.StatusMethodNotAllowed, protocol.ErrorResponse{Error: "method not allowed"})
}
