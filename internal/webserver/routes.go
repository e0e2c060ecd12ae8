package webserver

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
)

// ApiPrefix is the mount point of every route registered through this package.
const ApiPrefix = "/api"

// Route is a handler registered before the server is built.
type Route struct {
	Method      string
	Path        string
	Handler     echo.HandlerFunc
	Middlewares []echo.MiddlewareFunc
}

var (
	routesMu sync.Mutex
	routes   []Route
)

func ApiAdd(method, path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	routesMu.Lock()
	defer routesMu.Unlock()
	routes = append(routes, Route{Method: method, Path: path, Handler: h, Middlewares: m})
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	ApiAdd(http.MethodGet, path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	ApiAdd(http.MethodPost, path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	ApiAdd(http.MethodPut, path, h, m...)
}

func ApiPATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	ApiAdd(http.MethodPatch, path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	ApiAdd(http.MethodDelete, path, h, m...)
}

// Routes returns a copy of the registry.
func Routes() []Route {
	routesMu.Lock()
	defer routesMu.Unlock()
	return append([]Route(nil), routes...)
}
