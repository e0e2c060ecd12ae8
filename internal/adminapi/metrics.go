package adminapi

import (
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/talkincode/shopsync/internal/webserver"
	"github.com/talkincode/shopsync/pkg/metrics"
)

var metricName = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

func registerMetricsRoutes() {
	webserver.ApiGET("/metrics/:name", getMetric)
}

// getMetric lists the samples of one metric over the last ?minutes (default 60).
func getMetric(c echo.Context) error {
	name := c.Param("name")
	if !metricName.MatchString(name) {
		return fail(c, http.StatusBadRequest, "invalid metric name", name)
	}
	minutes := cast.ToInt(c.QueryParam("minutes"))
	if minutes <= 0 || minutes > 7*24*60 {
		minutes = 60
	}
	end := time.Now()
	points, err := metrics.Query(name, end.Add(-time.Duration(minutes)*time.Minute), end)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "failed to query metric", err.Error())
	}
	return ok(c, map[string]interface{}{
		"name":   name,
		"points": points,
	})
}
