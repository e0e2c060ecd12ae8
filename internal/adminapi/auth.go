package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/shopsync/internal/auth"
	"github.com/talkincode/shopsync/internal/webserver"
	"go.uber.org/zap"
)

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func registerAuthRoutes() {
	webserver.ApiPOST("/login", postLogin)
	webserver.ApiPOST("/logout", postLogout)
	webserver.ApiGET("/session", getSession)
}

func postLogin(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request", err.Error())
	}
	cfg := GetAppContext(c).Config()
	username := strings.TrimSpace(payload.Username)
	if !auth.CheckPassword(cfg.Admin, username, payload.Password) {
		zap.L().Warn("admin login rejected", zap.String("namespace", "adminapi"), zap.String("username", username))
		return fail(c, http.StatusUnauthorized, "unauthorized", auth.ErrBadCredentials.Error())
	}

	ttl := time.Duration(cfg.Admin.TokenTTL) * time.Second
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if err := auth.Login(c, username, ttl); err != nil {
		return fail(c, http.StatusInternalServerError, "failed to create session", err.Error())
	}
	token, err := auth.IssueToken(cfg.Web.Secret, username, ttl)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "failed to issue token", err.Error())
	}
	zap.L().Info("admin logged in", zap.String("namespace", "adminapi"), zap.String("username", username))
	return ok(c, map[string]interface{}{
		"ok":        true,
		"username":  username,
		"token":     token,
		"expiresAt": time.Now().Add(ttl).Unix(),
	})
}

func postLogout(c echo.Context) error {
	if err := auth.Logout(c); err != nil {
		return fail(c, http.StatusInternalServerError, "failed to end session", err.Error())
	}
	return ok(c, map[string]interface{}{"ok": true})
}

func getSession(c echo.Context) error {
	username, authenticated := auth.SessionUser(c)
	return ok(c, map[string]interface{}{
		"authenticated": authenticated,
		"username":      username,
		"protectWrites": GetAppContext(c).Config().Admin.ProtectWrites,
	})
}
