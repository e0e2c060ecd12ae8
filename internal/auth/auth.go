// Package auth guards catalog writes with an admin session cookie or a bearer token.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo-contrib/session"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/talkincode/shopsync/config"
	"golang.org/x/crypto/bcrypt"
)

const (
	SessionName  = "shopsync_session"
	sessionUser  = "username"
	tokenIssuer  = "shopsync"
	userCtxKey   = "admin_user"
	bearerPrefix = "Bearer "
)

var ErrBadCredentials = errors.New("invalid username or password")

// CheckPassword verifies username and password against the admin account. The
// configured password may be a bcrypt hash or plain text.
func CheckPassword(cfg config.AdminConfig, username, password string) bool {
	if username == "" || subtle.ConstantTimeCompare([]byte(username), []byte(cfg.Username)) != 1 {
		return false
	}
	if strings.HasPrefix(cfg.Password, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(cfg.Password), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) == 1
}

// HashPassword returns a bcrypt hash suitable for admin.password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// IssueToken signs an HS256 token for username valid for ttl.
func IssueToken(secret, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Login stores username in the session cookie.
func Login(c echo.Context, username string, ttl time.Duration) error {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return err
	}
	sess.Options.Path = "/"
	sess.Options.HttpOnly = true
	sess.Options.MaxAge = int(ttl.Seconds())
	sess.Values[sessionUser] = username
	return sess.Save(c.Request(), c.Response())
}

// Logout expires the session cookie.
func Logout(c echo.Context) error {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return err
	}
	sess.Options.Path = "/"
	sess.Options.MaxAge = -1
	delete(sess.Values, sessionUser)
	return sess.Save(c.Request(), c.Response())
}

// SessionUser returns the username of the current session, if any.
func SessionUser(c echo.Context) (string, bool) {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return "", false
	}
	name, ok := sess.Values[sessionUser].(string)
	return name, ok && name != ""
}

// CurrentUser returns the admin authenticated by Guard for this request.
func CurrentUser(c echo.Context) string {
	if name, ok := c.Get(userCtxKey).(string); ok {
		return name
	}
	return ""
}

var bearerGuards sync.Map // secret -> echo.MiddlewareFunc

func bearerGuard(secret string) echo.MiddlewareFunc {
	if mw, ok := bearerGuards.Load(secret); ok {
		return mw.(echo.MiddlewareFunc)
	}
	mw := echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(jwt.RegisteredClaims)
		},
		SuccessHandler: func(c echo.Context) {
			if token, ok := c.Get("user").(*jwt.Token); ok {
				if claims, ok := token.Claims.(*jwt.RegisteredClaims); ok {
					c.Set(userCtxKey, claims.Subject)
				}
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error":   "unauthorized",
				"message": "admin session or bearer token required",
			})
		},
	})
	actual, _ := bearerGuards.LoadOrStore(secret, mw)
	return actual.(echo.MiddlewareFunc)
}

// Guard admits requests carrying an admin session cookie or a valid bearer token.
func Guard(secret string) echo.MiddlewareFunc {
	bearer := bearerGuard(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withToken := bearer(next)
		return func(c echo.Context) error {
			if name, ok := SessionUser(c); ok {
				c.Set(userCtxKey, name)
				return next(c)
			}
			return withToken(c)
		}
	}
}
