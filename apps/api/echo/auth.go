package echoapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/user"
)

const (
	contextUserKey  = "user"
	tokenCookieName = "token"
)

var (
	errNotAuthorized    = echo.NewHTTPError(http.StatusUnauthorized, "Not authorized to access this route")
	errTokenExpired     = echo.NewHTTPError(http.StatusUnauthorized, "Token expired")
	errInvalidToken     = echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, invalid token")
	errUserNotFound     = echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, user not found")
	errUsrNotFoundInCtx = errors.New("user object not found in echo.Context")
)

// authenticator guards routes with session tokens.
type authenticator struct {
	issuer       *auth.Issuer
	users        *user.Service
	secureCookie bool
}

func newAuthenticator(issuer *auth.Issuer, users *user.Service, secureCookie bool) *authenticator {
	return &authenticator{issuer: issuer, users: users, secureCookie: secureCookie}
}

// tokenFromRequest reads the bearer token, falling back to the token cookie.
func tokenFromRequest(ctx echo.Context) string {
	if h := ctx.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer") {
		if parts := strings.Fields(h); len(parts) == 2 {
			return parts[1]
		}
	}
	if c, err := ctx.Cookie(tokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

// Protect rejects requests without a valid token and puts the acting user in the context.
// The user is read from the store on every request.
func (a *authenticator) Protect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := tokenFromRequest(ctx)
			if token == "" {
				return errNotAuthorized
			}

			claims, err := a.issuer.Verify(token)
			if err != nil {
				if err == auth.ErrExpiredToken {
					return errTokenExpired
				}
				return errInvalidToken
			}

			usr, err := a.users.GetByID(ctx.Request().Context(), claims.UserID)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound || core.IsNotFound(err) {
					return errUserNotFound
				}
				return errors.Wrap(err, "finding user by ID")
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

// Authorize authenticates the request, then only lets users having one of roles through.
func (a *authenticator) Authorize(roles ...user.Role) echo.MiddlewareFunc {
	protect := a.Protect()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return protect(func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if !usr.HasAnyRole(roles...) {
				return echo.NewHTTPError(
					http.StatusForbidden,
					fmt.Sprintf("Role %s is not authorized to access this route", usr.Role()),
				)
			}
			return next(ctx)
		})
	}
}

// issueToken signs a token for usr and sets it as the token cookie.
func (a *authenticator) issueToken(ctx echo.Context, usr user.User) (string, error) {
	token, err := a.issuer.Issue(usr.ID, usr.Role().String())
	if err != nil {
		return "", errors.Wrap(err, "issuing token")
	}
	ctx.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(a.issuer.TTL()),
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func (a *authenticator) clearToken(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    "none",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookie,
	})
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUsrNotFoundInCtx
}
