package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	AuthorizationHeader = "Authorization"
	bearer              = "Bearer "

	userContextKey = "auth-user"
)

type Config struct {
	Key string `envconfig:"JWT_SECRET" default:"secret"`
}

// Claims carries the authenticated caller identity issued by the identity
// provider. The service trusts these claims once the signature verifies.
type Claims struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type User struct {
	ID   int64
	Role string
}

// Middleware parses the bearer token and stores the caller in the echo context.
func Middleware(cfg Config) echo.MiddlewareFunc {
	key := []byte(cfg.Key)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authorization := c.Request().Header.Get(AuthorizationHeader)
			if authorization == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "No Authorization Header")
			}
			if !strings.HasPrefix(authorization, bearer) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization Header")
			}
			tokenStr := strings.TrimPrefix(authorization, bearer)
			claims := new(Claims)

			token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
				return key, nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "JwtAccessDenied")
			}
			if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
				return echo.NewHTTPError(http.StatusUnauthorized, "TokenExpired")
			}

			SetUser(c, User{ID: claims.UserID, Role: claims.Role})
			return next(c)
		}
	}
}

// SetUser stores the caller on the request scope.
func SetUser(c echo.Context, u User) {
	c.Set(userContextKey, u)
}

// GetUser returns the authenticated caller set by Middleware.
func GetUser(c echo.Context) (User, error) {
	u, ok := c.Get(userContextKey).(User)
	if !ok {
		return User{}, echo.NewHTTPError(http.StatusUnauthorized, "no authenticated user")
	}
	return u, nil
}
