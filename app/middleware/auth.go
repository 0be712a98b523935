package middleware

import (
	"net/http"
	"strings"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
	"github.com/vibast-solutions/ms-go-accounts/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Context keys set by RequireAuth.
const (
	ContextAccountID    = "account_id"
	ContextAccountEmail = "account_email"
)

type accessTokenValidator interface {
	ValidateAccessToken(tokenString string) (*service.Claims, error)
}

type AuthMiddleware struct {
	tokens accessTokenValidator
}

func NewAuthMiddleware(tokens accessTokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString, ok := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			logrus.Debug("Missing or malformed authorization header")
			return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Detail: "Authentication credentials were not provided.",
			})
		}

		claims, err := m.tokens.ValidateAccessToken(tokenString)
		if err != nil {
			logrus.Debug("Invalid or expired access token")
			return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Detail: "Given token not valid for any token type",
			})
		}

		c.Set(ContextAccountID, claims.UserID)
		c.Set(ContextAccountEmail, claims.Email)

		return next(c)
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
