package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/internal/entities"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/service"
	"crm-system/pkg/utils"
)

// UserProvider resolves the authenticated user behind a token.
type UserProvider interface {
	GetAuthUser(ctx context.Context, userID uint64) (*entities.User, error)
}

type AuthMiddleware struct {
	jwtService service.JWTService
	users      UserProvider
	logger     *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, users UserProvider, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtSvc,
		users:      users,
		logger:     logger,
	}
}

func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return utils.ErrorResponse(c, apperrors.ErrEmptyAuthHeader, m.logger)
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return utils.ErrorResponse(c, apperrors.ErrInvalidAuthHeader, m.logger)
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			m.logger.Debug("AuthMiddleware: token rejected", zap.Error(err))
			return utils.ErrorResponse(c, err, m.logger)
		}
		if claims.IsRefreshToken {
			return utils.ErrorResponse(c, apperrors.ErrTokenIsNotAccess, m.logger)
		}

		ctx := c.Request().Context()
		user, err := m.users.GetAuthUser(ctx, claims.UserID)
		if err != nil {
			m.logger.Warn("AuthMiddleware: user lookup failed", zap.Uint64("userID", claims.UserID), zap.Error(err))
			return utils.ErrorResponse(c, apperrors.ErrUnauthorized, m.logger)
		}
		if !user.IsActive {
			return utils.ErrorResponse(c, apperrors.ErrUnauthorized, m.logger)
		}

		c.SetRequest(c.Request().WithContext(utils.WithUser(ctx, user)))
		return next(c)
	}
}

// RequireRole lets only the listed roles through. Must run after Auth.
func RequireRole(logger *zap.Logger, roles ...entities.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := utils.GetUserFromCtx(c.Request().Context())
			if err != nil {
				return utils.ErrorResponse(c, err, logger)
			}
			for _, r := range roles {
				if user.Role == r {
					return next(c)
				}
			}
			return utils.ErrorResponse(c, apperrors.ErrForbidden, logger)
		}
	}
}
