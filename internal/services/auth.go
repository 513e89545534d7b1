package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/pkg/config"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/metrics"
	"crm-system/pkg/service"
	"crm-system/pkg/utils"
)

const (
	loginAttemptsKeyPrefix = "login_attempts:"
	authUserKeyPrefix      = "auth_user:"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, d dto.LoginDTO) (*dto.AuthResponseDTO, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponseDTO, error)
	GetAuthUser(ctx context.Context, userID uint64) (*entities.User, error)
	InvalidateUser(ctx context.Context, userID uint64)
}

type AuthService struct {
	userRepo   repositories.UserRepositoryInterface
	cache      repositories.CacheRepositoryInterface
	jwtService service.JWTService
	cfg        config.AuthConfig
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewAuthService(
	userRepo repositories.UserRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	jwtService service.JWTService,
	cfg config.AuthConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) AuthServiceInterface {
	return &AuthService{
		userRepo:   userRepo,
		cache:      cache,
		jwtService: jwtService,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
	}
}

func (s *AuthService) Login(ctx context.Context, d dto.LoginDTO) (*dto.AuthResponseDTO, error) {
	email := strings.ToLower(strings.TrimSpace(d.Email))
	attemptsKey := loginAttemptsKeyPrefix + email

	if s.isLocked(ctx, attemptsKey) {
		s.metrics.RecordLoginAttempt("locked")
		return nil, apperrors.ErrTooManyAttempts
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if user == nil || !user.IsActive || utils.ComparePasswords(user.Password, d.Password) != nil {
		s.registerFailure(ctx, attemptsKey)
		s.metrics.RecordLoginAttempt("failed")
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.cache.Del(ctx, attemptsKey); err != nil {
		s.logger.Warn("could not reset login attempts", zap.Error(err))
	}
	s.metrics.RecordLoginAttempt("success")
	s.logger.Info("user logged in", zap.Uint64("user_id", user.ID))
	return s.issue(user)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponseDTO, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefreshToken {
		return nil, apperrors.ErrTokenIsNotRefresh
	}
	user, err := s.userRepo.FindUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrUnauthorized
	}
	return s.issue(user)
}

// GetAuthUser serves the auth middleware from Redis, falling back to the
// database. Cache errors only cost a database round trip.
func (s *AuthService) GetAuthUser(ctx context.Context, userID uint64) (*entities.User, error) {
	key := fmt.Sprintf("%s%d", authUserKeyPrefix, userID)

	if raw, err := s.cache.Get(ctx, key); err == nil {
		var user entities.User
		if jsonErr := json.Unmarshal([]byte(raw), &user); jsonErr == nil {
			s.metrics.RecordCacheHit("auth_user")
			return &user, nil
		}
	} else if !errors.Is(err, repositories.ErrCacheMiss) {
		s.logger.Warn("auth user cache read failed", zap.Error(err))
	}
	s.metrics.RecordCacheMiss("auth_user")

	user, err := s.userRepo.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(user); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.cfg.UserCacheTTL); err != nil {
			s.logger.Warn("auth user cache write failed", zap.Error(err))
		}
	}
	return user, nil
}

func (s *AuthService) InvalidateUser(ctx context.Context, userID uint64) {
	if err := s.cache.Del(ctx, fmt.Sprintf("%s%d", authUserKeyPrefix, userID)); err != nil {
		s.logger.Warn("auth user cache invalidation failed", zap.Uint64("user_id", userID), zap.Error(err))
	}
}

func (s *AuthService) isLocked(ctx context.Context, key string) bool {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	var attempts int
	if _, err := fmt.Sscanf(raw, "%d", &attempts); err != nil {
		return false
	}
	return s.cfg.MaxLoginAttempts > 0 && attempts >= s.cfg.MaxLoginAttempts
}

func (s *AuthService) registerFailure(ctx context.Context, key string) {
	n, err := s.cache.Incr(ctx, key)
	if err != nil {
		s.logger.Warn("could not count failed login", zap.Error(err))
		return
	}
	if n == 1 {
		if _, err := s.cache.Expire(ctx, key, s.lockout()); err != nil {
			s.logger.Warn("could not set lockout window", zap.Error(err))
		}
	}
}

func (s *AuthService) lockout() time.Duration {
	if s.cfg.LockoutDuration <= 0 {
		return 15 * time.Minute
	}
	return s.cfg.LockoutDuration
}

func (s *AuthService) issue(user *entities.User) (*dto.AuthResponseDTO, error) {
	access, refresh, err := s.jwtService.GenerateTokens(user.ID, user.ClientID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}
	return &dto.AuthResponseDTO{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtService.GetAccessTokenTTL().Seconds()),
		User:         user,
	}, nil
}
