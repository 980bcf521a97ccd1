package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/tahfidz-api/internal/models"
	"github.com/noah-isme/tahfidz-api/pkg/config"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthService issues and validates tokens and manages credentials.
type AuthService struct {
	repo      authUserRepository
	cfg       config.JWTConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService constructs the service.
func NewAuthService(repo authUserRepository, cfg config.JWTConfig, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{repo: repo, cfg: cfg, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Login verifies credentials and issues an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
	}

	now := s.now()
	accessToken, err := s.signAccessToken(user, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	refreshToken, err := s.issueRefreshToken(ctx, user.ID, req.IP, req.UserAgent, now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to stamp last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.journal(ctx, user.ID, models.AuditActionLogin, req.IP, req.UserAgent)

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.Expiration.Seconds()),
		IssuedAt:     now,
		User: models.UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Role:     user.Role,
		},
	}, nil
}

// Refresh rotates the refresh token and issues a new access token.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	stored, err := s.repo.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid refresh token")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load refresh token")
	}
	now := s.now()
	if stored.Revoked || now.After(stored.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token expired or revoked")
	}
	user, err := s.repo.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account is disabled")
	}

	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate refresh token")
	}
	accessToken, err := s.signAccessToken(user, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	refreshToken, err := s.issueRefreshToken(ctx, user.ID, req.IP, req.UserAgent, now)
	if err != nil {
		return nil, err
	}
	return &models.RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.Expiration.Seconds()),
		IssuedAt:     now,
	}, nil
}

// Logout revokes every session for the user.
func (s *AuthService) Logout(ctx context.Context, userID, ip, userAgent string) error {
	if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke sessions")
	}
	s.journal(ctx, userID, models.AuditActionLogout, ip, userAgent)
	return nil
}

// ChangePassword verifies the old password, stores the new hash and revokes
// all existing sessions.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "old password does not match")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	now := s.now()
	if err := s.repo.UpdatePassword(ctx, userID, string(hash), now); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke sessions after password change", zap.String("user_id", userID), zap.Error(err))
	}
	s.journal(ctx, userID, models.AuditActionPasswordChange, "", "")
	return nil
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unexpected signing method")
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(user *models.User, now time.Time) (string, error) {
	claims := models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Expiration)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}

func (s *AuthService) issueRefreshToken(ctx context.Context, userID, ip, userAgent string, now time.Time) (string, error) {
	token := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.cfg.RefreshExpiration),
		CreatedAt: now,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.repo.CreateRefreshToken(ctx, token); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}
	return token.Token, nil
}

func (s *AuthService) journal(ctx context.Context, userID, action, ip, userAgent string) {
	entry := &models.AuditLog{
		ID:        uuid.NewString(),
		UserID:    &userID,
		Action:    action,
		Resource:  "auth",
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write auth audit entry", zap.String("user_id", userID), zap.Error(err))
	}
}
