package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/evep-health/evep/internal/entity"
	"github.com/evep-health/evep/pkg/config"
)

const sessionHashBytes = 32

type RefreshTokenRepository interface {
	SaveRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	FindRefreshToken(ctx context.Context, token string) error
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	CleanExpired(ctx context.Context) error
}

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (entity.UserAccount, error)
	FindByID(ctx context.Context, id uuid.UUID) (entity.UserAccount, error)
}

type SessionHashRepository interface {
	Save(ctx context.Context, userID uuid.UUID, hash string, ttl time.Duration) error
	Verify(ctx context.Context, userID uuid.UUID, hash string) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type NotificationService interface {
	SendSignInAlert(ctx context.Context, email, ip, deviceID string)
}

type Service struct {
	cfg              config.Config
	userRepo         UserRepository
	refreshTokenRepo RefreshTokenRepository
	sessionHashRepo  SessionHashRepository
	notification     NotificationService
}

func NewService(
	cfg config.Config,
	userRepo UserRepository,
	refreshTokenRepo RefreshTokenRepository,
	sessionHashRepo SessionHashRepository,
	notification NotificationService,
) *Service {
	return &Service{
		cfg:              cfg,
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		sessionHashRepo:  sessionHashRepo,
		notification:     notification,
	}
}

// Login verifies credentials and issues a token pair plus a session hash.
// Bad credentials and unknown emails are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.UserTokens, entity.User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		slog.WarnContext(ctx, "invalid email format for login", "email", email, "error", err)
		return nil, entity.User{}, fmt.Errorf("%w: %s", entity.ErrInvalidCredential, err)
	}

	account, err := s.userRepo.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			slog.WarnContext(ctx, "login attempt for unknown email", "email", normalized)
			return nil, entity.User{}, entity.ErrInvalidCredential
		}

		slog.ErrorContext(ctx, "failed to load user for login", "email", normalized, "error", err)

		return nil, entity.User{}, fmt.Errorf("find user: %w", err)
	}

	if account.IsBlocked {
		slog.WarnContext(ctx, "login attempt for blocked user", "email", normalized, "user_id", account.ID)
		return nil, entity.User{}, entity.ErrUserBlocked
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		slog.WarnContext(ctx, "invalid password", "email", normalized, "user_id", account.ID)
		return nil, entity.User{}, entity.ErrInvalidCredential
	}

	tokens, err := s.generateTokens(ctx, account.User)
	if err != nil {
		return nil, entity.User{}, err
	}

	hash, err := s.issueSessionHash(ctx, account.ID)
	if err != nil {
		return nil, entity.User{}, err
	}

	tokens.SessionHash = hash

	ipAddr := entity.IPFromCtx(ctx)
	s.notification.SendSignInAlert(ctx, account.Email, ipAddr, entity.DeviceIDFromCtx(ctx))

	slog.InfoContext(ctx, "login successful", "email", normalized, "user_id", account.ID, "ip", ipAddr)

	return tokens, account.User, nil
}

// RefreshToken rotates a refresh token: the presented token must be known
// and unexpired, is consumed, and a fresh pair is issued.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*entity.UserTokens, entity.User, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return nil, entity.User{}, err
	}

	if err := s.refreshTokenRepo.FindRefreshToken(ctx, refreshToken); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, entity.User{}, fmt.Errorf("%w: refresh token unknown or expired", entity.ErrTokenRevoked)
		}

		return nil, entity.User{}, fmt.Errorf("find refresh token: %w", err)
	}

	if err := s.refreshTokenRepo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, entity.User{}, fmt.Errorf("delete refresh token: %w", err)
	}

	account, err := s.userRepo.FindByID(ctx, claims.User.ID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, entity.User{}, entity.ErrUserNotFound
		}

		return nil, entity.User{}, fmt.Errorf("find user: %w", err)
	}

	if account.IsBlocked {
		return nil, entity.User{}, entity.ErrUserBlocked
	}

	tokens, err := s.generateTokens(ctx, account.User)
	if err != nil {
		return nil, entity.User{}, err
	}

	slog.InfoContext(ctx, "tokens refreshed", "user_id", account.ID)

	return tokens, account.User, nil
}

// ValidateToken checks an access token's signature and expiry and returns a
// fresh user snapshot.
func (s *Service) ValidateToken(ctx context.Context, accessToken string) (entity.User, error) {
	claims, err := s.parseToken(accessToken)
	if err != nil {
		return entity.User{}, err
	}

	account, err := s.userRepo.FindByID(ctx, claims.User.ID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return entity.User{}, entity.ErrUserNotFound
		}

		return entity.User{}, fmt.Errorf("find user: %w", err)
	}

	if account.IsBlocked {
		return entity.User{}, entity.ErrUserBlocked
	}

	return account.User, nil
}

func (s *Service) VerifySessionHash(ctx context.Context, userID uuid.UUID, hash string) error {
	return s.sessionHashRepo.Verify(ctx, userID, hash)
}

// RevokeSession invalidates every refresh token and the session hash of a
// user. Used by logout and by administrative force-logout.
func (s *Service) RevokeSession(ctx context.Context, userID uuid.UUID) error {
	if err := s.refreshTokenRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	if err := s.sessionHashRepo.Delete(ctx, userID); err != nil {
		slog.WarnContext(ctx, "failed to drop session hash", "user_id", userID, "error", err)
	}

	slog.InfoContext(ctx, "session revoked", "user_id", userID)

	return nil
}

func (s *Service) DeleteExpiredTokens(ctx context.Context) error {
	if err := s.refreshTokenRepo.CleanExpired(ctx); err != nil {
		return fmt.Errorf("delete expired refresh tokens: %w", err)
	}

	return nil
}

func (s *Service) generateTokens(ctx context.Context, user entity.User) (*entity.UserTokens, error) {
	pKey, err := base64.StdEncoding.DecodeString(s.sanitizeJWTKey(s.cfg.JWT.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(pKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	accessTokenExpiresAt := time.Now().Add(s.cfg.JWT.AccessTokenExpiry)
	refreshTokenExpiresAt := time.Now().Add(s.cfg.JWT.RefreshTokenExpiry)

	jti := uuid.Must(uuid.NewV4()).String()

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256,
		entity.UserJwtClaims{
			User: entity.UserJwtInfo{
				ID:   user.ID,
				Role: user.Role,
			},
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        jti,
				IssuedAt:  jwt.NewNumericDate(time.Now()),
				ExpiresAt: jwt.NewNumericDate(refreshTokenExpiresAt),
			},
		}).SignedString(privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256,
		entity.UserJwtClaims{
			User: entity.UserJwtInfo{
				ID:   user.ID,
				Role: user.Role,
			},
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        jti,
				IssuedAt:  jwt.NewNumericDate(time.Now()),
				ExpiresAt: jwt.NewNumericDate(accessTokenExpiresAt),
			},
		}).SignedString(privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	if err := s.refreshTokenRepo.SaveRefreshToken(ctx, user.ID, refreshToken, refreshTokenExpiresAt); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &entity.UserTokens{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		RefreshTokenTTL: s.cfg.JWT.RefreshTokenExpiry,
	}, nil
}

func (s *Service) issueSessionHash(ctx context.Context, userID uuid.UUID) (string, error) {
	buf := make([]byte, sessionHashBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session hash: %w", err)
	}

	hash := hex.EncodeToString(buf)

	if err := s.sessionHashRepo.Save(ctx, userID, hash, s.cfg.JWT.RefreshTokenExpiry); err != nil {
		return "", fmt.Errorf("save session hash: %w", err)
	}

	return hash, nil
}

func (s *Service) parseToken(token string) (*entity.UserJwtClaims, error) {
	pubKey, err := base64.StdEncoding.DecodeString(s.sanitizeJWTKey(s.cfg.JWT.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(pubKey)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	var claims entity.UserJwtClaims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (any, error) {
		_, ok := token.Method.(*jwt.SigningMethodRSA)
		if !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return publicKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token expired: %w", entity.ErrTokenExpired)
		}

		return nil, fmt.Errorf("parse token: %w", err)
	}

	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token: %w", entity.ErrInvalidToken)
	}

	if !claims.User.Role.IsValid() {
		return nil, fmt.Errorf("unknown role in token: %w", entity.ErrInvalidToken)
	}

	return &claims, nil
}

// sanitizeJWTKey strips the quoting artifacts env injection tends to leave
// around PEM material.
func (s *Service) sanitizeJWTKey(key string) string {
	return strings.TrimSpace(strings.NewReplacer(
		`\`, "", `"`, "", " ", "", "\n", "", "\r", "", "{", "", "}", "",
	).Replace(key))
}
