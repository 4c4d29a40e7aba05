package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/config"
	"github.com/reverie-app/reverie-api/internal/platform/logger"
)

// DownloadTokenService mints and verifies short-lived signed tokens that
// authorize downloading one backup archive. The archive download endpoint
// is the only place the API serves a raw file from the work directory, so
// it carries its own capability token instead of a session.
type DownloadTokenService interface {
	// GenerateToken creates a signed token authorizing the user to download
	// the named archive.
	GenerateToken(ctx context.Context, userID uuid.UUID, archivePath string) (string, error)

	// ValidateToken verifies the token and returns its claims.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the verified contents of a download token.
type Claims struct {
	// UserID is the user the token was issued for.
	UserID uuid.UUID `json:"uid"`

	// ArchivePath is the backup archive the token authorizes.
	ArchivePath string `json:"archive"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}

// tokenType marks download tokens so other JWTs signed with a shared
// secret cannot be replayed against the download endpoint.
const tokenType = "backup_download"

// hmacDownloadTokenService signs tokens with HMAC-SHA256.
type hmacDownloadTokenService struct {
	signingKey []byte
	lifetime   time.Duration
	timeFunc   func() time.Time // Injectable for testing
	clockSkew  time.Duration
}

type downloadClaims struct {
	UserID      uuid.UUID `json:"uid"`
	ArchivePath string    `json:"archive"`
	TokenType   string    `json:"type"`
	jwt.RegisteredClaims
}

var _ DownloadTokenService = (*hmacDownloadTokenService)(nil)

// NewDownloadTokenService creates a DownloadTokenService from the auth
// configuration.
func NewDownloadTokenService(cfg config.AuthConfig) (DownloadTokenService, error) {
	if len(cfg.DownloadTokenSecret) < 32 {
		return nil, fmt.Errorf("download token secret must be at least 32 characters")
	}

	return &hmacDownloadTokenService{
		signingKey: []byte(cfg.DownloadTokenSecret),
		lifetime:   time.Duration(cfg.DownloadTokenLifetimeMinutes) * time.Minute,
		timeFunc:   time.Now,
		clockSkew:  2 * time.Minute,
	}, nil
}

// GenerateToken creates a signed download token for the archive.
func (s *hmacDownloadTokenService) GenerateToken(ctx context.Context, userID uuid.UUID, archivePath string) (string, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	claims := downloadClaims{
		UserID:      userID,
		ArchivePath: archivePath,
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.signingKey)
	if err != nil {
		log.Error("failed to sign download token",
			"error", err,
			"user_id", userID)
		return "", fmt.Errorf("failed to sign download token: %w", err)
	}

	return signedToken, nil
}

// ValidateToken verifies the token signature, expiry, and type.
func (s *hmacDownloadTokenService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	now := s.timeFunc()
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&downloadClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		parserOpts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			log.Debug("download token validation failed", "error", err)
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*downloadClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}

	return &Claims{
		UserID:      claims.UserID,
		ArchivePath: claims.ArchivePath,
		Subject:     claims.Subject,
		IssuedAt:    claims.IssuedAt.Time,
		ExpiresAt:   claims.ExpiresAt.Time,
		ID:          claims.ID,
	}, nil
}
