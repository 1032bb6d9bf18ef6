package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/wildfireranch/commandcenter/pkg/errors"
)

// operatorSubject is the single principal this service ever issues
// tokens for. There is no multi-tenant account model: the ranch has
// one operator and the gate either admits them or it doesn't.
const operatorSubject = "operator"

var errNotAllowedPrincipal = errors.New("principal not on the allow list")

// Service exposes the edge authentication gate: mint a bearer token
// for the operator key configured out-of-band, and validate tokens
// presented on subsequent requests.
type Service interface {
	IssueToken(ctx context.Context, req TokenRequest) (TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (Claims, error)
}

type service struct {
	cfg    Config
	logger *slog.Logger

	oidcOnce sync.Once
	oidc     *oidcVerifier
	oidcErr  error
}

// NewService constructs a Service instance. When cfg.Enabled is
// false, ValidateToken always succeeds as the operator so the API
// can run unguarded in local development.
func NewService(cfg Config, logger *slog.Logger) Service {
	return &service{cfg: cfg, logger: logger.With("component", "auth.service")}
}

// oidcVerifierFor lazily discovers the configured OIDC issuer on
// first use, so a misconfigured/unreachable issuer doesn't block
// service construction or the static-operator-key path.
func (s *service) oidcVerifierFor(ctx context.Context) (*oidcVerifier, error) {
	s.oidcOnce.Do(func() {
		s.oidc, s.oidcErr = newOIDCVerifier(ctx, s.cfg, s.logger)
	})
	return s.oidc, s.oidcErr
}

func (s *service) IssueToken(ctx context.Context, req TokenRequest) (TokenResponse, error) {
	if !s.cfg.Enabled {
		return TokenResponse{}, apperrors.Wrap("auth_disabled", "authentication is disabled", nil)
	}
	if s.cfg.Secret == "" {
		return TokenResponse{}, apperrors.Wrap("auth_error", "no operator key configured", nil)
	}
	if subtle.ConstantTimeCompare([]byte(req.OperatorKey), []byte(s.cfg.Secret)) != 1 {
		return TokenResponse{}, apperrors.Wrap("invalid_credentials", "invalid operator key", nil)
	}
	now := time.Now()
	expiresAt := now.Add(s.cfg.TokenTTL)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorSubject,
			ID:        newTokenID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return TokenResponse{}, apperrors.Wrap("auth_error", "failed to sign token", err)
	}
	return TokenResponse{Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *service) ValidateToken(ctx context.Context, token string) (Claims, error) {
	if !s.cfg.Enabled {
		return Claims{Subject: operatorSubject, ExpiresAt: time.Now().Add(s.cfg.TokenTTL)}, nil
	}
	if strings.TrimSpace(token) == "" {
		return Claims{}, apperrors.Wrap("invalid_token", "token missing", nil)
	}
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if verifier, verr := s.oidcVerifierFor(ctx); verr == nil && verifier != nil {
			if claims, oerr := verifier.verify(ctx, token); oerr == nil {
				return claims, nil
			}
		}
		return Claims{}, apperrors.Wrap("invalid_token", "token validation failed", err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Claims{}, apperrors.Wrap("invalid_token", "token invalid", nil)
	}
	if claims.Subject != operatorSubject {
		return Claims{}, apperrors.Wrap("invalid_token", "unknown subject", nil)
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		return Claims{}, apperrors.Wrap("invalid_token", "token expired", nil)
	}
	return Claims{Subject: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
}

func newTokenID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return hex.EncodeToString(buf)
}
