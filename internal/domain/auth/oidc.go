package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// oidcVerifier validates Google-issued ID tokens as an alternative
// way to admit the single allow-listed operator, without building a
// full multi-user OAuth code/refresh dance.
type oidcVerifier struct {
	verifier     *oidc.IDTokenVerifier
	allowedEmail string
	logger       *slog.Logger
}

// newOIDCVerifier discovers the issuer's keys via OIDC discovery. It
// returns nil, nil when no issuer is configured so the OIDC path is
// simply unavailable rather than an error.
func newOIDCVerifier(ctx context.Context, cfg Config, logger *slog.Logger) (*oidcVerifier, error) {
	if cfg.IssuerURL == "" {
		return nil, nil
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, err
	}
	return &oidcVerifier{
		verifier:     provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID}),
		allowedEmail: strings.ToLower(strings.TrimSpace(cfg.AllowedEmail)),
		logger:       logger.With("component", "auth.oidc"),
	}, nil
}

// verify checks rawIDToken's signature and issuer, then enforces that
// its email claim matches the single allow-listed operator.
func (v *oidcVerifier) verify(ctx context.Context, rawIDToken string) (Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Claims{}, err
	}
	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Claims{}, err
	}
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if !claims.EmailVerified || v.allowedEmail == "" || email != v.allowedEmail {
		v.logger.Warn("oidc principal rejected", "email", email)
		return Claims{}, errNotAllowedPrincipal
	}
	return Claims{Subject: operatorSubject, ExpiresAt: idToken.Expiry}, nil
}
