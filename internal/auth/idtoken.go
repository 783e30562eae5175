package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// VerifierConfig selects the key sources for identity tokens. At least one of
// Secret and JWKSURL must be set.
type VerifierConfig struct {
	// Secret verifies HS256 tokens.
	Secret string

	// JWKSURL verifies RS256 tokens by kid.
	JWKSURL string

	Issuer   string
	Audience string

	// CacheTTL controls how long JWKS keys are cached. Default: 1 hour.
	CacheTTL time.Duration

	// MinRefreshInterval is the shortest time between two JWKS fetches. Tokens
	// naming an unknown kid inside it are rejected from the cache. Default: 30s.
	MinRefreshInterval time.Duration

	HTTPClient *http.Client
}

// Verifier validates identity tokens and checks them against the revocation store.
type Verifier struct {
	cfg         VerifierConfig
	jwks        *signingKeys
	revocations domain.RevocationStore
	logger      *slog.Logger
}

// NewVerifier creates a token verifier. revocations may be nil to skip revocation checks.
func NewVerifier(cfg VerifierConfig, revocations domain.RevocationStore, logger *slog.Logger) (*Verifier, error) {
	if cfg.Secret == "" && cfg.JWKSURL == "" {
		return nil, errors.New("either a token secret or a JWKS URL is required")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.MinRefreshInterval <= 0 {
		cfg.MinRefreshInterval = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	v := &Verifier{cfg: cfg, revocations: revocations, logger: logger.With("component", "id_token_verifier")}
	if cfg.JWKSURL != "" {
		v.jwks = newSigningKeys(cfg.JWKSURL, cfg.CacheTTL, cfg.MinRefreshInterval, cfg.HTTPClient, v.logger)
	}
	return v, nil
}

// Verify checks signature, expiry, issuer, audience and revocation of a raw token.
// Every failure wraps ErrInvalidToken.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Identity, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return v.keyFor(ctx, t)
	}, v.parserOptions()...)
	if err != nil {
		v.logger.Debug("identity token rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}

	uid, _ := claims.GetSubject()
	if uid == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}

	id := &Identity{UID: uid, Claims: claims}
	if super, ok := claims["superAdmin"].(bool); ok {
		id.SuperAdmin = super
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}

	if err := v.checkRevocation(ctx, id); err != nil {
		return nil, err
	}
	return id, nil
}

func (v *Verifier) checkRevocation(ctx context.Context, id *Identity) error {
	if v.revocations == nil {
		return nil
	}
	validAfter, err := v.revocations.ValidAfter(ctx, id.UID)
	if err != nil {
		v.logger.Error("failed to read token revocation", "uid", id.UID, "error", err)
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !validAfter.IsZero() && id.IssuedAt.Before(validAfter) {
		return fmt.Errorf("%w: %w", ErrInvalidToken, ErrTokenRevoked)
	}
	return nil
}

func (v *Verifier) keyFor(ctx context.Context, t *jwt.Token) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.cfg.Secret == "" {
			return nil, errors.New("HMAC tokens are not accepted")
		}
		return []byte(v.cfg.Secret), nil
	case *jwt.SigningMethodRSA:
		if v.jwks == nil {
			return nil, errors.New("RSA tokens are not accepted")
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token missing kid header")
		}
		return v.jwks.lookup(ctx, kid)
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
}

func (v *Verifier) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}
	return opts
}
