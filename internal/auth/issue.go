package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenOptions describes a self-issued HS256 identity token.
type TokenOptions struct {
	UID        string
	SuperAdmin bool
	Issuer     string
	Audience   string
	TTL        time.Duration
}

// IssueToken signs an HS256 identity token with secret.
func IssueToken(secret string, opts TokenOptions) (string, error) {
	now := time.Now()
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}

	claims := jwt.MapClaims{
		"sub": opts.UID,
		"iat": now.Unix(),
		"exp": now.Add(opts.TTL).Unix(),
	}
	if opts.SuperAdmin {
		claims["superAdmin"] = true
	}
	if opts.Issuer != "" {
		claims["iss"] = opts.Issuer
	}
	if opts.Audience != "" {
		claims["aud"] = opts.Audience
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
