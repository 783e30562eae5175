package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/V4T54L/vsd-gateway/internal/adapter/api/handler"
	"github.com/V4T54L/vsd-gateway/internal/adapter/metrics"
	"github.com/V4T54L/vsd-gateway/internal/auth"
)

// TokenVerifier verifies raw identity tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Identity, error)
}

// AdminAuth authenticates admin proxy callers and applies the authorization
// policy. The token is read from the Authorization header, or from the
// "idToken" field of a JSON body. m may be nil.
func AdminAuth(verifier TokenVerifier, policy auth.AuthorizationPolicy, maxBodyBytes int64, logger *slog.Logger, m *metrics.GatewayMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				var err error
				raw, err = tokenFromBody(w, r, maxBodyBytes)
				if err != nil {
					var maxBytesErr *http.MaxBytesError
					if errors.As(err, &maxBytesErr) {
						handler.RespondError(w, logger, http.StatusRequestEntityTooLarge, "Payload too large")
						return
					}
					logger.Warn("failed to read request body", "error", err)
				}
			}
			if raw == "" {
				m.AuthDecision("admin", "unauthenticated")
				handler.RespondError(w, logger, http.StatusUnauthorized, "Missing bearer token")
				return
			}

			id, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				logger.Warn("identity token rejected", "remote_addr", r.RemoteAddr, "error", err)
				m.AuthDecision("admin", "unauthenticated")
				handler.RespondError(w, logger, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			decision, err := policy.Evaluate(r.Context(), id)
			if err != nil {
				logger.Error("failed to evaluate admin policy", "uid", id.UID, "error", err)
				m.AuthDecision("admin", "error")
				handler.RespondError(w, logger, http.StatusInternalServerError, "Internal server error")
				return
			}
			if decision != auth.Allow {
				logger.Warn("admin access denied", "uid", id.UID)
				m.AuthDecision("admin", "forbidden")
				handler.RespondError(w, logger, http.StatusForbidden, "Forbidden")
				return
			}

			m.AuthDecision("admin", "allowed")
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// tokenFromBody reads the idToken field of a JSON body and restores the body
// for the next handler. Bodies that are not JSON objects yield "".
func tokenFromBody(w http.ResponseWriter, r *http.Request, maxBodyBytes int64) (string, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return "", nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var payload struct {
		IDToken string `json:"idToken"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return "", nil
	}
	return payload.IDToken, nil
}
