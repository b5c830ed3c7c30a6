package jwt

import (
	"context"
	"net/http"

	"teamchat/internal/pkg/errs"
	"teamchat/internal/pkg/logx"
	"teamchat/internal/pkg/metrics"
	"teamchat/internal/pkg/resp"
)

type contextKey string

const (
	// ContextAuthPayloadKey stores the parsed *Payload in the request context.
	ContextAuthPayloadKey contextKey = "auth_payload"
)

// RequireIdentityMiddleware validates the bearer token and injects the Payload into
// the request context. Requests without a valid token get a 401 ErrAuthFailed.
func RequireIdentityMiddleware(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, err := ParseToken(TokenFromRequest(r), secretKey)
			if err != nil {
				metrics.AuthFailures.WithLabelValues("http").Inc()
				logx.Debug("Rejected HTTP request with invalid token", "error", err.Error(), "uri", r.URL.Path)
				resp.RespondError(w, r, errs.NewError(errs.ErrAuthFailed))
				return
			}

			ctx := WithPayload(r.Context(), payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithPayload returns a copy of ctx carrying payload.
func WithPayload(ctx context.Context, payload *Payload) context.Context {
	return context.WithValue(ctx, ContextAuthPayloadKey, payload)
}

// GetPayloadFromContext extracts the authenticated Payload from the request context.
// It returns nil when the request did not pass RequireIdentityMiddleware.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)
	if !ok {
		return nil
	}
	return payload
}
