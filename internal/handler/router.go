/*
Package handler provides the HTTP handlers and routing setup for the TeamChat server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to the history API and the
WebSocket endpoint.
*/
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"teamchat/internal/pkg/auth/jwt"
	"teamchat/internal/pkg/errs"
	"teamchat/internal/pkg/limiter"
	"teamchat/internal/pkg/logx"
	"teamchat/internal/pkg/metrics"
	"teamchat/internal/pkg/resp"
)

const (
	HandshakeRate  = 1
	HandshakeBurst = 10
	HistoryRate    = 5
	HistoryBurst   = 20
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// The returned stop function releases the rate limiters' cleanup goroutines.
func Router(deps *AppDeps) (http.Handler, func()) {
	handshakeLimiter := limiter.NewIPRateLimiter(rate.Limit(HandshakeRate), HandshakeBurst)
	historyLimiter := limiter.NewIPRateLimiter(rate.Limit(HistoryRate), HistoryBurst)

	stop := func() {
		handshakeLimiter.Stop()
		historyLimiter.Stop()
	}

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth(deps))

	if deps.Config.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.RequireIdentityMiddleware(deps.Config.JWTSecret))
		api.Use(historyLimiter.Middleware)

		api.Get("/channels/{channelID}/messages", HandleListMessages(deps.Hub))
	})

	r.Get("/ws", HandleWebSocket(deps.Hub, wsUpgrader, handshakeLimiter))

	return r, stop
}

func handleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := deps.Ping(ctx); err != nil {
				logx.Error(err, "Health check failed: store unreachable")
				resp.RespondError(w, r, errs.Wrap(errs.ErrStoreFailed, err))
				return
			}
		}

		data := map[string]any{
			"status":      "ok",
			"service":     "TeamChat Server",
			"connections": deps.Hub.Sessions().Count(),
		}
		resp.RespondSuccess(w, r, data)
	}
}
