// Package metrics declares the Prometheus collectors exported by the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "teamchat"

var (
	// Connection metrics
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections_active",
		Help:      "The current number of registered WebSocket sessions.",
	})
	TotalConnections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_connections_total",
		Help:      "The total number of WebSocket sessions registered.",
	})
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failures_total",
		Help:      "The total number of rejected credentials, by surface.",
	}, []string{"surface"})

	// Presence and room metrics
	OnlineUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "presence_online_users",
		Help:      "The current number of users with a live presence record.",
	})
	PresenceExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "presence_expired_total",
		Help:      "The total number of presence records removed by the sweeper.",
	})
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rooms_active",
		Help:      "The current number of channel rooms with at least one connection.",
	})

	// Message metrics
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "The total number of message:send operations, by outcome.",
	}, []string{"outcome"})
	Deliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "The total number of frames queued to connections.",
	})
	DroppedDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_dropped_total",
		Help:      "The total number of frames dropped because a connection was closed or full.",
	})
	TypingSignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "typing_signals_total",
		Help:      "The total number of relayed typing signals, by kind.",
	}, []string{"kind"})
	HistoryPages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "history_pages_total",
		Help:      "The total number of history page requests, by outcome.",
	}, []string{"outcome"})

	// Membership cache metrics
	MembershipCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "membership_cache_lookups_total",
		Help:      "The total number of membership cache lookups, by result (hit, miss, error).",
	}, []string{"result"})

	// Event publisher metrics
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "The total number of domain events published to the broker.",
	}, []string{"broker_type"})
	EventsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_failed_total",
		Help:      "The total number of domain events dropped or failed after retries.",
	}, []string{"broker_type", "reason"})
	EventPublishRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_publish_retries_total",
		Help:      "The total number of publish retries.",
	}, []string{"broker_type"})
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
