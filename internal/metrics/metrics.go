// Package metrics provides Prometheus instrumentation for the portfolio engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts executed trades, partitioned by side.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timevest_trades_total",
		Help: "Total number of buy/sell operations executed",
	}, []string{"side"})

	// TradeRejections counts buys rejected by validation.
	TradeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timevest_trade_rejections_total",
		Help: "Buy operations rejected by validation",
	}, []string{"reason"})

	// TimeTravelsTotal counts year advances, partitioned by mode.
	TimeTravelsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timevest_time_travels_total",
		Help: "Total number of year advances",
	}, []string{"mode"})

	// ActiveSessions tracks sessions currently alive in the store.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timevest_active_sessions",
		Help: "Number of live game sessions",
	})

	// AchievementsUnlocked counts achievement awards by identifier.
	AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timevest_achievements_unlocked_total",
		Help: "Achievements awarded across all sessions",
	}, []string{"achievement"})

	// GamesFinished counts terminal sessions by status tier.
	GamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timevest_games_finished_total",
		Help: "Sessions that reached game over, by status tier",
	}, []string{"status"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timevest_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timevest_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timevest_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
