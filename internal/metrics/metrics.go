// internal/metrics/metrics.go
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sidebet_live_rooms",
		Help: "Rooms currently held in the registry.",
	})
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sidebet_live_connections",
		Help: "Open websocket connections.",
	})
	SettleCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sidebet_settlement_cycles_total",
		Help: "Settlement loop ticks processed.",
	})
	BetsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sidebet_bets_settled_total",
		Help: "Bets resolved by the settlement loop.",
	})
	ScoreFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sidebet_score_fetch_failures_total",
		Help: "Score feed lookups that errored or timed out.",
	})
)

// HealthFunc probes a dependency for /healthz.
type HealthFunc func(ctx context.Context) error

// StartServer runs a small HTTP server that only serves /metrics and
// /healthz, on its own port so scrapes never contend with client traffic.
func StartServer(port string, healthFn HealthFunc) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if healthFn != nil {
			if err := healthFn(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, "unhealthy: %v", err)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
