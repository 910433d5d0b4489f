package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/shipment-relay/delivery"
	"github.com/marcelsud/shipment-relay/dispatch"
	"github.com/marcelsud/shipment-relay/metrics"
	"github.com/rs/zerolog"
)

// RequestTimeout bounds synchronous deliveries, retries included
const RequestTimeout = 2 * time.Minute

// WebhookRegistry is the registry surface the admin API edits
type WebhookRegistry interface {
	Add(name string, cfg delivery.WebhookConfig) error
	Get(name string) (delivery.WebhookConfig, bool)
	List() []delivery.WebhookConfig
	Toggle(name string, enabled bool) bool
	RemoveErr(name string) error
}

// FailedDeliveries is the read side of the failed-delivery queue
type FailedDeliveries interface {
	Names() []string
	List(name string) []delivery.FailedDelivery
	Lengths() map[string]int
}

// StatsStore exposes the delivery counters
type StatsStore interface {
	Snapshot() metrics.Stats
	Reset()
}

// Dispatcher takes fire-and-forget jobs
type Dispatcher interface {
	Submit(job dispatch.Job) error
}

// Deps groups what the admin API is built from
type Deps struct {
	Service    delivery.UseCase
	Registry   WebhookRegistry
	Failed     FailedDeliveries
	Stats      StatsStore
	Dispatcher Dispatcher
	Metrics    http.Handler // Prometheus scrape handler, optional
	Logger     zerolog.Logger
}

// Handlers sets up the admin API routes
func Handlers(ctx context.Context, deps Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/webhooks", func(r chi.Router) {
			r.Method(http.MethodGet, "/", getWebhooks(deps.Registry))
			r.Method(http.MethodPost, "/", postWebhook(deps.Registry))
			r.Method(http.MethodPatch, "/{name}", patchWebhook(deps.Registry))
			r.Method(http.MethodDelete, "/{name}", deleteWebhook(deps.Registry))

			r.Method(http.MethodPost, "/{name}/deliveries", postDelivery(deps.Service))
			r.Method(http.MethodPost, "/{name}/batches", postBatch(deps.Service, deps.Registry))
			r.Method(http.MethodPost, "/{name}/sync", postSync(deps.Dispatcher, deps.Registry))
		})

		r.Method(http.MethodGet, "/failed-deliveries", getFailedDeliveries(deps.Failed))
		r.Method(http.MethodPost, "/failed-deliveries/replay", postReplay(deps.Service))

		r.Method(http.MethodGet, "/stats", getStats(deps.Stats, deps.Failed))
		r.Method(http.MethodPost, "/stats/reset", postStatsReset(deps.Stats))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
