package httpapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Sangdi-IT/yq-monitor/internal/infrastructure/config"
	obs "github.com/Sangdi-IT/yq-monitor/internal/infrastructure/observability"
	"github.com/Sangdi-IT/yq-monitor/internal/usecase"
)

type Deps struct {
	Cfg     config.Config
	Logger  *zerolog.Logger
	Metrics *obs.Metrics
	Svc     *usecase.Service
	Monitor *MonitorHub
}

func NewRouterWithDeps(d *Deps) http.Handler {
	if d.Logger == nil {
		nop := zerolog.Nop()
		d.Logger = &nop
	}
	if d.Monitor == nil {
		d.Monitor = NewMonitorHub()
	}
	return withCORS(d.Cfg, buildBaseMux(d))
}

// buildBaseMux constructs the mux with all routes, without wrappers.
func buildBaseMux(d *Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if d.Metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	// === V1 API ===
	mux.HandleFunc("/_api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":    "yq-monitor",
			"version": obs.Version,
			"commit":  obs.Commit,
			"date":    obs.Date,
			"time":    time.Now().UTC(),
		})
	})
	mux.HandleFunc("/_api/v1/messages", d.handleV1Messages)
	mux.HandleFunc("/_api/v1/status", d.handleV1Status)
	mux.HandleFunc("/_api/v1/settings", d.handleV1Settings)
	mux.HandleFunc("/_api/v1/har", d.handleV1HAR)
	mux.HandleFunc("/_api/v1/exports", d.handleV1Exports)
	mux.HandleFunc("/_api/v1/monitor/ws", d.Monitor.HandleWS)
	mux.HandleFunc("/_api/v1/monitor/stream", d.handleV1MonitorStream)

	return mux
}

func withCORS(cfg config.Config, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := cfg.CORSAllowOrigin
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
