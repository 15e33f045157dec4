package app

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func registerOps(mux *http.ServeMux, log Logger, cfg Config, dbPool *pgxpool.Pool, dbEnabled bool) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.ReadinessRequireDB {
			if !dbEnabled || dbPool == nil {
				http.Error(w, "db required", http.StatusServiceUnavailable)
				return
			}
			if err := PingDB(r.Context(), dbPool, 2*time.Second); err != nil {
				log.Warn("readyz.db_unreachable", "err", err)
				http.Error(w, "db unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.Handle("/metrics", promhttp.Handler())
}
