package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"fieldops/ledgersync/internal/models/dtos"
)

// Pinger is satisfied by *sqlx.DB and common.RedisPinger.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthCheckHandler handles GET /healthCheck
//
// Each dependency is pinged with a short deadline; any failure reports the
// whole service as down with a 503.
func HealthCheckHandler(deps map[string]Pinger, upSince time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := make(map[string]dtos.DependencyStatus, len(deps))
		overall := "ok"

		for name, p := range deps {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			began := time.Now()
			err := p.PingContext(ctx)
			cancel()

			st := dtos.DependencyStatus{Status: "ok", LatencyMs: time.Since(began).Milliseconds()}
			if err != nil {
				st.Status = "down"
				st.Details = err.Error()
				overall = "down"
			}
			statuses[name] = st
		}

		resp := dtos.HealthResponse{
			Status:       overall,
			Dependencies: statuses,
			UpSince:      upSince,
			Uptime:       time.Since(upSince).Round(time.Second).String(),
		}

		code := http.StatusOK
		if overall != "ok" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
