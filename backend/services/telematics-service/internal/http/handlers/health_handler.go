package handlers

import (
	"net/http"

	"truckwatch/backend/services/telematics-service/internal/notifier"
)

// Counter reports store sizes.
type Counter interface {
	Counts() (telemetry, anomalies int)
}

// StatsSource exposes notifier delivery counters.
type StatsSource interface {
	Stats() notifier.Stats
}

// NewHealthHandler returns liveness handler. Either dependency may be nil.
func NewHealthHandler(counter Counter, stats StatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{"status": "ok"}
		if counter != nil {
			telemetry, anomalies := counter.Counts()
			body["telemetry_rows"] = telemetry
			body["anomalies"] = anomalies
		}
		if stats != nil {
			body["notifications"] = stats.Stats()
		}
		writeJSON(w, http.StatusOK, body)
	}
}
