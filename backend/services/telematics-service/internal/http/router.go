package httpserver

import (
	"net/http"
	"sort"
	"strings"

	"truckwatch/backend/services/telematics-service/internal/http/handlers"
)

// Routes defines HTTP endpoints.
type Routes struct {
	Telemetry     *handlers.TelemetryHandlers
	Analysis      *handlers.AnalysisHandlers
	Subscriptions *handlers.SubscriptionsHandlers
	LiveFeed      http.HandlerFunc
	Health        http.HandlerFunc
	Metrics       http.Handler
}

// NewRouter sets up HTTP routing.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()

	if t := routes.Telemetry; t != nil {
		mux.Handle("/upload", method(http.MethodPost, t.Upload))
		mux.Handle("/trucks", method(http.MethodGet, t.Trucks))
		mux.Handle("/truck/{vin}/behavior", method(http.MethodGet, t.Behavior))
		mux.Handle("/data", method(http.MethodGet, t.Data))
	}
	if a := routes.Analysis; a != nil {
		mux.Handle("/analyze", method(http.MethodPost, a.Analyze))
		mux.Handle("/analyze/{vin}/anomalies", method(http.MethodGet, a.VINAnomalies))
	}
	if s := routes.Subscriptions; s != nil {
		mux.Handle("/subscriptions", methods(map[string]http.HandlerFunc{
			http.MethodGet:  s.List,
			http.MethodPost: s.Register,
		}))
	}
	if routes.LiveFeed != nil {
		mux.Handle("/ws/anomalies", method(http.MethodGet, routes.LiveFeed))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	if routes.Metrics != nil {
		mux.Handle("/metrics", method(http.MethodGet, routes.Metrics.ServeHTTP))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}

func methods(byMethod map[string]http.HandlerFunc) http.HandlerFunc {
	allowed := make([]string, 0, len(byMethod))
	for m := range byMethod {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")

	return func(w http.ResponseWriter, r *http.Request) {
		handler, ok := byMethod[r.Method]
		if !ok {
			w.Header().Set("Allow", allow)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
