package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"truckwatch/backend/services/telematics-service/internal/models"
	"truckwatch/backend/services/telematics-service/internal/subscriptions"
)

// SubscriptionsHandlers manages webhook registrations.
type SubscriptionsHandlers struct {
	registry *subscriptions.Registry
	logger   *zap.Logger
}

// NewSubscriptionsHandlers returns handler.
func NewSubscriptionsHandlers(registry *subscriptions.Registry, logger *zap.Logger) *SubscriptionsHandlers {
	return &SubscriptionsHandlers{registry: registry, logger: logger}
}

type registerRequest struct {
	VIN      string `json:"vin"`
	Endpoint string `json:"endpoint"`
}

// Register handles POST /subscriptions.
func (h *SubscriptionsHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	sub, err := h.registry.Register(req.VIN, req.Endpoint)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.logger.Info("webhook registered", zap.String("vin", sub.VIN), zap.String("endpoint", strings.TrimSpace(req.Endpoint)))
	writeJSON(w, http.StatusCreated, sub)
}

// List handles GET /subscriptions, optionally narrowed with ?vin=.
func (h *SubscriptionsHandlers) List(w http.ResponseWriter, r *http.Request) {
	if vin := strings.TrimSpace(r.URL.Query().Get("vin")); vin != "" {
		writeJSON(w, http.StatusOK, models.Subscription{VIN: vin, Endpoints: h.registry.EndpointsFor(vin)})
		return
	}
	writeJSON(w, http.StatusOK, h.registry.List())
}
