package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"truckwatch/backend/services/telematics-service/internal/models"
	"truckwatch/backend/services/telematics-service/internal/service"
)

// AnalysisHandlers triggers detection runs.
type AnalysisHandlers struct {
	service *service.AnalysisService
	logger  *zap.Logger
}

// NewAnalysisHandlers returns handler.
func NewAnalysisHandlers(service *service.AnalysisService, logger *zap.Logger) *AnalysisHandlers {
	return &AnalysisHandlers{service: service, logger: logger}
}

// Analyze handles POST /analyze. Every field of the body is optional.
func (h *AnalysisHandlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalysisRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	report, err := h.service.Run(r.Context(), req)
	if err != nil {
		if writeServiceError(w, err) {
			h.logger.Error("analysis failed", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// VINAnomalies handles GET /analyze/{vin}/anomalies.
func (h *AnalysisHandlers) VINAnomalies(w http.ResponseWriter, r *http.Request) {
	vin := r.PathValue("vin")
	anomalies, err := h.service.AnalyzeVIN(r.Context(), vin)
	if errors.Is(err, service.ErrNoTelemetry) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No data found for this VIN."})
		return
	}
	if errors.Is(err, models.ErrValidation) {
		writeServiceError(w, err)
		return
	}
	if err != nil {
		h.logger.Error("vin analysis failed", zap.String("vin", vin), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, anomalies)
}
