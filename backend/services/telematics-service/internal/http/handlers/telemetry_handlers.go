package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"truckwatch/backend/services/telematics-service/internal/ingest"
	"truckwatch/backend/services/telematics-service/internal/service"
)

// TelemetryHandlers serves ingestion and read endpoints.
type TelemetryHandlers struct {
	service     *service.TelemetryService
	uploadLimit int64
	logger      *zap.Logger
}

// NewTelemetryHandlers returns handler.
func NewTelemetryHandlers(service *service.TelemetryService, uploadLimit int64, logger *zap.Logger) *TelemetryHandlers {
	return &TelemetryHandlers{service: service, uploadLimit: uploadLimit, logger: logger}
}

// Upload handles POST /upload with a multipart "file" CSV.
func (h *TelemetryHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadLimit)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart form with a file field is required")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	upload, err := ingest.ParseCSV(file)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.service.Ingest(r.Context(), upload)
	if err != nil {
		if writeServiceError(w, err) {
			h.logger.Error("ingest failed", zap.Error(err))
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Upload successful",
		"rows":    result.Appended,
		"dropped": result.Dropped,
	})
}

// Trucks handles GET /trucks.
func (h *TelemetryHandlers) Trucks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ListVINs())
}

// Behavior handles GET /truck/{vin}/behavior.
func (h *TelemetryHandlers) Behavior(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.VehicleTelemetry(r.PathValue("vin"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Data handles GET /data. With anomaly_type set it returns stored anomalies
// of that type, otherwise raw telemetry.
func (h *TelemetryHandlers) Data(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vin, start, end := q.Get("vin"), q.Get("start"), q.Get("end")

	if anomalyType := strings.TrimSpace(q.Get("anomaly_type")); anomalyType != "" {
		records, err := h.service.Anomalies(vin, start, end, anomalyType)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
		return
	}

	records, err := h.service.Telemetry(vin, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
