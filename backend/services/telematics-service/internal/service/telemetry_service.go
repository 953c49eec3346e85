package service

import (
	"context"

	"go.uber.org/zap"

	"truckwatch/backend/services/telematics-service/internal/metrics"
	"truckwatch/backend/services/telematics-service/internal/models"
	"truckwatch/backend/services/telematics-service/internal/scope"
	"truckwatch/backend/services/telematics-service/internal/store"
)

// Archiver receives copies of stored records for out-of-process persistence.
type Archiver interface {
	EnqueueTelemetry(records []models.TelemetryRecord) int
	EnqueueAnomalies(records []models.AnomalyRecord) int
}

// TelemetryService handles ingestion and scoped reads over both stores.
type TelemetryService struct {
	telemetry *store.TelemetryStore
	anomalies *store.AnomalyStore
	archive   Archiver
	logger    *zap.Logger
}

// NewTelemetryService returns service instance. archive may be nil.
func NewTelemetryService(telemetry *store.TelemetryStore, anomalies *store.AnomalyStore, archive Archiver, logger *zap.Logger) *TelemetryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelemetryService{
		telemetry: telemetry,
		anomalies: anomalies,
		archive:   archive,
		logger:    logger,
	}
}

// Ingest appends an upload to the telemetry store.
func (s *TelemetryService) Ingest(ctx context.Context, upload models.TelemetryUpload) (models.IngestResult, error) {
	res, err := s.telemetry.Append(upload)
	if err != nil {
		metrics.UploadsRejected.Inc()
		s.logger.Warn("upload rejected", zap.Int("rows", len(upload.Rows)), zap.Error(err))
		return models.IngestResult{}, err
	}

	metrics.RowsIngested.Add(float64(res.Appended))
	metrics.RowsDropped.Add(float64(res.Dropped))
	if s.archive != nil && len(res.Records) > 0 {
		s.archive.EnqueueTelemetry(res.Records)
	}

	s.logger.Info("telemetry ingested",
		zap.Int("appended", res.Appended),
		zap.Int("dropped", res.Dropped),
	)
	return models.IngestResult{Appended: res.Appended, Dropped: res.Dropped}, nil
}

// ListVINs returns every VIN with telemetry, sorted.
func (s *TelemetryService) ListVINs() []string {
	return s.telemetry.ListVINs()
}

// Telemetry returns readings in scope. Blank parameters leave that dimension open.
func (s *TelemetryService) Telemetry(vin, start, end string) ([]models.TelemetryRecord, error) {
	sc, err := scope.Parse(vin, start, end)
	if err != nil {
		return nil, err
	}
	return s.telemetry.Query(sc), nil
}

// VehicleTelemetry returns the full history of one vehicle. A blank VIN is a
// validation error.
func (s *TelemetryService) VehicleTelemetry(vin string) ([]models.TelemetryRecord, error) {
	vin, err := scope.RequireVIN(vin)
	if err != nil {
		return nil, err
	}
	return s.telemetry.Query(scope.ForVIN(vin)), nil
}

// Anomalies returns stored anomalies in scope, optionally of one type.
func (s *TelemetryService) Anomalies(vin, start, end, anomalyType string) ([]models.AnomalyRecord, error) {
	sc, err := scope.Parse(vin, start, end)
	if err != nil {
		return nil, err
	}
	return s.anomalies.Query(sc, anomalyType), nil
}

// Counts reports store sizes for health checks.
func (s *TelemetryService) Counts() (telemetry, anomalies int) {
	return s.telemetry.Len(), s.anomalies.Len()
}
