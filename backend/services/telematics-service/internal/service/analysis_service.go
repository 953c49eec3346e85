package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"truckwatch/backend/services/telematics-service/internal/detector"
	"truckwatch/backend/services/telematics-service/internal/metrics"
	"truckwatch/backend/services/telematics-service/internal/models"
	"truckwatch/backend/services/telematics-service/internal/scope"
	"truckwatch/backend/services/telematics-service/internal/store"
)

var (
	// ErrSliceTooLarge marks a VIN whose scoped slice exceeds MaxSliceRows.
	ErrSliceTooLarge = errors.New("telemetry slice too large")
	// ErrNoTelemetry is returned when a single-VIN analysis has nothing to analyse.
	ErrNoTelemetry = errors.New("no telemetry for vin")
)

// Detector finds anomalous rows in one VIN slice.
type Detector interface {
	Detect(ctx context.Context, rows []models.TelemetryRecord) ([]models.AnomalyRecord, error)
}

// Notifier fans out one anomaly to subscribers.
type Notifier interface {
	Notify(vin string, anomalies ...models.AnomalyRecord)
}

// AnalysisConfig bounds a run.
type AnalysisConfig struct {
	MaxSliceRows int
	Timeout      time.Duration
	Parallelism  int
}

// AnalysisService runs detection over scoped telemetry and records the results.
type AnalysisService struct {
	telemetry *store.TelemetryStore
	anomalies *store.AnomalyStore
	detector  Detector
	notifier  Notifier
	archive   Archiver
	cfg       AnalysisConfig
	logger    *zap.Logger
	now       func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewAnalysisService returns service instance. notifier and archive may be nil.
func NewAnalysisService(
	telemetry *store.TelemetryStore,
	anomalies *store.AnomalyStore,
	det Detector,
	notifier Notifier,
	archive Archiver,
	cfg AnalysisConfig,
	logger *zap.Logger,
) *AnalysisService {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{
		telemetry: telemetry,
		anomalies: anomalies,
		detector:  det,
		notifier:  notifier,
		archive:   archive,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		locks:     make(map[string]*sync.Mutex),
	}
}

// Run analyses every targeted VIN. A failure on one VIN is recorded in its
// outcome and never stops the others; only malformed parameters fail the call.
func (s *AnalysisService) Run(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisReport, error) {
	sc, err := scope.Parse(req.VIN, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	vins := []string{sc.VIN}
	if sc.VIN == "" {
		vins = s.telemetry.ListVINs()
	}

	report := &models.AnalysisReport{
		RunID:    uuid.NewString(),
		Results:  make(map[string]models.VINOutcome, len(vins)),
		Detected: make(map[string][]models.AnomalyRecord, len(vins)),
	}
	logger := s.logger.With(zap.String("run_id", report.RunID))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Parallelism)
	for _, vin := range vins {
		g.Go(func() error {
			detected, err := s.analyseVIN(ctx, report.RunID, sc.WithVIN(vin))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.AnalysisVINFailures.WithLabelValues(failureReason(err)).Inc()
				logger.Error("vin analysis failed", zap.String("vin", vin), zap.Error(err))
				report.Results[vin] = models.VINOutcome{Error: err.Error()}
				return nil
			}
			report.Results[vin] = models.VINOutcome{Anomalies: len(detected)}
			report.Detected[vin] = detected
			report.Total += len(detected)
			return nil
		})
	}
	_ = g.Wait()

	metrics.AnalysisRuns.Inc()
	logger.Info("analysis finished", zap.Int("vins", len(vins)), zap.Int("anomalies", report.Total))
	return report, nil
}

// AnalyzeVIN runs a full-history analysis for one VIN and returns the anomalies it found.
// A blank VIN is a validation error.
func (s *AnalysisService) AnalyzeVIN(ctx context.Context, vin string) ([]models.AnomalyRecord, error) {
	vin, err := scope.RequireVIN(vin)
	if err != nil {
		return nil, err
	}
	if len(s.telemetry.Query(scope.ForVIN(vin))) == 0 {
		return nil, ErrNoTelemetry
	}

	report, err := s.Run(ctx, models.AnalysisRequest{VIN: vin})
	if err != nil {
		return nil, err
	}
	if outcome := report.Results[vin]; outcome.Error != "" {
		return nil, errors.New(outcome.Error)
	}
	return report.Detected[vin], nil
}

func (s *AnalysisService) analyseVIN(ctx context.Context, runID string, sc scope.Scope) (detected []models.AnomalyRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			detected = nil
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()

	detected, err = s.detectVIN(ctx, runID, sc)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil && len(detected) > 0 {
		s.notifier.Notify(sc.VIN, detected...)
	}
	return detected, nil
}

// detectVIN runs detection and stores the result under the VIN's run lock.
// Notification happens after the lock is released.
func (s *AnalysisService) detectVIN(ctx context.Context, runID string, sc scope.Scope) ([]models.AnomalyRecord, error) {
	lock := s.lockFor(sc.VIN)
	lock.Lock()
	defer lock.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %w", detector.ErrIncomplete, ctxErr)
	}

	rows := s.telemetry.Query(sc)
	if len(rows) == 0 {
		return []models.AnomalyRecord{}, nil
	}
	if s.cfg.MaxSliceRows > 0 && len(rows) > s.cfg.MaxSliceRows {
		return nil, fmt.Errorf("%w: %d rows exceeds limit of %d", ErrSliceTooLarge, len(rows), s.cfg.MaxSliceRows)
	}

	started := time.Now()
	anomalies, err := s.detector.Detect(ctx, rows)
	metrics.AnalysisDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}

	detectedAt := s.now()
	for i := range anomalies {
		anomalies[i].RunID = runID
		anomalies[i].DetectedAt = detectedAt
	}

	s.anomalies.Append(anomalies)
	metrics.AnomaliesDetected.Add(float64(len(anomalies)))
	if s.archive != nil && len(anomalies) > 0 {
		s.archive.EnqueueAnomalies(anomalies)
	}
	return anomalies, nil
}

// lockFor serialises runs for the same VIN; different VINs proceed in parallel.
func (s *AnalysisService) lockFor(vin string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[vin]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[vin] = lock
	}
	return lock
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrSliceTooLarge):
		return "too_large"
	case errors.Is(err, detector.ErrIncomplete):
		return "incomplete"
	default:
		return "detector"
	}
}
