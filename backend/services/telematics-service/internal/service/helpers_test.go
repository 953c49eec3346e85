package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"truckwatch/backend/services/telematics-service/internal/models"
	"truckwatch/backend/services/telematics-service/internal/store"
)

var base = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func row(vin string, offset time.Duration, dist float64) models.TelemetryRow {
	ts := base.Add(offset)
	return models.TelemetryRow{
		VIN:           vin,
		Timestamp:     &ts,
		Latitude:      ptr(52.52),
		Longitude:     ptr(13.40),
		Hour:          ptr(ts.Hour()),
		DayOfWeek:     ptr(int(ts.Weekday())),
		DistM:         ptr(dist),
		TruckTypeCode: ptr(3),
	}
}

func seed(s *store.TelemetryStore, rows ...models.TelemetryRow) {
	if _, err := s.Append(models.TelemetryUpload{Columns: models.RequiredColumns, Rows: rows}); err != nil {
		panic(err)
	}
}

// thresholdDetector flags every row whose distance exceeds limit.
type thresholdDetector struct {
	limit float64
	fail  map[string]error
	panic map[string]bool
	delay time.Duration

	active  sync.Map
	maxSeen atomic.Int64
	calls   atomic.Int64
}

func (d *thresholdDetector) Detect(ctx context.Context, rows []models.TelemetryRecord) ([]models.AnomalyRecord, error) {
	d.calls.Add(1)
	vin := rows[0].VIN

	counter, _ := d.active.LoadOrStore(vin, new(atomic.Int64))
	n := counter.(*atomic.Int64).Add(1)
	defer counter.(*atomic.Int64).Add(-1)
	for {
		seen := d.maxSeen.Load()
		if n <= seen || d.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}

	if d.panic[vin] {
		panic("corrupt forest")
	}
	if err := d.fail[vin]; err != nil {
		return nil, err
	}

	out := make([]models.AnomalyRecord, 0)
	for _, r := range rows {
		if r.DistM > d.limit {
			out = append(out, models.AnomalyRecord{
				TelemetryRecord: r,
				AnomalyType:     models.AnomalyTypeIsolationForest,
				IsAnomaly:       true,
				Score:           0.8,
			})
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	calls   map[string][]models.AnomalyRecord
	batches int
}

func (n *recordingNotifier) Notify(vin string, anomalies ...models.AnomalyRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.calls == nil {
		n.calls = make(map[string][]models.AnomalyRecord)
	}
	n.calls[vin] = append(n.calls[vin], anomalies...)
	n.batches++
}

type recordingArchive struct {
	mu        sync.Mutex
	telemetry int
	anomalies int
}

func (a *recordingArchive) EnqueueTelemetry(r []models.TelemetryRecord) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.telemetry += len(r)
	return len(r)
}

func (a *recordingArchive) EnqueueAnomalies(r []models.AnomalyRecord) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.anomalies += len(r)
	return len(r)
}

var errModel = errors.New("model diverged")

// lockCheckingNotifier records whether the VIN run lock was free when Notify ran.
type lockCheckingNotifier struct {
	svc         *AnalysisService
	lockWasFree bool
	batches     int
}

func (n *lockCheckingNotifier) Notify(vin string, anomalies ...models.AnomalyRecord) {
	lock := n.svc.lockFor(vin)
	if lock.TryLock() {
		n.lockWasFree = true
		lock.Unlock()
	}
	n.batches++
}
