// Package archive mirrors accepted telemetry and detected anomalies into an
// external database in the background. The in-memory stores stay authoritative;
// nothing is read back from the archive.
package archive

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"truckwatch/backend/services/telematics-service/internal/metrics"
	"truckwatch/backend/services/telematics-service/internal/models"
)

const (
	tableTelemetry = "vehicle_telemetry"
	tableAnomalies = "vehicle_anomalies"
)

// Sink is the batch destination, implemented by Repository.
type Sink interface {
	WriteTelemetry(ctx context.Context, records []models.TelemetryRecord) error
	WriteAnomalies(ctx context.Context, records []models.AnomalyRecord) error
}

// Config bounds batching and buffering.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	QueueSize     int
	RetryDelay    time.Duration
}

// Writer buffers records and flushes them in batches on size or interval.
// Enqueue never blocks; records that do not fit are dropped and counted.
type Writer struct {
	sink   Sink
	cfg    Config
	logger *zap.Logger

	telemetry chan models.TelemetryRecord
	anomalies chan models.AnomalyRecord

	dropped atomic.Int64
}

// NewWriter builds a writer; call Run to start flushing.
func NewWriter(sink Sink, cfg Config, logger *zap.Logger) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		sink:      sink,
		cfg:       cfg,
		logger:    logger,
		telemetry: make(chan models.TelemetryRecord, cfg.QueueSize),
		anomalies: make(chan models.AnomalyRecord, cfg.QueueSize),
	}
}

// EnqueueTelemetry buffers records and returns how many were accepted.
func (w *Writer) EnqueueTelemetry(records []models.TelemetryRecord) int {
	accepted := 0
	for _, rec := range records {
		select {
		case w.telemetry <- rec:
			accepted++
		default:
		}
	}
	w.countDropped(tableTelemetry, len(records)-accepted)
	return accepted
}

// EnqueueAnomalies buffers records and returns how many were accepted.
func (w *Writer) EnqueueAnomalies(records []models.AnomalyRecord) int {
	accepted := 0
	for _, rec := range records {
		select {
		case w.anomalies <- rec:
			accepted++
		default:
		}
	}
	w.countDropped(tableAnomalies, len(records)-accepted)
	return accepted
}

// Dropped returns the number of records rejected by a full buffer.
func (w *Writer) Dropped() int64 {
	return w.dropped.Load()
}

func (w *Writer) countDropped(table string, n int) {
	if n <= 0 {
		return
	}
	w.dropped.Add(int64(n))
	metrics.ArchiveWrites.WithLabelValues(table, "dropped").Add(float64(n))
	w.logger.Warn("archive buffer full", zap.String("table", table), zap.Int("dropped", n))
}

// Run flushes until ctx is done, then flushes what is left and returns.
func (w *Writer) Run(ctx context.Context) error {
	telemetry := make([]models.TelemetryRecord, 0, w.cfg.BatchSize)
	anomalies := make([]models.AnomalyRecord, 0, w.cfg.BatchSize)
	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	flushAll := func(ctx context.Context) {
		if len(telemetry) > 0 {
			w.flushTelemetry(ctx, telemetry)
			telemetry = telemetry[:0]
		}
		if len(anomalies) > 0 {
			w.flushAnomalies(ctx, anomalies)
			anomalies = anomalies[:0]
		}
	}

	for {
		select {
		case rec := <-w.telemetry:
			telemetry = append(telemetry, rec)
			if len(telemetry) >= w.cfg.BatchSize {
				w.flushTelemetry(ctx, telemetry)
				telemetry = telemetry[:0]
			}

		case rec := <-w.anomalies:
			anomalies = append(anomalies, rec)
			if len(anomalies) >= w.cfg.BatchSize {
				w.flushAnomalies(ctx, anomalies)
				anomalies = anomalies[:0]
			}

		case <-ticker.C:
			flushAll(ctx)

		case <-ctx.Done():
			telemetry, anomalies = w.drain(telemetry, anomalies)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			flushAll(shutdownCtx)
			cancel()
			return nil
		}
	}
}

// drain moves whatever is buffered in the channels into the pending batches.
func (w *Writer) drain(telemetry []models.TelemetryRecord, anomalies []models.AnomalyRecord) ([]models.TelemetryRecord, []models.AnomalyRecord) {
	for {
		select {
		case rec := <-w.telemetry:
			telemetry = append(telemetry, rec)
		case rec := <-w.anomalies:
			anomalies = append(anomalies, rec)
		default:
			return telemetry, anomalies
		}
	}
}

func (w *Writer) flushTelemetry(ctx context.Context, batch []models.TelemetryRecord) {
	w.flush(ctx, tableTelemetry, len(batch), func(ctx context.Context) error {
		return w.sink.WriteTelemetry(ctx, batch)
	})
}

func (w *Writer) flushAnomalies(ctx context.Context, batch []models.AnomalyRecord) {
	w.flush(ctx, tableAnomalies, len(batch), func(ctx context.Context) error {
		return w.sink.WriteAnomalies(ctx, batch)
	})
}

// flush retries a failed write once after RetryDelay.
func (w *Writer) flush(ctx context.Context, table string, size int, write func(context.Context) error) {
	err := write(ctx)
	if err != nil {
		w.logger.Warn("archive write failed, retrying", zap.String("table", table), zap.Int("batch", size), zap.Error(err))
		select {
		case <-time.After(w.cfg.RetryDelay):
		case <-ctx.Done():
		}
		err = write(ctx)
	}
	if err != nil {
		w.logger.Error("archive write permanently failed", zap.String("table", table), zap.Int("batch", size), zap.Error(err))
		metrics.ArchiveWrites.WithLabelValues(table, "failure").Add(float64(size))
		return
	}
	metrics.ArchiveWrites.WithLabelValues(table, "success").Add(float64(size))
}
