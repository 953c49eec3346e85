package store

import (
	"time"

	"truckwatch/backend/services/telematics-service/internal/models"
	"truckwatch/backend/services/telematics-service/internal/scope"
)

// AnomalyStore accumulates detector output across runs. Batches from
// overlapping runs are appended as-is; nothing is deduplicated.
type AnomalyStore struct {
	table *table[models.AnomalyRecord]
}

// NewAnomalyStore returns an empty store.
func NewAnomalyStore() *AnomalyStore {
	return &AnomalyStore{
		table: newTable(func(r models.AnomalyRecord) (string, time.Time) {
			return r.VIN, r.Timestamp
		}),
	}
}

// Append stores a completed run's batch atomically and returns its size.
func (s *AnomalyStore) Append(records []models.AnomalyRecord) int {
	s.table.appendBatch(records)
	return len(records)
}

// Query returns anomalies in scope, optionally restricted to one anomaly type.
func (s *AnomalyStore) Query(sc scope.Scope, anomalyType string) []models.AnomalyRecord {
	if anomalyType == "" {
		return s.table.query(sc, nil)
	}
	return s.table.query(sc, func(r models.AnomalyRecord) bool {
		return r.AnomalyType == anomalyType
	})
}

// ListVINs returns VINs that have at least one anomaly, sorted.
func (s *AnomalyStore) ListVINs() []string {
	return s.table.vins()
}

// Len returns the number of stored anomalies.
func (s *AnomalyStore) Len() int {
	return s.table.len()
}
