package store

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"truckwatch/backend/services/telematics-service/internal/models"
	"truckwatch/backend/services/telematics-service/internal/scope"
)

// ErrMissingColumns rejects an upload whose schema lacks a required column.
var ErrMissingColumns = errors.New("missing required columns")

// AppendResult reports how an upload was split between stored and dropped rows.
type AppendResult struct {
	Appended int
	Dropped  int
	Records  []models.TelemetryRecord
}

// TelemetryStore keeps every accepted telemetry reading for the process lifetime.
type TelemetryStore struct {
	table *table[models.TelemetryRecord]
}

// NewTelemetryStore returns an empty store.
func NewTelemetryStore() *TelemetryStore {
	return &TelemetryStore{
		table: newTable(func(r models.TelemetryRecord) (string, time.Time) {
			return r.VIN, r.Timestamp
		}),
	}
}

// Append validates an upload and stores its valid rows as one atomic batch.
// A column missing from the schema rejects the whole upload; a row with a
// missing value, blank VIN or unparsed timestamp is dropped on its own.
func (s *TelemetryStore) Append(upload models.TelemetryUpload) (AppendResult, error) {
	if missing := missingColumns(upload.Columns); len(missing) > 0 {
		return AppendResult{}, &columnsError{missing: missing}
	}

	records := make([]models.TelemetryRecord, 0, len(upload.Rows))
	for _, row := range upload.Rows {
		record, ok := ValidateRow(row)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	s.table.appendBatch(records)

	return AppendResult{
		Appended: len(records),
		Dropped:  len(upload.Rows) - len(records),
		Records:  records,
	}, nil
}

// Query returns records in scope in insertion order.
func (s *TelemetryStore) Query(sc scope.Scope) []models.TelemetryRecord {
	return s.table.query(sc, nil)
}

// ListVINs returns the distinct VINs seen so far, sorted.
func (s *TelemetryStore) ListVINs() []string {
	return s.table.vins()
}

// Len returns the number of stored records.
func (s *TelemetryStore) Len() int {
	return s.table.len()
}

// ValidateRow converts a parsed row into a record, reporting false when any
// required value is absent, not finite, or hour/day_of_week is out of range.
func ValidateRow(row models.TelemetryRow) (models.TelemetryRecord, bool) {
	vin := strings.TrimSpace(row.VIN)
	if vin == "" || row.Timestamp == nil || row.Timestamp.IsZero() {
		return models.TelemetryRecord{}, false
	}
	if row.Latitude == nil || row.Longitude == nil || row.DistM == nil ||
		row.Hour == nil || row.DayOfWeek == nil || row.TruckTypeCode == nil {
		return models.TelemetryRecord{}, false
	}
	if !finite(*row.Latitude) || !finite(*row.Longitude) || !finite(*row.DistM) {
		return models.TelemetryRecord{}, false
	}
	if *row.Hour < 0 || *row.Hour > 23 || *row.DayOfWeek < 0 || *row.DayOfWeek > 6 {
		return models.TelemetryRecord{}, false
	}

	return models.TelemetryRecord{
		VIN:           vin,
		Timestamp:     row.Timestamp.UTC(),
		Latitude:      *row.Latitude,
		Longitude:     *row.Longitude,
		Hour:          *row.Hour,
		DayOfWeek:     *row.DayOfWeek,
		DistM:         *row.DistM,
		TruckTypeCode: *row.TruckTypeCode,
	}, true
}

func missingColumns(columns []string) []string {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	var missing []string
	for _, required := range models.RequiredColumns {
		if _, ok := present[required]; !ok {
			missing = append(missing, required)
		}
	}
	return missing
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// columnsError matches both ErrMissingColumns and models.ErrValidation.
type columnsError struct {
	missing []string
}

func (e *columnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns, strings.Join(e.missing, ", "))
}

func (e *columnsError) Is(target error) bool {
	return target == ErrMissingColumns || target == models.ErrValidation
}
