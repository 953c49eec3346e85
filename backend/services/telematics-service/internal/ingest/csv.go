// Package ingest turns uploaded CSV files into typed telemetry rows.
// Values that fail to parse become nil and are dropped later by the store.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"truckwatch/backend/services/telematics-service/internal/models"
	"truckwatch/backend/services/telematics-service/internal/scope"
)

const utf8BOM = "\ufeff"

// ParseCSV reads a header line followed by telemetry rows. Only a missing
// header or a malformed CSV stream is an error.
func ParseCSV(r io.Reader) (models.TelemetryUpload, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return models.TelemetryUpload{}, models.NewValidationError("file", "empty csv")
	}
	if err != nil {
		return models.TelemetryUpload{}, models.NewValidationError("file", fmt.Sprintf("malformed csv header: %v", err))
	}

	columns := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		columns[i] = name
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	upload := models.TelemetryUpload{Columns: columns}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.TelemetryUpload{}, models.NewValidationError("file", fmt.Sprintf("malformed csv: %v", err))
		}
		upload.Rows = append(upload.Rows, parseRow(record, index))
	}
	return upload, nil
}

func parseRow(record []string, index map[string]int) models.TelemetryRow {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	return models.TelemetryRow{
		VIN:           field(models.ColumnVIN),
		Timestamp:     parseTime(field(models.ColumnTimestamp)),
		Latitude:      parseFloat(field(models.ColumnLatitude)),
		Longitude:     parseFloat(field(models.ColumnLongitude)),
		Hour:          parseInt(field(models.ColumnHour)),
		DayOfWeek:     parseInt(field(models.ColumnDayOfWeek)),
		DistM:         parseFloat(field(models.ColumnDistM)),
		TruckTypeCode: parseInt(field(models.ColumnTruckTypeCode)),
	}
}

func parseTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	ts, err := scope.ParseTimestamp(raw)
	if err != nil {
		return nil
	}
	return &ts
}

func parseFloat(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseInt also accepts integral floats such as "3.0".
func parseInt(raw string) *int {
	if raw == "" {
		return nil
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return &v
	}
	f := parseFloat(raw)
	if f == nil || *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt32 {
		return nil
	}
	v := int(*f)
	return &v
}
