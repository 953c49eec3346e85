package store

import (
	"time"

	"truckwatch/backend/services/telematics-service/internal/models"
)

var base = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func row(vin string, offset time.Duration) models.TelemetryRow {
	ts := base.Add(offset)
	return models.TelemetryRow{
		VIN:           vin,
		Timestamp:     &ts,
		Latitude:      ptr(52.52),
		Longitude:     ptr(13.40),
		Hour:          ptr(ts.Hour()),
		DayOfWeek:     ptr(int(ts.Weekday())),
		DistM:         ptr(120.5),
		TruckTypeCode: ptr(3),
	}
}

func upload(rows ...models.TelemetryRow) models.TelemetryUpload {
	return models.TelemetryUpload{Columns: models.RequiredColumns, Rows: rows}
}
