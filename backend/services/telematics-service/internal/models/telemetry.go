package models

import "time"

// Required telemetry columns, in the order they appear in uploads.
const (
	ColumnVIN           = "vin"
	ColumnTimestamp     = "timestamp"
	ColumnLatitude      = "latitude"
	ColumnLongitude     = "longitude"
	ColumnHour          = "hour"
	ColumnDayOfWeek     = "day_of_week"
	ColumnDistM         = "dist_m"
	ColumnTruckTypeCode = "truck_type_code"
)

// RequiredColumns lists every column a telemetry upload must carry.
var RequiredColumns = []string{
	ColumnVIN,
	ColumnTimestamp,
	ColumnLatitude,
	ColumnLongitude,
	ColumnHour,
	ColumnDayOfWeek,
	ColumnDistM,
	ColumnTruckTypeCode,
}

// TelemetryRecord is a single validated vehicle reading. Stored records are never mutated.
type TelemetryRecord struct {
	VIN           string    `json:"vin"`
	Timestamp     time.Time `json:"timestamp"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Hour          int       `json:"hour"`
	DayOfWeek     int       `json:"day_of_week"`
	DistM         float64   `json:"dist_m"`
	TruckTypeCode int       `json:"truck_type_code"`
}

// Features returns the detector feature vector in its fixed order.
func (r TelemetryRecord) Features() []float64 {
	return []float64{
		r.Latitude,
		r.Longitude,
		float64(r.Hour),
		float64(r.DayOfWeek),
		r.DistM,
		float64(r.TruckTypeCode),
	}
}

// TelemetryRow is a parsed but not yet validated upload row.
// A nil field means the value was absent or could not be parsed.
type TelemetryRow struct {
	VIN           string
	Timestamp     *time.Time
	Latitude      *float64
	Longitude     *float64
	Hour          *int
	DayOfWeek     *int
	DistM         *float64
	TruckTypeCode *int
}

// TelemetryUpload is one ingestion batch together with the schema it was read with.
type TelemetryUpload struct {
	Columns []string
	Rows    []TelemetryRow
}

// IngestResult summarises an accepted upload.
type IngestResult struct {
	Appended int `json:"rows"`
	Dropped  int `json:"dropped"`
}
