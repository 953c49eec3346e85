package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"truckwatch/backend/services/telematics-service/internal/models"
)

var telemetryColumns = []string{
	"vin",
	"recorded_at",
	"latitude",
	"longitude",
	"hour",
	"day_of_week",
	"dist_m",
	"truck_type_code",
}

var anomalyColumns = []string{
	"vin",
	"recorded_at",
	"latitude",
	"longitude",
	"hour",
	"day_of_week",
	"dist_m",
	"truck_type_code",
	"anomaly_type",
	"score",
	"run_id",
	"detected_at",
}

const schema = `
	CREATE TABLE IF NOT EXISTS vehicle_telemetry (
		vin             TEXT             NOT NULL,
		recorded_at     TIMESTAMPTZ      NOT NULL,
		latitude        DOUBLE PRECISION NOT NULL,
		longitude       DOUBLE PRECISION NOT NULL,
		hour            SMALLINT         NOT NULL,
		day_of_week     SMALLINT         NOT NULL,
		dist_m          DOUBLE PRECISION NOT NULL,
		truck_type_code INTEGER          NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_vehicle_telemetry_vin_time ON vehicle_telemetry (vin, recorded_at);

	CREATE TABLE IF NOT EXISTS vehicle_anomalies (
		vin             TEXT             NOT NULL,
		recorded_at     TIMESTAMPTZ      NOT NULL,
		latitude        DOUBLE PRECISION NOT NULL,
		longitude       DOUBLE PRECISION NOT NULL,
		hour            SMALLINT         NOT NULL,
		day_of_week     SMALLINT         NOT NULL,
		dist_m          DOUBLE PRECISION NOT NULL,
		truck_type_code INTEGER          NOT NULL,
		anomaly_type    TEXT             NOT NULL,
		score           DOUBLE PRECISION NOT NULL,
		run_id          TEXT             NOT NULL,
		detected_at     TIMESTAMPTZ      NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_vehicle_anomalies_vin_time ON vehicle_anomalies (vin, recorded_at);
`

// Repository mirrors stored records into Postgres. It is write-only.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the archive tables when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("archive schema: %w", err)
	}
	return nil
}

// WriteTelemetry bulk-loads telemetry records with COPY.
func (r *Repository) WriteTelemetry(ctx context.Context, records []models.TelemetryRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = telemetryValues(rec)
	}
	if _, err := r.pool.CopyFrom(ctx, pgx.Identifier{"vehicle_telemetry"}, telemetryColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy telemetry batch of %d: %w", len(records), err)
	}
	return nil
}

// WriteAnomalies bulk-loads anomaly records with COPY.
func (r *Repository) WriteAnomalies(ctx context.Context, records []models.AnomalyRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = append(telemetryValues(rec.TelemetryRecord),
			rec.AnomalyType,
			rec.Score,
			rec.RunID,
			rec.DetectedAt,
		)
	}
	if _, err := r.pool.CopyFrom(ctx, pgx.Identifier{"vehicle_anomalies"}, anomalyColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy anomaly batch of %d: %w", len(records), err)
	}
	return nil
}

func telemetryValues(rec models.TelemetryRecord) []any {
	return []any{
		rec.VIN,
		rec.Timestamp,
		rec.Latitude,
		rec.Longitude,
		int16(rec.Hour),
		int16(rec.DayOfWeek),
		rec.DistM,
		int32(rec.TruckTypeCode),
	}
}
