package models

import "time"

// AnomalyTypeIsolationForest tags anomalies produced by the isolation forest detector.
const AnomalyTypeIsolationForest = "iforest"

// AnomalyRecord is a telemetry reading flagged by a detection run.
type AnomalyRecord struct {
	TelemetryRecord
	AnomalyType string    `json:"anomaly_type"`
	IsAnomaly   bool      `json:"is_anomaly"`
	Score       float64   `json:"score"`
	RunID       string    `json:"run_id"`
	DetectedAt  time.Time `json:"detected_at"`
}
