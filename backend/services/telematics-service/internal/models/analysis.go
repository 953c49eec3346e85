package models

// AnalysisRequest carries raw, untrusted analysis parameters.
// Empty strings mean "all VINs" and "unbounded" respectively.
type AnalysisRequest struct {
	VIN   string `json:"vin"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// VINOutcome is the per-vehicle result of one analysis run.
type VINOutcome struct {
	Anomalies int    `json:"anomalies"`
	Error     string `json:"error,omitempty"`
}

// AnalysisReport aggregates a run across every targeted VIN.
type AnalysisReport struct {
	RunID   string                `json:"run_id"`
	Results map[string]VINOutcome `json:"results"`
	Total   int                   `json:"total"`

	// Detected holds the anomalies appended by this run, keyed by VIN.
	Detected map[string][]AnomalyRecord `json:"-"`
}

// Failed reports whether any VIN in the run ended with an error.
func (r *AnalysisReport) Failed() bool {
	for _, outcome := range r.Results {
		if outcome.Error != "" {
			return true
		}
	}
	return false
}
