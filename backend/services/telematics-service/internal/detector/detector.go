// Package detector flags outlying telemetry readings with an isolation forest
// fitted and scored on the same slice.
package detector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"truckwatch/backend/services/telematics-service/internal/models"
)

const (
	NumTrees      = 100
	MaxSamples    = 256
	Contamination = 0.05
	Seed          = 42
)

// ErrIncomplete is returned when the context ends before the forest is built.
var ErrIncomplete = errors.New("analysis incomplete")

// Detector is stateless between calls; it is safe for concurrent use.
type Detector struct {
	numTrees      int
	maxSamples    int
	contamination float64
	seed          int64
}

// New returns a detector with the fixed production parameters.
func New() *Detector {
	return &Detector{
		numTrees:      NumTrees,
		maxSamples:    MaxSamples,
		contamination: Contamination,
		seed:          Seed,
	}
}

// Detect returns the anomalous subset of rows, in input order, with AnomalyType,
// IsAnomaly and Score set. The same rows in the same order always produce the
// same result.
func (d *Detector) Detect(ctx context.Context, rows []models.TelemetryRecord) ([]models.AnomalyRecord, error) {
	candidates := make([]models.TelemetryRecord, 0, len(rows))
	features := make([][]float64, 0, len(rows))
	for _, r := range rows {
		x := r.Features()
		if !allFinite(x) {
			continue
		}
		candidates = append(candidates, r)
		features = append(features, x)
	}
	if len(features) == 0 {
		return []models.AnomalyRecord{}, nil
	}

	f, err := d.fit(ctx, features)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(features))
	for i, x := range features {
		scores[i] = f.score(x)
	}
	threshold := percentile(scores, 1-d.contamination)

	anomalies := make([]models.AnomalyRecord, 0)
	for i, s := range scores {
		if s <= threshold {
			continue
		}
		anomalies = append(anomalies, models.AnomalyRecord{
			TelemetryRecord: candidates[i],
			AnomalyType:     models.AnomalyTypeIsolationForest,
			IsAnomaly:       true,
			Score:           s,
		})
	}
	return anomalies, nil
}

func (d *Detector) fit(ctx context.Context, features [][]float64) (*forest, error) {
	rng := rand.New(rand.NewSource(d.seed))

	n := len(features)
	m := d.maxSamples
	if m > n {
		m = n
	}
	limit := heightLimit(m)

	f := &forest{trees: make([]*node, 0, d.numTrees), sampleSize: m}
	for i := 0; i < d.numTrees; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIncomplete, err)
		}
		idx := rng.Perm(n)[:m]
		sample := make([][]float64, m)
		for j, k := range idx {
			sample[j] = features[k]
		}
		f.trees = append(f.trees, buildTree(rng, sample, 0, limit))
	}
	return f, nil
}

// percentile uses linear interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (rank-float64(lo))*(sorted[hi]-sorted[lo])
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
