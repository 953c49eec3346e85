// Package store holds the in-memory, append-only telemetry and anomaly tables.
package store

import (
	"sort"
	"sync"
	"time"

	"truckwatch/backend/services/telematics-service/internal/scope"
)

// table is an insertion-ordered, append-only log with a per-VIN index.
// A batch is published under a single write lock, so readers observe
// either every row of it or none.
type table[T any] struct {
	mu    sync.RWMutex
	rows  []T
	byVIN map[string][]int
	key   func(T) (string, time.Time)
}

func newTable[T any](key func(T) (string, time.Time)) *table[T] {
	return &table[T]{
		byVIN: make(map[string][]int),
		key:   key,
	}
}

func (t *table[T]) appendBatch(batch []T) {
	if len(batch) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, row := range batch {
		vin, _ := t.key(row)
		t.byVIN[vin] = append(t.byVIN[vin], len(t.rows))
		t.rows = append(t.rows, row)
	}
}

// query copies out matching rows in insertion order. keep may be nil.
func (t *table[T]) query(s scope.Scope, keep func(T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]T, 0)
	match := func(row T) {
		vin, ts := t.key(row)
		if !s.Contains(vin, ts) {
			return
		}
		if keep != nil && !keep(row) {
			return
		}
		result = append(result, row)
	}

	if s.VIN != "" {
		for _, idx := range t.byVIN[s.VIN] {
			match(t.rows[idx])
		}
		return result
	}
	for _, row := range t.rows {
		match(row)
	}
	return result
}

func (t *table[T]) vins() []string {
	t.mu.RLock()
	vins := make([]string, 0, len(t.byVIN))
	for vin := range t.byVIN {
		vins = append(vins, vin)
	}
	t.mu.RUnlock()

	sort.Strings(vins)
	return vins
}

func (t *table[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
