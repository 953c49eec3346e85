// Package scope turns raw vin/start/end request parameters into a validated
// query window shared by the telemetry and anomaly stores.
package scope

import (
	"strings"
	"time"

	"truckwatch/backend/services/telematics-service/internal/models"
)

// Scope selects records by VIN and an inclusive time window.
// An empty VIN matches every vehicle; a zero bound leaves that side open.
type Scope struct {
	VIN  string
	From time.Time
	To   time.Time
}

// All matches every record.
func All() Scope {
	return Scope{}
}

// ForVIN matches every record of a single vehicle.
func ForVIN(vin string) Scope {
	return Scope{VIN: vin}
}

// Parse validates raw request parameters. Blank bounds are unbounded,
// malformed bounds and inverted windows are validation errors.
func Parse(vin, start, end string) (Scope, error) {
	s := Scope{VIN: strings.TrimSpace(vin)}

	if raw := strings.TrimSpace(start); raw != "" {
		from, err := ParseTimestamp(raw)
		if err != nil {
			return Scope{}, models.NewValidationError("start", "malformed timestamp "+quote(raw))
		}
		s.From = from
	}
	if raw := strings.TrimSpace(end); raw != "" {
		to, err := ParseTimestamp(raw)
		if err != nil {
			return Scope{}, models.NewValidationError("end", "malformed timestamp "+quote(raw))
		}
		s.To = to
	}
	if !s.From.IsZero() && !s.To.IsZero() && s.From.After(s.To) {
		return Scope{}, models.NewValidationError("start", "must not be after end")
	}
	return s, nil
}

// RequireVIN trims vin and rejects a blank value. Use it where an empty VIN
// must not widen the query to every vehicle.
func RequireVIN(vin string) (string, error) {
	vin = strings.TrimSpace(vin)
	if vin == "" {
		return "", models.NewValidationError("vin", "is required")
	}
	return vin, nil
}

// WithVIN returns a copy of the scope narrowed to vin.
func (s Scope) WithVIN(vin string) Scope {
	s.VIN = vin
	return s
}

// Contains reports whether a record with the given VIN and timestamp is in scope.
func (s Scope) Contains(vin string, ts time.Time) bool {
	if s.VIN != "" && s.VIN != vin {
		return false
	}
	return s.InWindow(ts)
}

// InWindow checks only the time bounds, both inclusive.
func (s Scope) InWindow(ts time.Time) bool {
	if !s.From.IsZero() && ts.Before(s.From) {
		return false
	}
	if !s.To.IsZero() && ts.After(s.To) {
		return false
	}
	return true
}

func quote(raw string) string {
	const max = 64
	if len(raw) > max {
		raw = raw[:max] + "..."
	}
	return `"` + raw + `"`
}
