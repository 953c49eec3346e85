package scope

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truckwatch/backend/services/telematics-service/internal/models"
)

func TestParseTimestampLayouts(t *testing.T) {
	want := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "rfc3339 utc", raw: "2024-01-01T08:00:00Z", want: want},
		{name: "rfc3339 offset", raw: "2024-01-01T10:00:00+02:00", want: want},
		{name: "naive T", raw: "2024-01-01T08:00:00", want: want},
		{name: "naive space", raw: "2024-01-01 08:00:00", want: want},
		{name: "fraction", raw: "2024-01-01T08:00:00.250", want: want.Add(250 * time.Millisecond)},
		{name: "minutes", raw: "2024-01-01T08:00", want: want},
		{name: "date only", raw: "2024-01-01", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "padded", raw: "  2024-01-01T08:00:00  ", want: want},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "yesterday", "2024-13-01", "08:00", "1704096000"} {
		_, err := ParseTimestamp(raw)
		assert.ErrorIs(t, err, ErrTimestamp, raw)
	}
}

func TestParseBlankBoundsAreUnbounded(t *testing.T) {
	s, err := Parse(" VIN1 ", "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "VIN1", s.VIN)
	assert.True(t, s.From.IsZero())
	assert.True(t, s.To.IsZero())
}

func TestParseMalformedBoundIsValidationError(t *testing.T) {
	_, err := Parse("VIN1", "not-a-time", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrValidation))

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "start", verr.Field)

	_, err = Parse("VIN1", "", "2024-02-30")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestParseInvertedWindow(t *testing.T) {
	_, err := Parse("", "2024-01-02", "2024-01-01")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestContainsIsInclusive(t *testing.T) {
	s, err := Parse("VIN1", "2024-01-01T08:00:00", "2024-01-01T10:00:00")
	require.NoError(t, err)

	at := func(raw string) time.Time {
		ts, err := ParseTimestamp(raw)
		require.NoError(t, err)
		return ts
	}

	assert.True(t, s.Contains("VIN1", at("2024-01-01T08:00:00")))
	assert.True(t, s.Contains("VIN1", at("2024-01-01T09:00:00")))
	assert.True(t, s.Contains("VIN1", at("2024-01-01T10:00:00")))
	assert.False(t, s.Contains("VIN1", at("2024-01-01T07:59:59")))
	assert.False(t, s.Contains("VIN1", at("2024-01-01T10:00:01")))
	assert.False(t, s.Contains("VIN2", at("2024-01-01T09:00:00")))

	open := s.WithVIN("")
	assert.True(t, open.Contains("VIN2", at("2024-01-01T09:00:00")))
	assert.True(t, All().Contains("any", time.Time{}.Add(time.Hour)))
}

func TestRequireVIN(t *testing.T) {
	vin, err := RequireVIN("  VIN1 ")
	require.NoError(t, err)
	assert.Equal(t, "VIN1", vin)

	_, err = RequireVIN(" \t")
	assert.ErrorIs(t, err, models.ErrValidation)
}
