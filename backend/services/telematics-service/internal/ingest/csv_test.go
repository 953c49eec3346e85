package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truckwatch/backend/services/telematics-service/internal/models"
)

const header = "vin,timestamp,latitude,longitude,hour,day_of_week,dist_m,truck_type_code\n"

func TestParseCSV(t *testing.T) {
	body := header +
		"1FUJ,2024-01-01 08:15:00,52.52,13.40,8,0,120.5,3\n" +
		"1FUJ,2024-01-01T09:00:00Z,52.53,13.41,9.0,0,0,3\n"

	upload, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, models.RequiredColumns, upload.Columns)
	require.Len(t, upload.Rows, 2)

	first := upload.Rows[0]
	assert.Equal(t, "1FUJ", first.VIN)
	require.NotNil(t, first.Timestamp)
	assert.Equal(t, time.Date(2024, 1, 1, 8, 15, 0, 0, time.UTC), *first.Timestamp)
	assert.Equal(t, 52.52, *first.Latitude)
	assert.Equal(t, 13.40, *first.Longitude)
	assert.Equal(t, 8, *first.Hour)
	assert.Equal(t, 0, *first.DayOfWeek)
	assert.Equal(t, 120.5, *first.DistM)
	assert.Equal(t, 3, *first.TruckTypeCode)

	assert.Equal(t, 9, *upload.Rows[1].Hour)
}

func TestParseCSVNullsOutBadValues(t *testing.T) {
	body := header +
		"1FUJ,not-a-time,52.52,13.40,8,0,120.5,3\n" +
		"1FUJ,2024-01-01 08:15:00,,13.40,8,0,NaN,3\n" +
		"1FUJ,2024-01-01 08:15:00,52.52,13.40,8.5,0,1,x\n" +
		"1FUJ,2024-01-01 08:15:00,52.52\n"

	upload, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, upload.Rows, 4)

	assert.Nil(t, upload.Rows[0].Timestamp)
	assert.Nil(t, upload.Rows[1].Latitude)
	assert.Nil(t, upload.Rows[1].DistM)
	assert.NotNil(t, upload.Rows[1].Longitude)
	assert.Nil(t, upload.Rows[2].Hour)
	assert.Nil(t, upload.Rows[2].TruckTypeCode)
	assert.Nil(t, upload.Rows[3].Longitude)
	assert.NotNil(t, upload.Rows[3].Latitude)
}

func TestParseCSVHeaderNormalised(t *testing.T) {
	body := "\ufeffVIN , Timestamp,latitude,longitude,hour,day_of_week,dist_m,truck_type_code,extra\n" +
		"1FUJ,2024-01-01,1,2,3,4,5,6,ignored\n"

	upload, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "vin", upload.Columns[0])
	assert.Equal(t, "timestamp", upload.Columns[1])
	assert.Equal(t, "1FUJ", upload.Rows[0].VIN)
	assert.Equal(t, 6, *upload.Rows[0].TruckTypeCode)
}

func TestParseCSVMissingColumnKeepsSchema(t *testing.T) {
	body := "vin,timestamp,latitude\n1FUJ,2024-01-01,1\n"

	upload, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, []string{"vin", "timestamp", "latitude"}, upload.Columns)
	assert.Nil(t, upload.Rows[0].DistM)
}

func TestParseCSVErrors(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = ParseCSV(strings.NewReader(header + "\"unterminated,1,2\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrValidation))
}
