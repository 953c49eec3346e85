package subscriptions

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truckwatch/backend/services/telematics-service/internal/models"
)

func TestRegisterKeepsOrderAndDuplicates(t *testing.T) {
	r := NewRegistry()

	_, err := r.Register("VIN1", "http://a.example/hook")
	require.NoError(t, err)
	_, err = r.Register("VIN1", "https://b.example/hook")
	require.NoError(t, err)
	sub, err := r.Register("VIN1", "http://a.example/hook")
	require.NoError(t, err)

	want := []string{"http://a.example/hook", "https://b.example/hook", "http://a.example/hook"}
	assert.Equal(t, "VIN1", sub.VIN)
	assert.Equal(t, want, sub.Endpoints)
	assert.Equal(t, want, r.EndpointsFor("VIN1"))
}

func TestEndpointsForUnknownVIN(t *testing.T) {
	r := NewRegistry()
	got := r.EndpointsFor("nobody")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEndpointsForReturnsCopy(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("VIN1", "http://a.example/hook")
	require.NoError(t, err)

	got := r.EndpointsFor("VIN1")
	got[0] = "mutated"
	assert.Equal(t, []string{"http://a.example/hook"}, r.EndpointsFor("VIN1"))
}

func TestRegisterValidation(t *testing.T) {
	cases := map[string]struct {
		vin      string
		endpoint string
		field    string
	}{
		"blank vin":       {vin: "  ", endpoint: "http://a.example", field: "vin"},
		"blank endpoint":  {vin: "VIN1", endpoint: "", field: "endpoint"},
		"relative":        {vin: "VIN1", endpoint: "/hook", field: "endpoint"},
		"wrong scheme":    {vin: "VIN1", endpoint: "ftp://a.example/hook", field: "endpoint"},
		"no host":         {vin: "VIN1", endpoint: "http://", field: "endpoint"},
		"unparseable url": {vin: "VIN1", endpoint: "http://[::1", field: "endpoint"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewRegistry()
			_, err := r.Register(tc.vin, tc.endpoint)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrValidation))

			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Empty(t, r.List())
		})
	}
}

func TestListSortedByVIN(t *testing.T) {
	r := NewRegistry()
	for _, vin := range []string{"VIN3", "VIN1", "VIN2"} {
		_, err := r.Register(vin, "http://hooks.example/"+vin)
		require.NoError(t, err)
	}

	subs := r.List()
	require.Len(t, subs, 3)
	assert.Equal(t, "VIN1", subs[0].VIN)
	assert.Equal(t, "VIN3", subs[2].VIN)
	assert.Equal(t, []string{"http://hooks.example/VIN2"}, subs[1].Endpoints)
}

func TestConcurrentRegister(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Register("VIN1", "http://a.example/hook")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, r.EndpointsFor("VIN1"), 50)
}
