package notifier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func respond(status int) doerFunc {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
}

func TestWebhookPostSetsHeaders(t *testing.T) {
	var got *http.Request
	var body string
	client := NewWebhookClient(doerFunc(func(r *http.Request) (*http.Response, error) {
		got = r
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		return respond(http.StatusNoContent)(r)
	}), time.Second)

	err := client.Post(context.Background(), "http://hooks.example/a", EventAnomalyDetected, "delivery-1", []byte(`{"vin":"VIN1"}`))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "delivery-1", got.Header.Get(HeaderDeliveryID))
	assert.Equal(t, EventAnomalyDetected, got.Header.Get(HeaderEvent))
	assert.JSONEq(t, `{"vin":"VIN1"}`, body)
}

func TestWebhookPostStatusHandling(t *testing.T) {
	for _, status := range []int{200, 201, 204, 299} {
		err := NewWebhookClient(respond(status), time.Second).Post(context.Background(), "http://h.example", "e", "id", nil)
		assert.NoError(t, err, "status %d", status)
	}
	for _, status := range []int{301, 400, 404, 500, 503} {
		err := NewWebhookClient(respond(status), time.Second).Post(context.Background(), "http://h.example", "e", "id", nil)
		assert.Error(t, err, "status %d", status)
	}
}

func TestWebhookPostTransportError(t *testing.T) {
	client := NewWebhookClient(doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}), time.Second)
	err := client.Post(context.Background(), "http://h.example", "e", "id", []byte("{}"))
	assert.EqualError(t, err, "connection refused")
}
