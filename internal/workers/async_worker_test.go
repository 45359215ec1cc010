package workers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asyncPayload(responseURL string) url.Values {
	return url.Values{
		"user_id":      {"U0000000001"},
		"command":      {"/myapp"},
		"channel_name": {"general"},
		"text":         {"async do the thing"},
		"response_url": {responseURL},
	}
}

func TestAsyncWorkerHandle(t *testing.T) {
	t.Run("Success_PostsSingleCallback", func(t *testing.T) {
		var calls int
		var gotBody []byte
		var gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			gotContentType = r.Header.Get("Content-Type")
			gotBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		worker := NewAsyncWorker("AsyncWorker")
		envelope, err := worker.Handle(context.Background(), asyncPayload(server.URL))

		require.NoError(t, err)
		assert.Equal(t, 200, envelope.StatusCode)
		require.Equal(t, 1, calls)
		assert.Equal(t, "application/json", gotContentType)

		var msg CallbackMessage
		require.NoError(t, json.Unmarshal(gotBody, &msg))
		assert.Equal(t, "false", msg.ReplaceOriginal)
		assert.Equal(t, "in_channel", msg.ResponseType)
		assert.Equal(t, "<@U0000000001> invoked `/myapp` in general with the following text: `async do the thing`", msg.Text)
	})

	t.Run("Success_DeliveryFailureIsNotEscalated", func(t *testing.T) {
		worker := NewAsyncWorker("AsyncWorker")

		// Nothing listens here; the POST fails, the worker still completes.
		envelope, err := worker.Handle(context.Background(), asyncPayload("http://127.0.0.1:1/nope"))

		require.NoError(t, err)
		assert.Equal(t, 200, envelope.StatusCode)
	})

	t.Run("Failure_MissingResponseURL", func(t *testing.T) {
		worker := NewAsyncWorker("AsyncWorker")
		payload := asyncPayload("")
		payload.Del("response_url")

		_, err := worker.Handle(context.Background(), payload)

		assert.Error(t, err)
	})
}
