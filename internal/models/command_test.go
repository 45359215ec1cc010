package models

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullCommandValues() url.Values {
	return url.Values{
		"token":        {"sekrit"},
		"api_app_id":   {"A0000000001"},
		"team_id":      {"T0000000001"},
		"team_domain":  {"example"},
		"channel_id":   {"C0000000001"},
		"channel_name": {"general"},
		"command":      {"/myapp"},
		"user_id":      {"U0000000001"},
		"user_name":    {"alice"},
		"response_url": {"https://hooks.slack.invalid/commands/1/2/xyz"},
		"trigger_id":   {"13345224609.738474920.8088930838d88f008e0"},
		"text":         {"Async do the thing"},
	}
}

func TestParseCommandRequest(t *testing.T) {
	t.Run("Success_AllFields", func(t *testing.T) {
		req, err := ParseCommandRequest(fullCommandValues())

		require.NoError(t, err)
		assert.Equal(t, "T0000000001", req.TeamID)
		assert.Equal(t, "/myapp", req.Command)
		assert.Equal(t, "Async do the thing", req.Text)
		assert.Equal(t, "https://hooks.slack.invalid/commands/1/2/xyz", req.ResponseURL)
	})

	t.Run("Success_TextIsOptional", func(t *testing.T) {
		values := fullCommandValues()
		values.Del("text")

		req, err := ParseCommandRequest(values)

		require.NoError(t, err)
		assert.Empty(t, req.Text)
	})

	t.Run("Failure_EachRequiredFieldMissing", func(t *testing.T) {
		for _, field := range requiredCommandFields {
			values := fullCommandValues()
			values.Del(field)

			_, err := ParseCommandRequest(values)

			assert.ErrorIs(t, err, ErrMissingField, "field %s", field)
		}
	})

	t.Run("Failure_EmptyRequiredField", func(t *testing.T) {
		values := fullCommandValues()
		values.Set("user_id", "")

		_, err := ParseCommandRequest(values)

		assert.ErrorIs(t, err, ErrMissingField)
	})
}

func TestWorkerPayload(t *testing.T) {
	req, err := ParseCommandRequest(fullCommandValues())
	require.NoError(t, err)

	payload := req.WorkerPayload()

	assert.NotContains(t, payload, "token")
	assert.NotContains(t, payload, "trigger_id")
	assert.Equal(t, "U0000000001", payload.Get("user_id"))
	assert.Equal(t, "Async do the thing", payload.Get("text"))

	// The payload is a copy; mutating it must not leak back into the request.
	payload.Set("user_id", "U9999999999")
	assert.Equal(t, "U0000000001", req.WorkerPayload().Get("user_id"))
}

func TestFirstTextToken(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"async", "async"},
		{"ASYNC do the thing", "async"},
		{"  Async\tdo", "async"},
		{"sync-ish work", "sync-ish"},
		{"", ""},
		{"   ", ""},
	}

	for _, tc := range cases {
		req := &CommandRequest{Text: tc.text}
		assert.Equal(t, tc.want, req.FirstTextToken(), "text %q", tc.text)
	}
}
