package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slackgate-backend/internal/config"
	"slackgate-backend/internal/secrets"
	"slackgate-backend/internal/workers"
)

// fakeSecretStore serves secrets from a fixed map.
type fakeSecretStore struct {
	values map[string]string
}

func (f *fakeSecretStore) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", secrets.ErrNotFound, key)
	}
	return value, nil
}

type recordedInvocation struct {
	name    string
	payload url.Values
	mode    workers.Mode
}

// fakeInvoker records invocations and returns a canned result.
type fakeInvoker struct {
	result      *workers.Result
	err         error
	invocations []recordedInvocation
}

func (f *fakeInvoker) Invoke(_ context.Context, name string, payload url.Values, mode workers.Mode) (*workers.Result, error) {
	f.invocations = append(f.invocations, recordedInvocation{name: name, payload: payload, mode: mode})
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testDispatchConfig() *config.Config {
	return &config.Config{
		SlackAppID:           "A0000000001",
		SlackCommand:         "/myapp",
		SlackTeamIDs:         []string{"T0000000001"},
		SlackTeamDomains:     []string{"example"},
		SlackChannelIDs:      []string{"C0000000001"},
		VerificationTokenKey: "SLACK_VERIFICATION_TOKEN",
		SyncWorkerName:       "SyncWorker",
		AsyncWorkerName:      "AsyncWorker",
	}
}

func validCommandValues(text string) url.Values {
	values := url.Values{}
	values.Set("token", "sekrit")
	values.Set("api_app_id", "A0000000001")
	values.Set("team_id", "T0000000001")
	values.Set("team_domain", "example")
	values.Set("channel_id", "C0000000001")
	values.Set("channel_name", "general")
	values.Set("command", "/myapp")
	values.Set("user_id", "U0000000001")
	values.Set("user_name", "alice")
	values.Set("response_url", "https://hooks.slack.invalid/commands/T0000000001/1/xyz")
	values.Set("trigger_id", "13345224609.738474920.8088930838d88f008e0")
	if text != "" {
		values.Set("text", text)
	}
	return values
}

func setupDispatchService(cfg *config.Config, invoker *fakeInvoker) *DispatchService {
	sec := &fakeSecretStore{values: map[string]string{"SLACK_VERIFICATION_TOKEN": "sekrit"}}
	return NewDispatchService(cfg, sec, invoker)
}

func TestHandleCommand_Authentication(t *testing.T) {
	t.Run("Failure_TokenMismatch", func(t *testing.T) {
		invoker := &fakeInvoker{}
		svc := setupDispatchService(testDispatchConfig(), invoker)

		values := validCommandValues("hello")
		values.Set("token", "wrong")

		reply := svc.HandleCommand(context.Background(), values)

		assert.Equal(t, "Sorry <@U0000000001>, an authentication error occurred. Please contact your admin.", reply)
		assert.Empty(t, invoker.invocations, "no downstream invocation may happen on auth failure")
	})

	t.Run("Failure_SecretStoreUnavailable", func(t *testing.T) {
		invoker := &fakeInvoker{}
		svc := NewDispatchService(testDispatchConfig(), &fakeSecretStore{values: map[string]string{}}, invoker)

		reply := svc.HandleCommand(context.Background(), validCommandValues("hello"))

		// Indistinguishable from a plain token mismatch, by design.
		assert.Equal(t, "Sorry <@U0000000001>, an authentication error occurred. Please contact your admin.", reply)
		assert.Empty(t, invoker.invocations)
	})

	t.Run("Success_LocalBypass", func(t *testing.T) {
		cfg := testDispatchConfig()
		cfg.AuthBypassLocal = true
		invoker := &fakeInvoker{result: &workers.Result{StatusCode: http.StatusAccepted}}
		svc := NewDispatchService(cfg, &fakeSecretStore{values: map[string]string{}}, invoker)

		values := validCommandValues("async go")
		values.Set("token", "anything")

		reply := svc.HandleCommand(context.Background(), values)

		assert.Contains(t, reply, "Processing request from")
		assert.Len(t, invoker.invocations, 1)
	})

	t.Run("Success_TokenCachedAcrossRequests", func(t *testing.T) {
		invoker := &fakeInvoker{result: &workers.Result{StatusCode: http.StatusAccepted}}
		sec := &fakeSecretStore{values: map[string]string{"SLACK_VERIFICATION_TOKEN": "sekrit"}}
		svc := NewDispatchService(testDispatchConfig(), sec, invoker)

		_ = svc.HandleCommand(context.Background(), validCommandValues("async one"))

		// Forget the secret; the cached value must keep serving.
		sec.values = map[string]string{}
		reply := svc.HandleCommand(context.Background(), validCommandValues("async two"))

		assert.Contains(t, reply, "Processing request from")
		assert.Len(t, invoker.invocations, 2)
	})
}

func TestHandleCommand_Authorization(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(url.Values)
		wantReply string
	}{
		{
			name:      "AppID",
			mutate:    func(v url.Values) { v.Set("api_app_id", "A9999999999") },
			wantReply: "Sorry <@U0000000001>, this app does not support this app ID A9999999999.",
		},
		{
			name:      "TeamID",
			mutate:    func(v url.Values) { v.Set("team_id", "T9999999999") },
			wantReply: "Sorry <@U0000000001>, this app does not support this team ID T9999999999.",
		},
		{
			name:      "TeamDomain",
			mutate:    func(v url.Values) { v.Set("team_domain", "evilcorp") },
			wantReply: "Sorry <@U0000000001>, this app does not support this team domain evilcorp.",
		},
		{
			name:      "ChannelID",
			mutate:    func(v url.Values) { v.Set("channel_id", "CCCCCCCCCCC") },
			wantReply: "Sorry <@U0000000001>, this app does not support this channel ID CCCCCCCCCCC.",
		},
	}

	for _, tc := range cases {
		t.Run("Failure_"+tc.name, func(t *testing.T) {
			invoker := &fakeInvoker{}
			svc := setupDispatchService(testDispatchConfig(), invoker)

			values := validCommandValues("hello")
			tc.mutate(values)

			reply := svc.HandleCommand(context.Background(), values)

			assert.Equal(t, tc.wantReply, reply)
			assert.Empty(t, invoker.invocations)
		})
	}

	t.Run("Failure_FirstViolationWins", func(t *testing.T) {
		invoker := &fakeInvoker{}
		svc := setupDispatchService(testDispatchConfig(), invoker)

		// Violate every dimension at once; the reply must name only the app id.
		values := validCommandValues("hello")
		values.Set("api_app_id", "A9999999999")
		values.Set("team_id", "T9999999999")
		values.Set("team_domain", "evilcorp")
		values.Set("channel_id", "CCCCCCCCCCC")

		reply := svc.HandleCommand(context.Background(), values)

		assert.Equal(t, "Sorry <@U0000000001>, this app does not support this app ID A9999999999.", reply)
	})

	t.Run("Success_AppIDCheckSkippedWhenUnconfigured", func(t *testing.T) {
		cfg := testDispatchConfig()
		cfg.SlackAppID = ""
		invoker := &fakeInvoker{result: &workers.Result{StatusCode: http.StatusAccepted}}
		svc := setupDispatchService(cfg, invoker)

		values := validCommandValues("async go")
		values.Set("api_app_id", "A9999999999")

		reply := svc.HandleCommand(context.Background(), values)

		assert.Contains(t, reply, "Processing request from")
	})
}

func TestHandleCommand_HelpPath(t *testing.T) {
	t.Run("UnknownCommand", func(t *testing.T) {
		invoker := &fakeInvoker{}
		svc := setupDispatchService(testDispatchConfig(), invoker)

		values := validCommandValues("hello")
		values.Set("command", "/other")

		reply := svc.HandleCommand(context.Background(), values)

		assert.Equal(t, "<@U0000000001>, this app does not support `/other hello`.", reply)
		assert.Empty(t, invoker.invocations)
	})

	t.Run("EmptyText", func(t *testing.T) {
		invoker := &fakeInvoker{}
		svc := setupDispatchService(testDispatchConfig(), invoker)

		reply := svc.HandleCommand(context.Background(), validCommandValues(""))

		assert.Equal(t, "<@U0000000001>, this app does not support `/myapp `.", reply)
		assert.Empty(t, invoker.invocations)
	})

	t.Run("MalformedPayload", func(t *testing.T) {
		invoker := &fakeInvoker{}
		svc := setupDispatchService(testDispatchConfig(), invoker)

		values := validCommandValues("hello")
		values.Del("team_id")

		reply := svc.HandleCommand(context.Background(), values)

		assert.Equal(t, "Sorry, this app does not support this request.", reply)
		assert.Empty(t, invoker.invocations)
	})
}

func TestHandleCommand_Dispatch(t *testing.T) {
	t.Run("Success_AsyncMode", func(t *testing.T) {
		invoker := &fakeInvoker{result: &workers.Result{StatusCode: http.StatusOK}}
		svc := setupDispatchService(testDispatchConfig(), invoker)

		reply := svc.HandleCommand(context.Background(), validCommandValues("async"))

		assert.Equal(t, "Processing request from <@U0000000001> on general: /myapp async", reply)
		require.Len(t, invoker.invocations, 1)
		assert.Equal(t, "AsyncWorker", invoker.invocations[0].name)
		assert.Equal(t, workers.ModeAsync, invoker.invocations[0].mode)
	})

	t.Run("Success_AsyncModeCaseInsensitive", func(t *testing.T) {
		invoker := &fakeInvoker{result: &workers.Result{StatusCode: http.StatusAccepted}}
		svc := setupDispatchService(testDispatchConfig(), invoker)

		reply := svc.HandleCommand(context.Background(), validCommandValues("ASYNC long job"))

		// The reply echoes the text verbatim; only mode selection normalizes case.
		assert.Equal(t, "Processing request from <@U0000000001> on general: /myapp ASYNC long job", reply)
		require.Len(t, invoker.invocations, 1)
		assert.Equal(t, workers.ModeAsync, invoker.invocations[0].mode)
	})

	t.Run("Success_SyncMode", func(t *testing.T) {
		invoker := &fakeInvoker{result: &workers.Result{
			StatusCode: http.StatusOK,
			Payload:    []byte(`{"statusCode":200,"body":"Processed <@U0000000001> /myapp by sync worker."}`),
		}}
		svc := setupDispatchService(testDispatchConfig(), invoker)

		reply := svc.HandleCommand(context.Background(), validCommandValues("hello"))

		assert.Equal(t, "<@U0000000001>: /myapp hello\nProcessed <@U0000000001> /myapp by sync worker.", reply)
		require.Len(t, invoker.invocations, 1)
		assert.Equal(t, "SyncWorker", invoker.invocations[0].name)
		assert.Equal(t, workers.ModeSync, invoker.invocations[0].mode)
	})

	t.Run("Success_PayloadStripsSecrets", func(t *testing.T) {
		invoker := &fakeInvoker{result: &workers.Result{StatusCode: http.StatusAccepted}}
		svc := setupDispatchService(testDispatchConfig(), invoker)

		_ = svc.HandleCommand(context.Background(), validCommandValues("async go"))

		require.Len(t, invoker.invocations, 1)
		payload := invoker.invocations[0].payload
		assert.Empty(t, payload.Get("token"))
		assert.Empty(t, payload.Get("trigger_id"))
		assert.Equal(t, "U0000000001", payload.Get("user_id"))
		assert.Equal(t, "async go", payload.Get("text"))
		assert.NotEmpty(t, payload.Get("response_url"))
	})

	t.Run("Failure_InvocationNotAccepted", func(t *testing.T) {
		invoker := &fakeInvoker{result: &workers.Result{StatusCode: http.StatusNotFound}}
		svc := setupDispatchService(testDispatchConfig(), invoker)

		reply := svc.HandleCommand(context.Background(), validCommandValues("hello"))

		assert.Equal(t, "<@U0000000001>, your request on general `/myapp hello` cannot be processed at the moment. Please try again later.", reply)
	})

	t.Run("Failure_InvocationError", func(t *testing.T) {
		invoker := &fakeInvoker{err: fmt.Errorf("invoker exploded")}
		svc := setupDispatchService(testDispatchConfig(), invoker)

		reply := svc.HandleCommand(context.Background(), validCommandValues("hello"))

		assert.Contains(t, reply, "cannot be processed at the moment")
	})

	t.Run("Failure_SyncResultExtraction", func(t *testing.T) {
		invoker := &fakeInvoker{result: &workers.Result{
			StatusCode: http.StatusOK,
			Payload:    []byte(`not json at all`),
		}}
		svc := setupDispatchService(testDispatchConfig(), invoker)

		reply := svc.HandleCommand(context.Background(), validCommandValues("hello"))

		// Same user-facing fallback as acceptance failure; only the logs differ.
		assert.Equal(t, "<@U0000000001>, your request on general `/myapp hello` cannot be processed at the moment. Please try again later.", reply)
	})

	t.Run("Failure_SyncResultMissingBody", func(t *testing.T) {
		invoker := &fakeInvoker{result: &workers.Result{
			StatusCode: http.StatusOK,
			Payload:    []byte(`{"statusCode":500,"error":"boom"}`),
		}}
		svc := setupDispatchService(testDispatchConfig(), invoker)

		reply := svc.HandleCommand(context.Background(), validCommandValues("hello"))

		assert.Contains(t, reply, "cannot be processed at the moment")
	})

	t.Run("Success_IdenticalRequestsDispatchIndependently", func(t *testing.T) {
		invoker := &fakeInvoker{result: &workers.Result{StatusCode: http.StatusAccepted}}
		svc := setupDispatchService(testDispatchConfig(), invoker)

		first := svc.HandleCommand(context.Background(), validCommandValues("async go"))
		second := svc.HandleCommand(context.Background(), validCommandValues("async go"))

		// No dedup: same reply, one fresh invocation each.
		assert.Equal(t, first, second)
		assert.Len(t, invoker.invocations, 2)
	})
}
