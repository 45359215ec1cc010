package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Compile-time check to ensure AsyncWorker implements Worker
var _ Worker = (*AsyncWorker)(nil)

// CallbackMessage is the JSON body POSTed to the caller-supplied response URL
// when async work completes. ReplaceOriginal is a string on the wire per
// Slack's response_url contract, so the field is not a bool here.
type CallbackMessage struct {
	ReplaceOriginal string `json:"replace_original"`
	ResponseType    string `json:"response_type"` // visible to all channel members
	Text            string `json:"text"`
}

// AsyncWorker handles work that cannot finish inside the response budget. It
// is invoked fire-and-forget; its only completion signal is a single
// best-effort POST to the payload's response_url.
type AsyncWorker struct {
	name       string
	httpClient *http.Client
}

// NewAsyncWorker creates an async worker registered under the given name.
func NewAsyncWorker(name string) *AsyncWorker {
	return &AsyncWorker{
		name: name,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (w *AsyncWorker) Name() string {
	return w.name
}

// Handle performs the long-running work, then delivers the result to the
// caller's response URL. Delivery failures are logged, not escalated: the
// gateway has already acknowledged the request and holds no handle on it.
func (w *AsyncWorker) Handle(ctx context.Context, payload url.Values) (*Envelope, error) {
	userID := payload.Get("user_id")
	command := payload.Get("command")
	channel := payload.Get("channel_name")
	commandText := payload.Get("text")
	responseURL := payload.Get("response_url")

	if responseURL == "" {
		return nil, fmt.Errorf("async payload is missing response_url")
	}

	message := fmt.Sprintf("<@%s> invoked `%s` in %s with the following text: `%s`",
		userID, command, channel, commandText)
	log.Printf("[AsyncWorker] %s", message)

	if err := w.postToResponseURL(ctx, responseURL, message); err != nil {
		log.Printf("ERROR [AsyncWorker] Failed to deliver result to response URL: %v", err)
	}

	return &Envelope{StatusCode: 200}, nil
}

// postToResponseURL issues exactly one POST with the completion message.
func (w *AsyncWorker) postToResponseURL(ctx context.Context, responseURL, message string) error {
	body, err := json.Marshal(CallbackMessage{
		ReplaceOriginal: "false",
		ResponseType:    "in_channel",
		Text:            message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal callback message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, responseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("callback POST failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	log.Printf("[AsyncWorker] Callback POST returned %d: %s", resp.StatusCode, string(respBody))
	return nil
}
