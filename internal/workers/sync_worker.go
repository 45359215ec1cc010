package workers

import (
	"context"
	"fmt"
	"log"
	"net/url"
)

// Compile-time check to ensure SyncWorker implements Worker
var _ Worker = (*SyncWorker)(nil)

// SyncWorker handles short-lived work inside the gateway's blocking call. It
// must stay within the platform's few-second response budget, so nothing that
// can stall unpredictably (network calls, retries) belongs in Handle; work
// that might is routed to the async worker instead.
type SyncWorker struct {
	name string
}

// NewSyncWorker creates a sync worker registered under the given name.
func NewSyncWorker(name string) *SyncWorker {
	return &SyncWorker{name: name}
}

func (w *SyncWorker) Name() string {
	return w.name
}

// Handle produces a short confirmation referencing the invoking user and
// command, returned through the blocking invocation's envelope.
func (w *SyncWorker) Handle(_ context.Context, payload url.Values) (*Envelope, error) {
	userID := payload.Get("user_id")
	command := payload.Get("command")

	message := fmt.Sprintf("Processed <@%s> %s by sync worker.", userID, command)
	log.Printf("[SyncWorker] %s", message)

	return &Envelope{StatusCode: 200, Body: message}, nil
}
