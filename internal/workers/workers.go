package workers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
)

// Mode selects how a worker invocation behaves: blocking with a result payload,
// or fire-and-forget with only an acceptance status.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

// Envelope is the payload a worker hands back through a blocking invocation.
// The gateway reads Body; anything else is diagnostic.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Result is the outcome of an invocation as seen by the caller. Acceptance is
// signalled by a 2xx-class StatusCode; Payload carries the marshalled Envelope
// for blocking invocations and is empty for fire-and-forget ones.
type Result struct {
	StatusCode int
	Payload    []byte
}

// Accepted reports whether the invocation was taken on by the invoker.
func (r *Result) Accepted() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Worker performs the actual command work. Implementations receive the
// stripped payload (never the verification token) as form values, the
// platform's one-element-list convention preserved.
type Worker interface {
	Name() string
	Handle(ctx context.Context, payload url.Values) (*Envelope, error)
}

// Invoker dispatches a payload to a named worker. ModeSync blocks and returns
// the worker's envelope; ModeAsync returns as soon as the work is accepted.
type Invoker interface {
	Invoke(ctx context.Context, name string, payload url.Values, mode Mode) (*Result, error)
}

// Compile-time check to ensure Registry implements Invoker
var _ Invoker = (*Registry)(nil)

// Registry is an in-process Invoker holding the mapping between worker names
// and their implementations. Registration happens at startup; invocation is
// read-only, so no locking beyond the registration phase is needed.
type Registry struct {
	mu      sync.RWMutex
	workers map[string]Worker
}

// NewRegistry creates an empty worker registry.
func NewRegistry() *Registry {
	return &Registry{
		workers: make(map[string]Worker),
	}
}

// Register adds a worker under its own name.
func (r *Registry) Register(w Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.workers[w.Name()]; exists {
		log.Printf("WARN [WorkerRegistry] Worker '%s' is already registered. Overwriting.", w.Name())
	}
	r.workers[w.Name()] = w
	log.Printf("[WorkerRegistry] Registered worker: %s", w.Name())
}

// Invoke dispatches the payload to the named worker. Unknown names are an
// acceptance failure (404-class result), never an error: the caller decides
// what to tell the user.
func (r *Registry) Invoke(ctx context.Context, name string, payload url.Values, mode Mode) (*Result, error) {
	r.mu.RLock()
	worker, exists := r.workers[name]
	r.mu.RUnlock()

	invocationID := uuid.NewString()
	if !exists {
		log.Printf("ERROR [WorkerRegistry] Invoke %s: no worker registered under name '%s'", invocationID, name)
		return &Result{StatusCode: http.StatusNotFound}, nil
	}

	if mode == ModeAsync {
		// Fire-and-forget: the work outlives the inbound request, so it runs on
		// a context detached from the request's cancellation. Once accepted,
		// the caller holds no further handle on it; the worker's own callback
		// POST is the only completion signal.
		go func() {
			if _, err := worker.Handle(context.WithoutCancel(ctx), payload); err != nil {
				log.Printf("ERROR [WorkerRegistry] Invoke %s: async worker '%s' failed: %v", invocationID, name, err)
			}
		}()
		return &Result{StatusCode: http.StatusAccepted}, nil
	}

	envelope, err := worker.Handle(ctx, payload)
	if err != nil {
		// Blocking invocations are still "accepted": the worker ran. The error
		// surfaces as a malformed payload so the caller's result-extraction
		// path handles it, mirroring a worker crash behind a managed invoker.
		log.Printf("ERROR [WorkerRegistry] Invoke %s: sync worker '%s' failed: %v", invocationID, name, err)
		envelope = &Envelope{StatusCode: http.StatusInternalServerError, Error: err.Error()}
	}

	payloadBytes, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("ERROR [WorkerRegistry] Invoke %s: failed to marshal envelope from '%s': %v", invocationID, name, err)
		return &Result{StatusCode: http.StatusOK}, nil
	}
	return &Result{StatusCode: http.StatusOK, Payload: payloadBytes}, nil
}
