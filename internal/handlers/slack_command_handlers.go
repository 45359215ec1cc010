package handlers

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"

	"slackgate-backend/internal/models"
	"slackgate-backend/pkg/httputil"
)

// CommandDispatcher defines the interface expected from the dispatch service.
// This promotes loose coupling and testability.
type CommandDispatcher interface {
	HandleCommand(ctx context.Context, values url.Values) string
}

// SlackCommandHandler is the HTTP boundary for the slash-command webhook.
type SlackCommandHandler struct {
	dispatcher CommandDispatcher
}

func NewSlackCommandHandler(dispatcher CommandDispatcher) *SlackCommandHandler {
	return &SlackCommandHandler{
		dispatcher: dispatcher,
	}
}

// HandleSlashCommand handles POST /slack/command. Slack expects a 200 with a
// JSON message no matter what went wrong, so every outcome of the dispatch
// pipeline (including unparseable bodies) ends up in the same reply shape.
func (h *SlackCommandHandler) HandleSlashCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("ERROR [SlackCommandHandler] Failed to read request body: %v", err)
		body = nil
	}
	defer r.Body.Close()

	values, err := url.ParseQuery(string(body))
	if err != nil {
		log.Printf("ERROR [SlackCommandHandler] Failed to parse form body: %v", err)
		values = url.Values{} // dispatch rejects the empty set as unsupported
	}

	message := h.dispatcher.HandleCommand(r.Context(), values)

	httputil.RespondJSON(w, http.StatusOK, models.CommandReply{
		ResponseType: "in_channel", // visible to all channel members
		Text:         message,
	})
}
