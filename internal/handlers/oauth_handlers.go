package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"slackgate-backend/internal/models"
	"slackgate-backend/pkg/httputil"
)

// Installer defines the interface expected from the install service.
type Installer interface {
	HandleInstall(ctx context.Context, code string) (int, string)
}

// OAuthHandler is the HTTP boundary for the OAuth install callback.
type OAuthHandler struct {
	installer Installer
}

func NewOAuthHandler(installer Installer) *OAuthHandler {
	return &OAuthHandler{
		installer: installer,
	}
}

// HandleInstallCallback handles GET /slack/oauth. The reply keeps the
// proxy-style envelope shape (statusCode plus a JSON-encoded message string)
// with the HTTP status mirroring the envelope's.
func (h *OAuthHandler) HandleInstallCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")

	status, message := h.installer.HandleInstall(r.Context(), code)

	encodedMessage, err := json.Marshal(message)
	if err != nil {
		log.Printf("ERROR [OAuthHandler] Failed to encode install message: %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httputil.RespondJSON(w, status, models.OAuthEnvelope{
		StatusCode: status,
		Body:       string(encodedMessage),
	})
}
