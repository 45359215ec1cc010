package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"slackgate-backend/internal/models"
	"slackgate-backend/pkg/httputil"
)

// InstallationLister defines the store surface the ops handler needs.
type InstallationLister interface {
	ListInstallationRecords(ctx context.Context) ([]models.InstallationRecord, error)
}

// InstallationsHandler serves the authenticated ops view of persisted
// installations.
type InstallationsHandler struct {
	store InstallationLister
}

func NewInstallationsHandler(lister InstallationLister) *InstallationsHandler {
	return &InstallationsHandler{
		store: lister,
	}
}

// HandleListInstallations handles GET /v1/installations. Tokens are redacted
// to a prefix; token-bearing attributes never leave the store through here.
func (h *InstallationsHandler) HandleListInstallations(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListInstallationRecords(r.Context())
	if err != nil {
		log.Printf("ERROR [InstallationsHandler] Failed to list installation records: %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to list installations")
		return
	}

	summaries := make([]models.InstallationSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, summarize(rec))
	}

	httputil.RespondJSON(w, http.StatusOK, models.ListInstallationsResponse{
		Installations: summaries,
		Count:         len(summaries),
	})
}

func summarize(rec models.InstallationRecord) models.InstallationSummary {
	summary := models.InstallationSummary{
		TokenPrefix: fmt.Sprintf("%.8s...", rec.AccessToken),
		RequestUTC:  rec.RequestUTC,
	}

	attrs := make(map[string]any, len(rec.Attributes))
	for key, value := range rec.Attributes {
		if strings.Contains(key, "token") {
			continue
		}
		attrs[key] = value
	}
	summary.Attributes = attrs

	if teamID, ok := attrs["team_id"].(string); ok {
		summary.TeamID = teamID
	}
	if teamName, ok := attrs["team_name"].(string); ok {
		summary.TeamName = teamName
	}

	return summary
}
