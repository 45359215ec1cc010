package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/slack-go/slack"

	"slackgate-backend/internal/config"
	"slackgate-backend/internal/models"
	"slackgate-backend/internal/secrets"
	"slackgate-backend/internal/store"
)

// Fixed installer messages. The provider's own error string is the only
// variable text that ever reaches the caller.
const (
	msgMissingCode       = "Error: The required code is missing."
	msgExchangeFailed    = "Error: Failed to complete the token exchange."
	msgInstallForbidden  = "Error: Installation forbidden. Please contact the app owner."
	msgInstallRegistered = "Installation request accepted and registration completed."
)

type oauthCredentials struct {
	clientID     string
	clientSecret string
}

// InstallService performs the OAuth code exchange, authorizes the installing
// workspace/channel, and persists the accepted installation. Like the
// dispatcher, it is a straight-line pipeline: no retries, no intermediate
// state, each request decided exactly once.
type InstallService struct {
	cfg        *config.Config
	secrets    secrets.Store
	store      store.Store
	httpClient *http.Client
	now        func() time.Time

	credentials atomic.Pointer[oauthCredentials]
}

func NewInstallService(cfg *config.Config, sec secrets.Store, st store.Store) *InstallService {
	return &InstallService{
		cfg:     cfg,
		secrets: sec,
		store:   st,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		now: time.Now,
	}
}

// HandleInstall runs the install pipeline for one OAuth callback and returns
// the status code plus user-facing message.
func (s *InstallService) HandleInstall(ctx context.Context, code string) (int, string) {
	if code == "" {
		return http.StatusInternalServerError, msgMissingCode
	}

	status, typed, raw := s.exchangeCode(ctx, code)
	if typed == nil {
		return status, msgExchangeFailed
	}
	if !typed.Ok {
		// Business-level failure decided by the decoded body, not the
		// transport status; the provider's error string passes through.
		log.Printf("ERROR [InstallService] Token exchange rejected by provider: %s", typed.Error)
		return http.StatusInternalServerError, typed.Error
	}

	if !s.authorizeInstallation(typed) {
		log.Printf("ERROR [InstallService] Installation forbidden: team=%s channel=%s",
			typed.Team.ID, typed.IncomingWebhook.ChannelID)
		return http.StatusForbidden, msgInstallForbidden
	}

	s.persistInstallation(ctx, typed, raw)
	return http.StatusOK, msgInstallRegistered
}

// exchangeCode POSTs the authorization code with client credentials to the
// provider's token endpoint. The body is decoded twice: typed for the
// ok/error/team/webhook fields, raw for persistence. A nil typed response
// means the call produced nothing well-formed; the returned status is then
// the transport's (or 500 if there was no response at all).
func (s *InstallService) exchangeCode(ctx context.Context, code string) (int, *slack.OAuthV2Response, map[string]any) {
	clientID, clientSecret := s.oauthCredentials(ctx)

	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.SlackOAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		log.Printf("ERROR [InstallService] Failed to build token exchange request: %v", err)
		return http.StatusInternalServerError, nil, nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("ERROR [InstallService] Token exchange call failed: %v", err)
		return http.StatusInternalServerError, nil, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("ERROR [InstallService] Failed to read token exchange response: %v", err)
		return resp.StatusCode, nil, nil
	}

	var typed slack.OAuthV2Response
	if err := json.Unmarshal(body, &typed); err != nil {
		log.Printf("ERROR [InstallService] Malformed token exchange response: %v", err)
		return resp.StatusCode, nil, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		log.Printf("ERROR [InstallService] Malformed token exchange response: %v", err)
		return resp.StatusCode, nil, nil
	}

	return resp.StatusCode, &typed, raw
}

// oauthCredentials resolves the client id/secret once and caches them.
// Resolution failures are logged but never fail the request themselves; the
// exchange call fails naturally with invalid credentials.
func (s *InstallService) oauthCredentials(ctx context.Context) (string, string) {
	if cached := s.credentials.Load(); cached != nil {
		return cached.clientID, cached.clientSecret
	}

	clientID, idErr := s.secrets.Get(ctx, s.cfg.ClientIDKey)
	if idErr != nil {
		log.Printf("ERROR [InstallService] Unable to retrieve client id from secret store: %v", idErr)
	}
	clientSecret, secretErr := s.secrets.Get(ctx, s.cfg.ClientSecretKey)
	if secretErr != nil {
		log.Printf("ERROR [InstallService] Unable to retrieve client secret from secret store: %v", secretErr)
	}

	if idErr == nil && secretErr == nil {
		s.credentials.CompareAndSwap(nil, &oauthCredentials{clientID: clientID, clientSecret: clientSecret})
	}
	return clientID, clientSecret
}

// authorizeInstallation accepts the install when the team is allow-listed and
// the install is either workspace-wide (no incoming webhook channel) or bound
// to an allow-listed channel.
func (s *InstallService) authorizeInstallation(resp *slack.OAuthV2Response) bool {
	if !slices.Contains(s.cfg.SlackTeamIDs, resp.Team.ID) {
		return false
	}

	channelID := resp.IncomingWebhook.ChannelID
	if channelID == "" {
		// Workspace-level install, or the app was called directly.
		return true
	}

	return slices.Contains(s.cfg.SlackChannelIDs, channelID)
}

// persistInstallation writes the installation record. The install decision is
// already committed by the time this runs, so a write failure is logged and
// does not change the success response.
func (s *InstallService) persistInstallation(ctx context.Context, typed *slack.OAuthV2Response, raw map[string]any) {
	if typed.AccessToken == "" {
		log.Printf("ERROR [InstallService] Provider response carried no access token; skipping record write")
		return
	}

	rec := &models.InstallationRecord{
		AccessToken: typed.AccessToken,
		RequestUTC:  s.now().UTC().Format(time.RFC3339),
		Attributes:  flattenAttributes(raw),
	}

	if err := s.store.CreateInstallationRecord(ctx, rec); err != nil {
		log.Printf("ERROR [InstallService] Failed to persist installation record: %v", err)
		return
	}
	log.Printf("[InstallService] Registered installation for team %s (%s)", typed.Team.ID, typed.Team.Name)
}

// flattenAttributes flattens nested objects one level into parent_child keys
// and drops the ok flag. Everything else is kept verbatim.
func flattenAttributes(raw map[string]any) map[string]any {
	data := make(map[string]any, len(raw))
	for key, value := range raw {
		if nested, isMap := value.(map[string]any); isMap {
			for childKey, childValue := range nested {
				data[fmt.Sprintf("%s_%s", key, childKey)] = childValue
			}
			continue
		}
		if key == "ok" {
			continue
		}
		data[key] = value
	}
	return data
}
