package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"slices"
	"sync/atomic"

	"slackgate-backend/internal/config"
	"slackgate-backend/internal/models"
	"slackgate-backend/internal/secrets"
	"slackgate-backend/internal/workers"
)

// genericUnsupportedMessage is the reply for structurally invalid requests.
// Deliberately content-free: a malformed request never learns which field it
// was missing.
const genericUnsupportedMessage = "Sorry, this app does not support this request."

// DispatchService is the command gateway core: it authenticates, authorizes
// and dispatches an inbound slash command, and composes the user-visible
// reply. One instance serves all requests; the only mutable state is the
// lazily-resolved verification token (first writer wins, so a racing
// initialization is harmless).
type DispatchService struct {
	cfg     *config.Config
	secrets secrets.Store
	invoker workers.Invoker

	verificationToken atomic.Pointer[string]
}

func NewDispatchService(cfg *config.Config, sec secrets.Store, invoker workers.Invoker) *DispatchService {
	return &DispatchService{
		cfg:     cfg,
		secrets: sec,
		invoker: invoker,
	}
}

// HandleCommand runs the full dispatch pipeline for one slash command and
// returns the reply text. Every failure path is terminal for the request and
// maps to a reply; the transport layer always answers 200.
func (s *DispatchService) HandleCommand(ctx context.Context, values url.Values) string {
	req, err := models.ParseCommandRequest(values)
	if err != nil {
		log.Printf("ERROR [DispatchService] Rejecting malformed slash-command payload: %v", err)
		return genericUnsupportedMessage
	}

	// Authenticate before authorize: a bad token must never learn which
	// policy dimension it would have violated.
	if !s.authenticate(ctx, req.Token) {
		return fmt.Sprintf("Sorry <@%s>, an authentication error occurred. Please contact your admin.", req.UserID)
	}

	if violated := s.authorize(req); violated != "" {
		log.Printf("ERROR [DispatchService] Authorization failed for user %s: unexpected %s", req.UserID, violated)
		return fmt.Sprintf("Sorry <@%s>, this app does not support this %s.", req.UserID, violated)
	}

	log.Printf("[DispatchService] %s invoked %s in %s with the following text: %s",
		req.UserName, req.Command, req.ChannelName, req.Text)

	if req.Command != s.cfg.SlackCommand || req.Text == "" {
		// Default/help path: echo the received command and text verbatim.
		return fmt.Sprintf("<@%s>, this app does not support `%s %s`.", req.UserID, req.Command, req.Text)
	}

	return s.dispatch(ctx, req)
}

// authenticate compares the request token against the verification token from
// the secret store. The local bypass is gated explicitly by configuration and
// never inferred. Lookup failures and mismatches are indistinguishable to the
// caller.
func (s *DispatchService) authenticate(ctx context.Context, token string) bool {
	if s.cfg.AuthBypassLocal {
		return true
	}

	expected, err := s.expectedToken(ctx)
	if err != nil {
		log.Printf("ERROR [DispatchService] Unable to retrieve verification token from secret store: %v", err)
		return false
	}

	if token != expected {
		log.Printf("ERROR [DispatchService] Request token does not match expected")
		return false
	}

	return true
}

// expectedToken resolves the verification token once and caches it for the
// process lifetime. Lookup errors are not cached, so a transient secret-store
// failure only fails the requests it overlaps.
func (s *DispatchService) expectedToken(ctx context.Context) (string, error) {
	if cached := s.verificationToken.Load(); cached != nil {
		return *cached, nil
	}

	value, err := s.secrets.Get(ctx, s.cfg.VerificationTokenKey)
	if err != nil {
		return "", err
	}

	// First writer wins; concurrent initializers resolve the same value.
	s.verificationToken.CompareAndSwap(nil, &value)
	return value, nil
}

// authorize checks the trust policy in fixed order: app id, team id, team
// domain, channel id. It returns the first violated dimension (with the
// offending value, for operator debugging) or "" when all checks pass. The
// reply names only that one dimension, never the allow-lists themselves.
func (s *DispatchService) authorize(req *models.CommandRequest) string {
	if s.cfg.SlackAppID != "" && req.APIAppID != s.cfg.SlackAppID {
		return fmt.Sprintf("app ID %s", req.APIAppID)
	}

	if !slices.Contains(s.cfg.SlackTeamIDs, req.TeamID) {
		return fmt.Sprintf("team ID %s", req.TeamID)
	}

	if !slices.Contains(s.cfg.SlackTeamDomains, req.TeamDomain) {
		return fmt.Sprintf("team domain %s", req.TeamDomain)
	}

	if !slices.Contains(s.cfg.SlackChannelIDs, req.ChannelID) {
		return fmt.Sprintf("channel ID %s", req.ChannelID)
	}

	return ""
}

// dispatch chooses the mode from the first text token, invokes the bound
// worker with the stripped payload, and composes the reply.
func (s *DispatchService) dispatch(ctx context.Context, req *models.CommandRequest) string {
	payload := req.WorkerPayload()

	mode := workers.ModeSync
	workerName := s.cfg.SyncWorkerName
	if req.FirstTextToken() == "async" {
		mode = workers.ModeAsync
		workerName = s.cfg.AsyncWorkerName
	}

	fallback := fmt.Sprintf("<@%s>, your request on %s `%s %s` cannot be processed at the moment. Please try again later.",
		req.UserID, req.ChannelName, req.Command, req.Text)

	result, err := s.invoker.Invoke(ctx, workerName, payload, mode)
	if err != nil || !result.Accepted() {
		log.Printf("ERROR [DispatchService] Invocation of worker %s not accepted: result=%+v err=%v", workerName, result, err)
		return fallback
	}

	if mode == workers.ModeAsync {
		return fmt.Sprintf("Processing request from <@%s> on %s: %s %s",
			req.UserID, req.ChannelName, req.Command, req.Text)
	}

	var envelope workers.Envelope
	if err := json.Unmarshal(result.Payload, &envelope); err != nil || envelope.Body == "" {
		// Distinct from acceptance failure: the worker ran but its result is
		// unusable. Same user-facing fallback, separate diagnostic trail.
		log.Printf("ERROR [DispatchService] Failed to retrieve response from sync worker %s: payload=%s err=%v",
			workerName, string(result.Payload), err)
		return fallback
	}

	return fmt.Sprintf("<@%s>: %s %s\n%s", req.UserID, req.Command, req.Text, envelope.Body)
}
