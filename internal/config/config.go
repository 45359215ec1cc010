package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration values loaded from environment variables.
// It is constructed once at process start and passed by reference into the
// gateway and installer; nothing reads ambient environment state after that.
type Config struct {
	HTTPPort    string
	DatabaseURL string

	// Trust policy for inbound slash commands.
	SlackAppID       string   // optional; empty disables the app-id check
	SlackCommand     string   // expected command name, e.g. "/myapp"
	SlackTeamIDs     []string // allow-lists, comma-separated in the environment
	SlackTeamDomains []string
	SlackChannelIDs  []string

	// Secret-store key names (not the secrets themselves).
	VerificationTokenKey string
	ClientIDKey          string
	ClientSecretKey      string

	// Worker names bound to the two dispatch modes.
	SyncWorkerName  string
	AsyncWorkerName string

	InstallationsTable string
	SlackOAuthURL      string // token endpoint; overridable for local testing

	// AuthBypassLocal skips verification-token checking entirely. Only ever
	// set this for local development against fake payloads.
	AuthBypassLocal bool

	OpsJWTSecret string
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
		// Don't fail if .env is not present, might be in production
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set.")
	}

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseURL: dbURL,

		SlackAppID:       getEnv("SLACK_APP_ID", ""),
		SlackCommand:     getEnv("SLACK_COMMAND", ""),
		SlackTeamIDs:     splitList(getEnv("SLACK_TEAM_IDS", "")),
		SlackTeamDomains: splitList(getEnv("SLACK_TEAM_DOMAINS", "")),
		SlackChannelIDs:  splitList(getEnv("SLACK_CHANNEL_IDS", "")),

		VerificationTokenKey: getEnv("SLACK_VERIFICATION_TOKEN_KEY", "SLACK_VERIFICATION_TOKEN"),
		ClientIDKey:          getEnv("SLACK_CLIENT_ID_KEY", "SLACK_CLIENT_ID"),
		ClientSecretKey:      getEnv("SLACK_CLIENT_SECRET_KEY", "SLACK_CLIENT_SECRET"),

		SyncWorkerName:  getEnv("SYNC_WORKER_NAME", "SyncWorker"),
		AsyncWorkerName: getEnv("ASYNC_WORKER_NAME", "AsyncWorker"),

		InstallationsTable: getEnv("INSTALLATIONS_TABLE", "slack_installations"),
		SlackOAuthURL:      getEnv("SLACK_OAUTH_URL", "https://slack.com/api/oauth.v2.access"),

		AuthBypassLocal: getEnv("AUTH_BYPASS_LOCAL", "false") == "true",

		OpsJWTSecret: getEnv("OPS_JWT_SECRET", "default-super-secret-key"), // CHANGE THIS IN PRODUCTION!
	}

	if cfg.SlackCommand == "" {
		log.Println("Warning: SLACK_COMMAND is not set; every command will take the help path.")
	}
	if cfg.AuthBypassLocal {
		log.Println("WARN [Config] AUTH_BYPASS_LOCAL=true: verification-token checks are DISABLED.")
	}

	log.Printf("Loaded config: Port=%s, DB_URL=***, Command=%s, Teams=%d, Domains=%d, Channels=%d",
		cfg.HTTPPort, cfg.SlackCommand, len(cfg.SlackTeamIDs), len(cfg.SlackTeamDomains), len(cfg.SlackChannelIDs))

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Env variable %s not set, using default: %s", key, fallback)
	return fallback
}

// splitList splits a comma-separated env value into trimmed entries.
// Empty input yields an empty (not one-element) list.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
