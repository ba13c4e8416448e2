// Package config collects the worker's startup parameters from the
// environment. Credentials can also be supplied as Docker secret files via
// the *_FILE variants.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        string
	DatabaseDSN string

	JiraBaseURL     string
	JiraProjectKey  string
	JiraIssueType   string
	JiraCredentials string // "email:api-token"

	SlackWebhookURL string
	NATSURL         string

	Workers     int
	CallTimeout int // seconds per external call
}

func Load() Config {
	return Config{
		Port:        getEnv("PORT", "3000"),
		DatabaseDSN: getSecret("DATABASE_DSN"),

		JiraBaseURL:     getSecret("JIRA_BASE_URL"),
		JiraProjectKey:  getEnv("JIRA_PROJECT_KEY", "MON"),
		JiraIssueType:   getEnv("JIRA_ISSUE_TYPE", "Task"),
		JiraCredentials: getSecret("JIRA_CREDENTIALS"),

		SlackWebhookURL: getSecret("SLACK_WEBHOOK_URL"),
		NATSURL:         getSecret("NATS_URL"),

		Workers:     getEnvInt("RECONCILE_WORKERS", 8),
		CallTimeout: getEnvInt("CALL_TIMEOUT", 10),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)

	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)

	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}

	return value
}

// getSecret reads KEY, falling back to the file named by KEY_FILE (the Docker
// secrets convention the deployment uses for credentials).
func getSecret(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	path := os.Getenv(key + "_FILE")

	if path == "" {
		return ""
	}

	raw, err := os.ReadFile(path)

	if err != nil {
		log.Printf("Cannot read %s: %v", key+"_FILE", err)
		return ""
	}

	return strings.TrimSpace(string(raw))
}
