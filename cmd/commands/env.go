package commands

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var (
	provider     string
	model        string
	apiURL       string
	apiKey       string
	googleAPIKey string
	timeout      string
	stateDir     string
	apiKeysEnv   string
	webhookToken string
	address      string
	sshTimeout   string
)

// loadEnv reads .env (when present) and then the environment.
func loadEnv() {
	_ = godotenv.Load()

	provider = getEnv("NETAGENT_LLM_PROVIDER", "openai")
	model = os.Getenv("NETAGENT_MODEL")
	apiURL = os.Getenv("NETAGENT_LLM_API_URL")
	apiKey = os.Getenv("NETAGENT_LLM_API_KEY")
	googleAPIKey = os.Getenv("GOOGLE_API_KEY")
	timeout = getEnv("NETAGENT_TIMEOUT", "5m")
	stateDir = getEnv("NETAGENT_STATE_DIR", "state")
	apiKeysEnv = os.Getenv("NETAGENT_API_KEYS")
	webhookToken = os.Getenv("NETAGENT_WEBHOOK_TOKEN")
	address = getEnv("NETAGENT_ADDRESS", ":8000")
	sshTimeout = getEnv("NETAGENT_SSH_TIMEOUT", "30s")

	if configPath == "" {
		configPath = os.Getenv("NETAGENT_CONFIG")
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultModel() string {
	if model != "" {
		return model
	}
	if provider == "gemini" {
		return "gemini-2.0-flash-lite"
	}
	return "gpt-4o-mini"
}

func apiKeys() []string {
	keys := []string{}
	for _, k := range strings.Split(apiKeysEnv, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
