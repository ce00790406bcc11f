package commands

import (
	"context"
	"os"
	"path/filepath"

	"github.com/netagent/netagent/core/state"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("environment", func() {
	BeforeEach(func() {
		configPath = ""
		testbedPath = ""
	})

	It("picks the default model per provider", func() {
		GinkgoT().Setenv("NETAGENT_MODEL", "")
		GinkgoT().Setenv("NETAGENT_LLM_PROVIDER", "gemini")
		loadEnv()
		Expect(defaultModel()).To(Equal("gemini-2.0-flash-lite"))

		GinkgoT().Setenv("NETAGENT_LLM_PROVIDER", "")
		loadEnv()
		Expect(provider).To(Equal("openai"))
		Expect(defaultModel()).To(Equal("gpt-4o-mini"))

		GinkgoT().Setenv("NETAGENT_MODEL", "llama3")
		loadEnv()
		Expect(defaultModel()).To(Equal("llama3"))
	})

	It("splits API keys", func() {
		GinkgoT().Setenv("NETAGENT_API_KEYS", " k1, ,k2 ")
		loadEnv()
		Expect(apiKeys()).To(Equal([]string{"k1", "k2"}))
	})

	It("refuses unknown providers", func() {
		GinkgoT().Setenv("NETAGENT_LLM_PROVIDER", "cohere")
		loadEnv()
		_, err := newLLMClient(context.Background())
		Expect(err).To(MatchError(ContainSubstring("cohere")))
	})

	It("falls back to the default team", func() {
		GinkgoT().Setenv("NETAGENT_CONFIG", "")
		loadEnv()
		cfg, err := loadTeamConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Agents).To(HaveLen(4))
	})

	It("reads the team file from NETAGENT_CONFIG", func() {
		path := filepath.Join(GinkgoT().TempDir(), "team.yaml")
		Expect(os.WriteFile(path, []byte(`
agents:
  - name: notify_agent
    description: notifications
    actions:
      - name: send_slack_message
`), 0o644)).To(Succeed())

		GinkgoT().Setenv("NETAGENT_CONFIG", path)
		loadEnv()
		cfg, err := loadTeamConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Agents).To(HaveLen(1))
		Expect(cfg.Agents[0].Name).To(Equal("notify_agent"))
	})

	It("fails the healthcheck server without a testbed", func() {
		GinkgoT().Setenv("PYATS_TESTBED_PATH", filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		err := RunHealthcheckServer(context.Background(), "")
		Expect(err).To(MatchError(ContainSubstring("PYATS_TESTBED_PATH")))
	})
})

var _ = Describe("connectorConfigs", func() {
	It("enables telegram when a token is set and none is configured", func() {
		GinkgoT().Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
		Expect(connectorConfigs(&state.TeamConfig{})).To(Equal([]state.ConnectorConfig{{Type: "telegram"}}))
	})

	It("keeps the configured connectors", func() {
		GinkgoT().Setenv("TELEGRAM_BOT_TOKEN", "")
		Expect(connectorConfigs(&state.TeamConfig{})).To(BeEmpty())

		cfg := &state.TeamConfig{Connectors: []state.ConnectorConfig{{Type: "telegram", Config: map[string]string{"admins": "ops"}}}}
		Expect(connectorConfigs(cfg)).To(Equal(cfg.Connectors))
	})
})
