package api

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/dave-gray101/v2keyauth"
	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/google/uuid"
	"github.com/netagent/netagent/core/sse"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Paths reachable without an API key. The webhook has its own token.
var publicPaths = map[string]bool{
	"/":        true,
	"/healthz": true,
	"/webhook": true,
}

func (app *App) registerRoutes(webapp *fiber.App) {
	webapp.Use(requestMetrics())

	if len(app.config.ApiKeys) > 0 {
		kaConfig, err := GetKeyAuthConfig(app.config.ApiKeys)
		if err != nil || kaConfig == nil {
			panic(err)
		}
		webapp.Use(v2keyauth.New(*kaConfig))
	}

	webapp.Get("/", app.Root())
	webapp.Get("/healthz", app.Healthz())
	webapp.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	webapp.Post("/agent", app.Agent())
	webapp.Post("/webhook", app.Webhook())

	webapp.Get("/api/agents", app.ListAgents())
	webapp.Get("/api/actions", app.ListActions())

	if app.config.Events != nil {
		webapp.Get("/api/events", func(c *fiber.Ctx) error {
			app.config.Events.Handle(c, sse.NewClient(uuid.New().String()))
			return nil
		})
	}

	if app.config.Scheduler != nil {
		webapp.Get("/api/tasks", app.ListTasks())
		webapp.Post("/api/tasks", app.CreateTask())
		webapp.Get("/api/tasks/:id", app.GetTask())
		webapp.Get("/api/tasks/:id/runs", app.GetTaskRuns())
		webapp.Delete("/api/tasks/:id", app.DeleteTask())
		webapp.Put("/api/tasks/:id/pause", app.PauseTask())
		webapp.Put("/api/tasks/:id/resume", app.ResumeTask())
		webapp.Post("/api/tasks/:id/run", app.RunTask())
	}
}

func GetKeyAuthConfig(apiKeys []string) (*v2keyauth.Config, error) {
	customLookup, err := v2keyauth.MultipleKeySourceLookup([]string{"header:Authorization", "header:x-api-key", "header:xi-api-key", "cookie:token"}, keyauth.ConfigDefault.AuthScheme)
	if err != nil {
		return nil, err
	}

	return &v2keyauth.Config{
		CustomKeyLookup: customLookup,
		Next:            func(c *fiber.Ctx) bool { return publicPaths[c.Path()] },
		Validator:       getApiKeyValidationFunction(apiKeys),
		ErrorHandler:    getApiKeyErrorHandler(apiKeys),
		AuthScheme:      "Bearer",
	}, nil
}

func getApiKeyErrorHandler(apiKeys []string) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		if errors.Is(err, v2keyauth.ErrMissingOrMalformedAPIKey) {
			if len(apiKeys) == 0 {
				return ctx.Next()
			}
			ctx.Set("WWW-Authenticate", "Bearer")
			return errorJSONMessage(ctx, fiber.StatusUnauthorized, "missing or invalid API key")
		}
		return errorJSONMessage(ctx, fiber.StatusInternalServerError, err.Error())
	}
}

func getApiKeyValidationFunction(apiKeys []string) func(*fiber.Ctx, string) (bool, error) {
	return func(ctx *fiber.Ctx, apiKey string) (bool, error) {
		if len(apiKeys) == 0 {
			return true, nil
		}
		for _, validKey := range apiKeys {
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
				return true, nil
			}
		}
		return false, v2keyauth.ErrMissingOrMalformedAPIKey
	}
}

// validToken accepts the webhook token either as a bearer token or in the
// X-Webhook-Token header.
func validToken(c *fiber.Ctx, token string) bool {
	got := c.Get("X-Webhook-Token")
	if got == "" {
		got = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}
