package api

import (
	"context"
	"encoding/json"
	"net/http"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/services"
)

const WelcomeMessage = "Welcome to the Network Multi Agent API. Use POST /agent to interact with the agent."

// Asker answers a request through the supervisor.
type Asker interface {
	Ask(ctx context.Context, input string) (string, error)
}

type AgentInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

type App struct {
	config *Config
	*fiber.App
}

func NewApp(opts ...Option) *App {
	config := NewConfig(opts...)

	webapp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	a := &App{
		config: config,
		App:    webapp,
	}

	a.registerRoutes(webapp)

	return a
}

func errorJSONMessage(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(struct {
		Error string `json:"error"`
	}{Error: message})
}

func statusJSONMessage(c *fiber.Ctx, message string) error {
	return c.JSON(struct {
		Status string `json:"status"`
	}{Status: message})
}

func (a *App) Root() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": WelcomeMessage})
	}
}

func (a *App) Healthz() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		return statusJSONMessage(c, "ok")
	}
}

func (a *App) ask(c *fiber.Ctx, input string) (string, error) {
	ctx, cancel := context.WithTimeout(c.UserContext(), a.config.RequestTimeout)
	defer cancel()
	return a.config.Asker.Ask(ctx, input)
}

// Agent runs a request through the supervisor. Failures are reported in
// the error field with a 200 status.
func (a *App) Agent() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		var request types.AgentRequest
		if err := json.Unmarshal(c.Body(), &request); err != nil {
			return errorJSONMessage(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		}

		xlog.Info("Received request", "input", request.InputText)
		output, err := a.ask(c, request.InputText)
		if err != nil {
			xlog.Error("Request failed", "error", err.Error())
			return c.JSON(types.AgentResponse{Error: err.Error()})
		}

		return c.JSON(types.AgentResponse{OutputText: output})
	}
}

// Webhook turns a monitoring alert into a supervisor request.
func (a *App) Webhook() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		if a.config.WebhookToken != "" && !validToken(c, a.config.WebhookToken) {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"status": "error", "detail": "invalid webhook token"})
		}

		var alert types.AlertPayload
		if err := json.Unmarshal(c.Body(), &alert); err != nil {
			xlog.Error("Invalid alert", "error", err.Error())
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"status": "error", "detail": err.Error()})
		}

		xlog.Info("Received alert", "title", alert.Title, "extra", alert.Extra)
		output, err := a.ask(c, alert.Input())
		if err != nil {
			xlog.Error("Alert processing failed", "title", alert.Title, "error", err.Error())
		} else {
			xlog.Info("Alert processed", "title", alert.Title, "output", output)
		}

		return statusJSONMessage(c, "success")
	}
}

func (a *App) ListAgents() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		agents := a.config.Agents()
		return c.JSON(fiber.Map{
			"agents":     agents,
			"agentCount": len(agents),
			"actions":    len(services.AvailableActions),
			"connectors": len(services.AvailableConnectors),
		})
	}
}

func (a *App) ListActions() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		return c.JSON(services.ActionsConfigMeta())
	}
}
