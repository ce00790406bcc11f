package services

import (
	"context"
	"os"

	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/conversations"
	"github.com/netagent/netagent/core/state"
	"github.com/netagent/netagent/services/connectors"
)

const (
	// Connectors
	ConnectorTelegram = "telegram"
)

var AvailableConnectors = []string{
	ConnectorTelegram,
}

// Connector feeds chat messages to the supervisor until ctx is done.
type Connector interface {
	Start(ctx context.Context, asker connectors.Asker) error
}

func Connectors(cfgs []state.ConnectorConfig, inbox *conversations.Inbox) []Connector {
	conns := []Connector{}

	for _, c := range cfgs {
		config := map[string]string{}
		for k, v := range c.Config {
			config[k] = v
		}

		switch c.Type {
		case ConnectorTelegram:
			if config["token"] == "" {
				config["token"] = os.Getenv("TELEGRAM_BOT_TOKEN")
			}
			if config["admins"] == "" {
				config["admins"] = os.Getenv("TELEGRAM_ADMINS")
			}
			cc, err := connectors.NewTelegramConnector(config, inbox)
			if err != nil {
				xlog.Error("Error creating telegram connector", "error", err.Error())
				continue
			}
			conns = append(conns, cc)
		default:
			xlog.Error("Unknown connector", "type", c.Type)
		}
	}
	return conns
}
