package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eritikass/githubmarkdownconvertergo"
	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/config"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/slack-go/slack"
)

type SendSlackMessage struct {
	client    *slack.Client
	channelID string
}

func NewSendSlackMessage(cfg map[string]string) (*SendSlackMessage, error) {
	token := cfg["token"]
	if token == "" {
		return nil, errors.New("slack token is required")
	}

	var opts []slack.Option
	if url := cfg["api_url"]; url != "" {
		if !strings.HasSuffix(url, "/") {
			url += "/"
		}
		opts = append(opts, slack.OptionAPIURL(url))
	}

	return &SendSlackMessage{
		client:    slack.New(token, opts...),
		channelID: cfg["channel_id"],
	}, nil
}

type slackMessageParams struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

func (s *SendSlackMessage) Run(ctx context.Context, params types.ActionParams) (types.ActionResult, error) {
	var p slackMessageParams
	if err := params.Unmarshal(&p); err != nil {
		return types.ActionResult{}, fmt.Errorf("failed to unmarshal params: %w", err)
	}

	if s.channelID != "" {
		p.Channel = s.channelID
	}
	if p.Channel == "" {
		return types.ActionResult{}, errors.New("channel is required either in config or parameters")
	}
	if p.Message == "" {
		return types.ActionResult{}, errors.New("message is required")
	}

	channel, ts, err := s.client.PostMessageContext(ctx, p.Channel,
		slack.MsgOptionText(githubmarkdownconvertergo.Slack(p.Message), false),
		slack.MsgOptionLinkNames(true),
	)
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("failed to post slack message: %w", err)
	}
	xlog.Info("Slack message sent", "channel", channel, "ts", ts)

	return types.ActionResult{
		Result:   fmt.Sprintf("Message sent successfully to channel %s.", channel),
		Metadata: map[string]interface{}{"channel": channel, "ts": ts},
	}, nil
}

func (s *SendSlackMessage) Definition() types.ActionDefinition {
	props := map[string]jsonschema.Definition{
		"message": {
			Type:        jsonschema.String,
			Description: "The message to post, markdown is converted to Slack formatting",
		},
	}
	required := []string{"message"}
	if s.channelID == "" {
		props["channel"] = jsonschema.Definition{
			Type:        jsonschema.String,
			Description: "The Slack channel ID to post to",
		}
		required = append(required, "channel")
	}
	return types.ActionDefinition{
		Name:        "send_slack_message",
		Description: "Post a message to the operators' Slack channel",
		Properties:  props,
		Required:    required,
	}
}

func (s *SendSlackMessage) ReadOnly() bool {
	return false
}

func SendSlackMessageConfigMeta() []config.Field {
	return []config.Field{
		{
			Name:     "token",
			Label:    "Bot token",
			Type:     config.FieldTypeSecret,
			Env:      "SLACK_BOT_TOKEN",
			Required: true,
			HelpText: "Slack bot token (xoxb-...)",
		},
		{
			Name:     "channel_id",
			Label:    "Channel ID",
			Type:     config.FieldTypeText,
			Env:      "SLACK_CHANNEL_ID",
			HelpText: "Channel to post to. When set the model cannot choose another channel.",
		},
		{
			Name:     "api_url",
			Label:    "API URL",
			Type:     config.FieldTypeText,
			HelpText: "Slack Web API base URL (defaults to https://slack.com/api/)",
		},
	}
}
