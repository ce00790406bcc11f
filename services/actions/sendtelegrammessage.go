package actions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/conversations"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/config"
	"github.com/netagent/netagent/pkg/xstrings"
	"github.com/sashabaranov/go-openai/jsonschema"
	"golang.org/x/time/rate"
)

const (
	MetadataTelegramMessageSent = "telegram_message_sent"
	telegramMaxMessageLength    = 3000
)

// newTelegramBot builds a client without calling getMe, so actions can be
// created while Telegram is unreachable.
func newTelegramBot(cfg map[string]string) (*bot.Bot, error) {
	token := cfg["token"]
	if token == "" {
		return nil, errors.New("telegram token is required")
	}
	opts := []bot.Option{bot.WithSkipGetMe()}
	if url := cfg["server_url"]; url != "" {
		opts = append(opts, bot.WithServerURL(url))
	}
	return bot.New(token, opts...)
}

type SendTelegramMessageRunner struct {
	chatID            int64
	bot               *bot.Bot
	limiter           *rate.Limiter
	customName        string
	customDescription string
}

func NewSendTelegramMessageRunner(cfg map[string]string) (*SendTelegramMessageRunner, error) {
	var chatID int64
	if configChatID := cfg["chat_id"]; configChatID != "" {
		var err error
		chatID, err = strconv.ParseInt(configChatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat_id %q: %w", configChatID, err)
		}
	}

	interval := time.Second
	if v := cfg["min_interval"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid min_interval %q: %w", v, err)
		}
		interval = d
	}

	b, err := newTelegramBot(cfg)
	if err != nil {
		return nil, err
	}

	return &SendTelegramMessageRunner{
		chatID:            chatID,
		bot:               b,
		limiter:           rate.NewLimiter(rate.Every(interval), 1),
		customName:        cfg["custom_name"],
		customDescription: cfg["custom_description"],
	}, nil
}

type TelegramMessageParams struct {
	ChatID  int64  `json:"chat_id"`
	Message string `json:"message"`
}

func (s *SendTelegramMessageRunner) Run(ctx context.Context, params types.ActionParams) (types.ActionResult, error) {
	var messageParams TelegramMessageParams
	if err := params.Unmarshal(&messageParams); err != nil {
		return types.ActionResult{}, fmt.Errorf("failed to unmarshal params: %w", err)
	}

	if s.chatID != 0 {
		messageParams.ChatID = s.chatID
	}
	if messageParams.ChatID == 0 {
		return types.ActionResult{}, errors.New("chat_id is required either in config or parameters")
	}
	if messageParams.Message == "" {
		return types.ActionResult{}, errors.New("message is required")
	}

	messages := xstrings.SplitParagraph(messageParams.Message, telegramMaxMessageLength)
	if len(messages) == 0 {
		return types.ActionResult{}, errors.New("empty message after splitting")
	}

	for i, msg := range messages {
		if err := s.limiter.Wait(ctx); err != nil {
			return types.ActionResult{}, err
		}
		_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: messageParams.ChatID,
			Text:   msg,
		})
		if err != nil {
			return types.ActionResult{}, fmt.Errorf("failed to send telegram message part %d: %w", i+1, err)
		}
	}
	xlog.Info("Telegram message sent", "chat", messageParams.ChatID, "parts", len(messages))

	return types.ActionResult{
		Result: "Message sent successfully.",
		Metadata: map[string]interface{}{
			MetadataTelegramMessageSent: true,
			"parts":                     len(messages),
		},
	}, nil
}

func (s *SendTelegramMessageRunner) Definition() types.ActionDefinition {
	customName := "send_telegram_message"
	if s.customName != "" {
		customName = s.customName
	}

	customDescription := "Send a message to the operators on Telegram"
	if s.customDescription != "" {
		customDescription = s.customDescription
	}

	props := map[string]jsonschema.Definition{
		"message": {
			Type:        jsonschema.String,
			Description: "The message to send",
		},
	}
	required := []string{"message"}
	if s.chatID == 0 {
		props["chat_id"] = jsonschema.Definition{
			Type:        jsonschema.Number,
			Description: "The Telegram chat ID to send the message to",
		}
		required = append(required, "chat_id")
	}

	return types.ActionDefinition{
		Name:        types.ActionDefinitionName(customName),
		Description: customDescription,
		Properties:  props,
		Required:    required,
	}
}

func (s *SendTelegramMessageRunner) ReadOnly() bool {
	return false
}

type TelegramGetUpdates struct {
	inbox *conversations.Inbox
}

func NewTelegramGetUpdates(inbox *conversations.Inbox) *TelegramGetUpdates {
	return &TelegramGetUpdates{inbox: inbox}
}

func (t *TelegramGetUpdates) Run(context.Context, types.ActionParams) (types.ActionResult, error) {
	if t.inbox == nil {
		return types.ActionResult{Result: "No new updates."}, nil
	}
	u, ok := t.inbox.Latest()
	if !ok {
		return types.ActionResult{Result: "No new updates."}, nil
	}
	return types.ActionResult{Result: u.String()}, nil
}

func (t *TelegramGetUpdates) Definition() types.ActionDefinition {
	return types.ActionDefinition{
		Name:        "telegram_get_updates",
		Description: "Get the latest message received by the Telegram bot",
	}
}

func (t *TelegramGetUpdates) ReadOnly() bool {
	return true
}

type TelegramConnect struct {
	bot *bot.Bot
}

func NewTelegramConnect(cfg map[string]string) (*TelegramConnect, error) {
	b, err := newTelegramBot(cfg)
	if err != nil {
		return nil, err
	}
	return &TelegramConnect{bot: b}, nil
}

// Run never fails: the outcome is reported as text.
func (t *TelegramConnect) Run(ctx context.Context, _ types.ActionParams) (types.ActionResult, error) {
	me, err := t.bot.GetMe(ctx)
	if err != nil {
		xlog.Error("Failed to connect to Telegram bot", "error", err.Error())
		return types.ActionResult{Result: "Failed to connect to Telegram bot."}, nil
	}
	return types.ActionResult{
		Result:   "Connected to Telegram bot.",
		Metadata: map[string]interface{}{"username": me.Username},
	}, nil
}

func (t *TelegramConnect) Definition() types.ActionDefinition {
	return types.ActionDefinition{
		Name:        "telegram_connect",
		Description: "Check that the Telegram bot is reachable. Call it before sending messages.",
	}
}

func (t *TelegramConnect) ReadOnly() bool {
	return true
}

func telegramBaseFields() []config.Field {
	return []config.Field{
		{
			Name:     "token",
			Label:    "Telegram Token",
			Type:     config.FieldTypeSecret,
			Env:      "TELEGRAM_BOT_TOKEN",
			Required: true,
			HelpText: "Telegram bot token",
		},
		{
			Name:     "server_url",
			Label:    "API server",
			Type:     config.FieldTypeText,
			HelpText: "Telegram Bot API server (defaults to api.telegram.org)",
		},
	}
}

func SendTelegramMessageConfigMeta() []config.Field {
	return append(telegramBaseFields(),
		config.Field{
			Name:     "chat_id",
			Label:    "Chat ID",
			Type:     config.FieldTypeText,
			Env:      "TELEGRAM_CHAT_ID",
			HelpText: "Chat to notify. When set the model cannot choose another chat.",
		},
		config.Field{
			Name:         "min_interval",
			Label:        "Minimum interval",
			Type:         config.FieldTypeText,
			DefaultValue: "1s",
			HelpText:     "Minimum delay between two messages",
		},
		config.Field{
			Name:     "custom_name",
			Label:    "Custom Name",
			Type:     config.FieldTypeText,
			HelpText: "Custom name for the action (defaults to 'send_telegram_message')",
		},
		config.Field{
			Name:     "custom_description",
			Label:    "Custom Description",
			Type:     config.FieldTypeText,
			HelpText: "Custom description for the action",
		},
	)
}

func TelegramConnectConfigMeta() []config.Field {
	return telegramBaseFields()
}
