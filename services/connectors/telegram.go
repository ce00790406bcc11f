package connectors

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/conversations"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/xstrings"
)

const telegramMaxMessageLength = 3000

// Asker answers a request through the supervisor.
type Asker interface {
	Ask(ctx context.Context, input string) (string, error)
}

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type Telegram struct {
	Token     string
	serverURL string
	admins    []string

	inbox               *conversations.Inbox
	conversationTracker *conversations.ConversationTracker[int64]
}

func NewTelegramConnector(config map[string]string, inbox *conversations.Inbox) (*Telegram, error) {
	token := config["token"]
	if token == "" {
		return nil, errors.New("token is required")
	}

	duration, err := time.ParseDuration(config["lastMessageDuration"])
	if err != nil {
		duration = 5 * time.Minute
	}

	admins := []string{}
	for _, a := range strings.Split(config["admins"], ",") {
		if a = strings.TrimSpace(a); a != "" {
			admins = append(admins, a)
		}
	}

	if inbox == nil {
		inbox = conversations.NewInbox(0)
	}

	return &Telegram{
		Token:               token,
		serverURL:           config["server_url"],
		admins:              admins,
		inbox:               inbox,
		conversationTracker: conversations.NewConversationTracker[int64](duration),
	}, nil
}

// Start long-polls Telegram and answers every text message until ctx is
// done.
func (t *Telegram) Start(ctx context.Context, asker Asker) error {
	opts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			go t.handleUpdate(ctx, b, asker, update)
		}),
	}
	if t.serverURL != "" {
		opts = append(opts, bot.WithServerURL(t.serverURL))
	}

	b, err := bot.New(t.Token, opts...)
	if err != nil {
		return err
	}

	xlog.Info("Telegram connector started")
	b.Start(ctx)
	return nil
}

func (t *Telegram) handleUpdate(ctx context.Context, b messageSender, asker Asker, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	username := ""
	if update.Message.From != nil {
		username = update.Message.From.Username
	}
	if len(t.admins) > 0 && !slices.Contains(t.admins, username) {
		xlog.Info("Unauthorized user", "username", username)
		return
	}

	chatID := update.Message.Chat.ID
	text := update.Message.Text
	t.inbox.Record(conversations.Update{
		ChatID:   chatID,
		Username: username,
		Text:     text,
		Time:     time.Unix(int64(update.Message.Date), 0),
	})

	history := t.conversationTracker.GetConversation(chatID)
	t.conversationTracker.AddMessage(chatID, types.Message{Type: types.MessageHuman, Content: text})

	xlog.Info("New message", "username", username, "chat", chatID, "history", len(history))
	response, err := asker.Ask(ctx, conversations.Render(history, text))
	if err != nil {
		xlog.Error("Error answering telegram message", "chat", chatID, "error", err.Error())
		response = "Error: " + err.Error()
	} else {
		t.conversationTracker.AddMessage(chatID, types.Message{Type: types.MessageAI, Content: response})
	}

	xlog.Debug("Sending message back to telegram", "response", response)
	for _, part := range xstrings.SplitParagraph(response, telegramMaxMessageLength) {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   part,
		}); err != nil {
			xlog.Error("Error sending message", "error", err.Error())
			return
		}
	}
}
