package conversations

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/types"
)

type TrackerKey interface{ ~int | ~int64 | ~string }

// ConversationTracker keeps a short message history per key (a chat, a
// user). Histories idle for longer than the expiry are dropped.
type ConversationTracker[K TrackerKey] struct {
	mu              sync.Mutex
	conversations   map[K][]types.Message
	lastMessageTime map[K]time.Time
	expiry          time.Duration
	now             func() time.Time
}

func NewConversationTracker[K TrackerKey](expiry time.Duration) *ConversationTracker[K] {
	return &ConversationTracker[K]{
		expiry:          expiry,
		conversations:   map[K][]types.Message{},
		lastMessageTime: map[K]time.Time{},
		now:             time.Now,
	}
}

// GetConversation returns a copy of the live history for key.
func (c *ConversationTracker[K]) GetConversation(key K) []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expire()

	conv := c.conversations[key]
	if len(conv) == 0 {
		xlog.Debug("Conversation history does not exist for", "key", fmt.Sprintf("%v", key))
		return []types.Message{}
	}
	return append([]types.Message{}, conv...)
}

func (c *ConversationTracker[K]) AddMessage(key K, message types.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expire()
	c.conversations[key] = append(c.conversations[key], message)
	c.lastMessageTime[key] = c.now()
}

func (c *ConversationTracker[K]) Reset(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.conversations, key)
	delete(c.lastMessageTime, key)
}

// expire must be called with the lock held.
func (c *ConversationTracker[K]) expire() {
	now := c.now()
	for k := range c.conversations {
		last, ok := c.lastMessageTime[k]
		if !ok || last.Add(c.expiry).Before(now) {
			xlog.Debug("Cleaning up conversation", "key", fmt.Sprintf("%v", k))
			delete(c.conversations, k)
			delete(c.lastMessageTime, k)
		}
	}
}

// Render turns a history and the newest message into a single request
// text. Without history the message is returned as is.
func Render(history []types.Message, latest string) string {
	if len(history) == 0 {
		return latest
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, m := range history {
		role := "user"
		if m.Type != types.MessageHuman {
			role = "assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	b.WriteString("\nLatest message: ")
	b.WriteString(latest)
	return b.String()
}
