package conversations

import (
	"fmt"
	"sync"
	"time"
)

// Update is an incoming chat message seen by a connector.
type Update struct {
	ChatID   int64
	Username string
	Text     string
	Time     time.Time
}

func (u Update) String() string {
	return fmt.Sprintf("Update from %s in chat %d at %s: %s", u.Username, u.ChatID, u.Time.UTC().Format(time.RFC3339), u.Text)
}

// Inbox keeps the most recent updates received by a connector so tools can
// read them back.
type Inbox struct {
	mu      sync.Mutex
	size    int
	updates []Update
}

func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = 50
	}
	return &Inbox{size: size}
}

func (i *Inbox) Record(u Update) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if u.Time.IsZero() {
		u.Time = time.Now()
	}
	i.updates = append(i.updates, u)
	if len(i.updates) > i.size {
		i.updates = i.updates[len(i.updates)-i.size:]
	}
}

// Latest returns the newest update.
func (i *Inbox) Latest() (Update, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.updates) == 0 {
		return Update{}, false
	}
	return i.updates[len(i.updates)-1], true
}

func (i *Inbox) All() []Update {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]Update{}, i.updates...)
}
