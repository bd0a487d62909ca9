package parley

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vasara-ai/parley/pkg/core/types"
)

// Conversation holds the ordered message list for one agent chat and applies
// interpreted stream events to it. All methods are safe for concurrent use.
//
// Turns are explicitly superseded rather than cancelled: BeginTurn bumps a
// counter, and Apply rejects events from any older turn. A stale streaming
// goroutine therefore stops mutating the conversation the moment a newer
// prompt is sent.
type Conversation struct {
	mu       sync.Mutex
	messages []*types.Message
	current  *types.Message
	turn     uint64

	// OnChange, when set, runs after every mutation. Renderers use it to
	// repaint from Messages().
	OnChange func()
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Messages returns a snapshot of the conversation in display order.
func (c *Conversation) Messages() []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Message, 0, len(c.messages))
	for _, m := range c.messages {
		out = append(out, *m)
	}
	return out
}

// History converts the conversation into the prior-turn form the chat stream
// endpoint expects. Empty messages are skipped.
func (c *Conversation) History() []types.HistoryTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := make([]types.HistoryTurn, 0, len(c.messages))
	for _, m := range c.messages {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		role := "user"
		if m.Sender == types.SenderBot {
			role = "model"
		}
		history = append(history, types.HistoryTurn{
			Role:  role,
			Parts: []types.HistoryPart{{Text: m.Text}},
		})
	}
	return history
}

// AddUserMessage appends a user message and returns its snapshot.
func (c *Conversation) AddUserMessage(text string) types.Message {
	c.mu.Lock()
	msg := &types.Message{
		ID:     uuid.NewString(),
		Text:   text,
		Sender: types.SenderUser,
	}
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	c.notify()
	return *msg
}

// BeginTurn marks the start of a new bot response and returns its token.
// Any in-flight older turn is superseded immediately.
func (c *Conversation) BeginTurn() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turn++
	c.current = nil
	return c.turn
}

// Apply mutates the conversation with one interpreted event. It reports
// false, without mutating anything, when the turn has been superseded.
func (c *Conversation) Apply(turn uint64, ev ChatEvent) bool {
	c.mu.Lock()
	if turn != c.turn {
		c.mu.Unlock()
		return false
	}

	switch e := ev.(type) {
	case ProseEvent:
		c.openBubbleLocked().Text += e.Text
	case BreakEvent:
		c.pruneCurrentLocked()
		c.current = nil
	case ReactionEvent:
		c.reactLocked(e.Emoji)
	case SourcesEvent:
		bubble := c.openBubbleLocked()
		bubble.Sources = MergeSources(bubble.Sources, e.Sources)
	}
	c.mu.Unlock()

	c.notify()
	return true
}

// EndTurn finalizes a completed turn: a bot bubble left empty (for example a
// response that was only a reaction) is pruned from display.
func (c *Conversation) EndTurn(turn uint64) {
	c.mu.Lock()
	if turn != c.turn || c.current == nil {
		c.mu.Unlock()
		return
	}
	c.pruneCurrentLocked()
	c.current = nil
	c.mu.Unlock()

	c.notify()
}

// pruneCurrentLocked removes the open bot bubble when nothing visible ever
// landed in it, so a reaction-only response or consecutive breaks leave no
// blank bubbles behind.
func (c *Conversation) pruneCurrentLocked() {
	if c.current == nil {
		return
	}
	if strings.TrimSpace(c.current.Text) != "" || len(c.current.Sources) > 0 {
		return
	}
	for i, m := range c.messages {
		if m == c.current {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			break
		}
	}
}

// openBubbleLocked returns the bot bubble under construction, creating one
// when the previous bubble was closed by a break.
func (c *Conversation) openBubbleLocked() *types.Message {
	if c.current == nil {
		c.current = &types.Message{
			ID:     uuid.NewString(),
			Sender: types.SenderBot,
		}
		c.messages = append(c.messages, c.current)
	}
	return c.current
}

// reactLocked assigns the emoji to the most recent user message. A blank
// emoji, an empty conversation, or a latest user message that already
// carries a reaction leaves everything unchanged.
func (c *Conversation) reactLocked(emoji string) {
	if strings.TrimSpace(emoji) == "" {
		return
	}
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Sender != types.SenderUser {
			continue
		}
		if c.messages[i].Reaction == "" {
			c.messages[i].Reaction = emoji
		}
		return
	}
}

func (c *Conversation) notify() {
	if c.OnChange != nil {
		c.OnChange()
	}
}
