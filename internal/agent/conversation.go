package agent

import (
	"agentterm/internal/provider"
	"time"
)

// Exchange is one completed query and the result it produced
type Exchange struct {
	Query  string
	Result *Result
	At     time.Time
}

// Conversation is the ordered turn history of one session. It is append-only; the only
// way to remove exchanges is Reset. A Conversation is owned by a single session and is
// not safe for concurrent use.
type Conversation struct {
	exchanges []Exchange
}

// NewConversation returns an empty conversation
func NewConversation() *Conversation {
	return &Conversation{}
}

// Len returns the number of exchanges
func (c *Conversation) Len() int {
	if c == nil {
		return 0
	}
	return len(c.exchanges)
}

// Exchanges returns a copy of the exchanges in chronological order
func (c *Conversation) Exchanges() []Exchange {
	if c == nil {
		return nil
	}
	out := make([]Exchange, len(c.exchanges))
	copy(out, c.exchanges)
	return out
}

// Append adds an exchange at the end of the conversation
func (c *Conversation) Append(e Exchange) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	c.exchanges = append(c.exchanges, e)
}

// Reset removes every exchange
func (c *Conversation) Reset() {
	c.exchanges = nil
}

// Messages flattens the conversation into alternating user and assistant messages.
// Assistant content is the raw JSON result so the provider sees what it produced.
func (c *Conversation) Messages() []provider.Message {
	if c == nil {
		return nil
	}
	messages := make([]provider.Message, 0, 2*len(c.exchanges))
	for _, e := range c.exchanges {
		messages = append(messages, provider.Message{Role: provider.RoleUser, Content: e.Query})
		if e.Result != nil {
			messages = append(messages, provider.Message{Role: provider.RoleAssistant, Content: string(e.Result.Raw)})
		}
	}
	return messages
}
