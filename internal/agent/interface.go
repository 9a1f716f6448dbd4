package agent

import (
	"context"
)

// Agent defines the contract for agent implementations
type Agent interface {
	// Descriptor returns the configuration the agent was built from
	Descriptor() Descriptor

	// Run sends query with the prior conversation to the configured provider and returns
	// a schema-valid result. On success exactly one exchange is appended to history;
	// on failure history is left untouched and the error is *ErrAgentInvocationFailed.
	Run(ctx context.Context, query string, history *Conversation) (*Result, error)
}

// Ensure Structured implements Agent
var _ Agent = (*Structured)(nil)
