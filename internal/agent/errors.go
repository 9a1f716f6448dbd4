package agent

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery is the cause reported when run is called without query text
var ErrEmptyQuery = errors.New("query is empty")

// ErrAgentInvocationFailed indicates a run did not produce a valid result.
// Credential, upstream, cancellation and schema failures all surface as this kind.
type ErrAgentInvocationFailed struct {
	Agent string
	Err   error
}

func (e *ErrAgentInvocationFailed) Error() string {
	return fmt.Sprintf("agent invocation failed (%s): %v", e.Agent, e.Err)
}

func (e *ErrAgentInvocationFailed) Unwrap() error {
	return e.Err
}

// ErrInvalidDescriptor indicates a candidate that does not satisfy the agent contract
type ErrInvalidDescriptor struct {
	Name   string
	Field  string
	Reason string
	Err    error
}

func (e *ErrInvalidDescriptor) Error() string {
	name := e.Name
	if name == "" {
		name = "<unnamed>"
	}
	if e.Err != nil {
		return fmt.Sprintf("invalid agent %s: %s: %v", name, e.Field, e.Err)
	}
	return fmt.Sprintf("invalid agent %s: %s %s", name, e.Field, e.Reason)
}

func (e *ErrInvalidDescriptor) Unwrap() error {
	return e.Err
}
