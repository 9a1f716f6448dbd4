package registry

import (
	"errors"
	"fmt"
)

// ErrNoAgents indicates discovery finished without a single valid agent
var ErrNoAgents = errors.New("no agents found")

// ErrAgentNotFound indicates a requested agent does not exist
type ErrAgentNotFound struct {
	Name string
}

func (e *ErrAgentNotFound) Error() string {
	return fmt.Sprintf("agent not found: %s", e.Name)
}

// ErrDiscovery indicates an agent source that could not be loaded. The agent it would
// have produced is omitted from the registry.
type ErrDiscovery struct {
	Source string
	Err    error
}

func (e *ErrDiscovery) Error() string {
	return fmt.Sprintf("discovery error (%s): %v", e.Source, e.Err)
}

func (e *ErrDiscovery) Unwrap() error {
	return e.Err
}
