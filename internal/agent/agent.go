package agent

import (
	"agentterm/internal/logger"
	"agentterm/internal/provider"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Structured is an instruction-driven agent whose every answer is a JSON object
// validated against the descriptor's result shape
type Structured struct {
	descriptor Descriptor
	completer  provider.Completer
	maxTokens  int64
}

// Config holds configuration options for creating a new agent
type Config struct {
	Descriptor Descriptor
	Completer  provider.Completer
	MaxTokens  int64 // Optional; the completer default applies when zero
}

// New creates a new Structured agent with the provided configuration
func New(config Config) (*Structured, error) {
	d := config.Descriptor
	if config.Completer == nil {
		return nil, fmt.Errorf("agent %s: completer is required", d.Name)
	}
	if d.Shape == nil {
		return nil, &ErrInvalidDescriptor{Name: d.Name, Field: "result_shape", Reason: "is not resolved"}
	}

	logger.Get().Debug().
		Str("agent", d.Name).
		Str("provider", d.Provider.String()).
		Str("model", d.EffectiveModel()).
		Str("shape", d.ResultShape).
		Msg("Creating new agent")

	return &Structured{
		descriptor: d,
		completer:  config.Completer,
		maxTokens:  config.MaxTokens,
	}, nil
}

// Descriptor returns the configuration the agent was built from
func (a *Structured) Descriptor() Descriptor {
	return a.descriptor
}

// Run sends the query and prior conversation to the provider, validates the answer
// and appends the exchange to history on success
func (a *Structured) Run(ctx context.Context, query string, history *Conversation) (*Result, error) {
	log := logger.Get()

	if strings.TrimSpace(query) == "" {
		return nil, a.fail(ErrEmptyQuery)
	}

	req := provider.Request{
		Model:       a.descriptor.EffectiveModel(),
		Instruction: a.descriptor.Instruction,
		History:     history.Messages(),
		Query:       query,
		SchemaName:  schemaName(a.descriptor.ResultShape),
		Schema:      a.descriptor.Shape.Schema(),
		MaxTokens:   a.maxTokens,
	}

	start := time.Now()
	raw, err := a.completer.Complete(ctx, req)
	if err != nil {
		// Report cancellation distinctly from upstream failures
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		log.Debug().Err(err).Str("agent", a.descriptor.Name).Msg("Provider call failed")
		return nil, a.fail(err)
	}

	fields, err := a.descriptor.Shape.Validate(raw)
	if err != nil {
		log.Debug().Err(err).Str("agent", a.descriptor.Name).RawJSON("output", safeJSON(raw)).Msg("Provider output rejected")
		return nil, a.fail(err)
	}

	result := &Result{
		Agent:  a.descriptor.Name,
		Raw:    raw,
		Fields: fields,
	}

	if history != nil {
		history.Append(Exchange{Query: query, Result: result})
	}

	log.Debug().
		Str("agent", a.descriptor.Name).
		Dur("elapsed", time.Since(start)).
		Int("history", history.Len()).
		Msg("Agent run succeeded")

	return result, nil
}

func (a *Structured) fail(err error) error {
	return &ErrAgentInvocationFailed{Agent: a.descriptor.Name, Err: err}
}

// schemaName turns a shape reference into an identifier providers accept as a tool or
// schema name
func schemaName(ref string) string {
	ref = strings.TrimSuffix(ref, ".json")
	if i := strings.LastIndexAny(ref, `/\`); i >= 0 {
		ref = ref[i+1:]
	}
	var b strings.Builder
	for _, r := range ref {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "result"
	}
	return b.String()
}

// safeJSON keeps malformed provider output from breaking the log line
func safeJSON(raw []byte) []byte {
	if json.Valid(raw) {
		return raw
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}
