// Package session drives one interactive console session: agent and provider selection,
// then a read-run-display loop that threads conversation history between turns.
package session

import (
	"agentterm/internal/agent"
	"agentterm/internal/config"
	"agentterm/internal/logger"
	"agentterm/internal/provider"
	"agentterm/internal/registry"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/google/uuid"
)

// State is the top level session state
type State int

const (
	Idle State = iota
	Selecting
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Running:
		return "running"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Phase is the sub-state of Running
type Phase int

const (
	AwaitingInput Phase = iota
	Invoking
	Displaying
)

// Limits holds settings that bound a session
type Limits struct {
	MaxTurns           int           // Maximum invocations per session, 0 for unlimited
	MaxSessionDuration time.Duration // Maximum total session time, 0 for unlimited
}

// Config holds configuration options for creating a new Driver
type Config struct {
	Registry     *registry.Registry
	File         *config.File // Optional named provider/model pairings
	Credentials  config.Credentials
	NewCompleter provider.Factory // Optional; provider.New when nil

	GetUserMessage func() (string, bool)
	Output         io.Writer // Optional; stdout when nil

	Timeout   time.Duration // Per-call timeout, 0 for none
	MaxTokens int64
	Limits    Limits

	// Interrupts derives the context of one invocation that a user interrupt cancels.
	// Optional; SIGINT is used when nil.
	Interrupts func(ctx context.Context) (context.Context, context.CancelFunc)
}

// Driver runs one session. It issues at most one invocation at a time and is not safe
// for concurrent use.
type Driver struct {
	registry       *registry.Registry
	file           *config.File
	credentials    config.Credentials
	newCompleter   provider.Factory
	getUserMessage func() (string, bool)
	out            io.Writer
	timeout        time.Duration
	maxTokens      int64
	limits         Limits
	interrupts     func(ctx context.Context) (context.Context, context.CancelFunc)

	id      string
	state   State
	phase   Phase
	agent   agent.Agent
	history *agent.Conversation
	turns   int
	started time.Time
}

// New creates a new Driver with the provided configuration
func New(cfg Config) (*Driver, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("session: registry is required")
	}
	if cfg.GetUserMessage == nil {
		return nil, fmt.Errorf("session: GetUserMessage function is required")
	}

	d := &Driver{
		registry:       cfg.Registry,
		file:           cfg.File,
		credentials:    cfg.Credentials,
		newCompleter:   cfg.NewCompleter,
		getUserMessage: cfg.GetUserMessage,
		out:            cfg.Output,
		timeout:        cfg.Timeout,
		maxTokens:      cfg.MaxTokens,
		limits:         cfg.Limits,
		interrupts:     cfg.Interrupts,
		id:             uuid.NewString(),
		state:          Idle,
		history:        agent.NewConversation(),
	}
	if d.file == nil {
		d.file = &config.File{}
	}
	if d.newCompleter == nil {
		d.newCompleter = provider.New
	}
	if d.out == nil {
		d.out = os.Stdout
	}
	if d.interrupts == nil {
		d.interrupts = func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		}
	}
	return d, nil
}

// ID returns the session identifier used in logs
func (d *Driver) ID() string {
	return d.id
}

// State returns the current session state
func (d *Driver) State() State {
	return d.state
}

// Phase returns the sub-state while Running
func (d *Driver) Phase() Phase {
	return d.phase
}

// Agent returns the selected agent, nil before selection
func (d *Driver) Agent() agent.Agent {
	return d.agent
}

// History returns the conversation of the session
func (d *Driver) History() *agent.Conversation {
	return d.history
}

// Select builds the named agent paired with p and model. An empty p keeps the agent's
// own provider. Missing credentials fail with *config.ErrConfiguration before any
// provider call; an unknown name fails with *registry.ErrAgentNotFound.
func (d *Driver) Select(ctx context.Context, name string, p provider.Provider, model string) error {
	log := logger.Get()
	d.state = Selecting

	a, err := d.build(ctx, name, p, model)
	if err != nil {
		d.state = Idle
		log.Debug().Err(err).Str("session", d.id).Str("agent", name).Msg("Selection failed")
		return err
	}

	desc := a.Descriptor()
	d.agent = a
	d.history = agent.NewConversation()
	d.turns = 0
	d.started = time.Now()
	d.state = Running
	d.phase = AwaitingInput

	log.Info().
		Str("session", d.id).
		Str("agent", desc.Name).
		Str("provider", desc.Provider.String()).
		Str("model", desc.EffectiveModel()).
		Msg("Agent selected")
	return nil
}

func (d *Driver) build(ctx context.Context, name string, p provider.Provider, model string) (agent.Agent, error) {
	desc, err := d.registry.Get(name)
	if err != nil {
		return nil, err
	}
	if p != "" && !p.Valid() {
		return nil, &config.ErrConfiguration{Field: "provider", Err: fmt.Errorf("%w: %q", provider.ErrUnsupported, string(p))}
	}
	desc = desc.WithModel(p, model)

	key, err := d.credentials.For(desc.Provider)
	if err != nil {
		return nil, err
	}

	completer, err := d.newCompleter(ctx, desc.Provider, key, provider.WithMaxTokens(d.maxTokens))
	if err != nil {
		return nil, &config.ErrConfiguration{Field: desc.Provider.String(), Reason: "failed to create provider client", Err: err}
	}

	return d.registry.Build(agent.Config{
		Descriptor: desc,
		Completer:  completer,
		MaxTokens:  d.maxTokens,
	})
}

// Turn runs one query against the selected agent and displays the result. The call is
// bounded by the per-call timeout and canceled by a user interrupt. A failed turn is
// reported and leaves history unchanged.
func (d *Driver) Turn(ctx context.Context, query string) (*agent.Result, error) {
	if d.state != Running || d.agent == nil {
		return nil, fmt.Errorf("session: no agent selected")
	}
	log := logger.Get()

	d.phase = Invoking
	defer func() { d.phase = AwaitingInput }()

	callCtx, stop := d.interrupts(ctx)
	defer stop()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, d.timeout)
		defer cancel()
	}

	d.turns++
	result, err := d.agent.Run(callCtx, query, d.history)
	if err != nil {
		name := d.agent.Descriptor().Name
		var failed *agent.ErrAgentInvocationFailed
		if !errors.As(err, &failed) {
			err = &agent.ErrAgentInvocationFailed{Agent: name, Err: err}
		}
		if d.timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
			err = &agent.ErrAgentInvocationFailed{
				Agent: name,
				Err:   fmt.Errorf("no response within %s: %w", d.timeout, context.DeadlineExceeded),
			}
		}
		log.Debug().Err(err).Str("session", d.id).Msg("Turn failed")
		d.printError(err)
		return nil, err
	}

	d.phase = Displaying
	d.printResult(result)
	return result, nil
}

// Loop reads queries until the user exits or input is exhausted. "exit" and "quit" end
// the loop; "reset" and "clear" drop the conversation history.
func (d *Driver) Loop(ctx context.Context) error {
	if d.state != Running {
		return fmt.Errorf("session: no agent selected")
	}

	desc := d.agent.Descriptor()
	fmt.Fprintf(d.out, "\nChatting with %s (%s/%s). Type 'exit' or 'quit' to end the conversation, 'reset' to clear it.\n\n",
		desc.Name, desc.Provider, desc.EffectiveModel())

	for {
		if reason := d.limitReached(); reason != "" {
			logger.Get().Warn().Str("session", d.id).Str("limit", reason).Msg("Session limit reached")
			fmt.Fprintf(d.out, "%s\n", styles.err.Render("Session limit reached: "+reason))
			break
		}

		fmt.Fprint(d.out, styles.prompt.Render("·>>>")+": ")
		input, ok := d.getUserMessage()
		if !ok {
			break
		}

		query := strings.TrimSpace(input)
		switch strings.ToLower(query) {
		case "":
			continue
		case "exit", "quit":
			d.end()
			return nil
		case "reset", "clear":
			d.history.Reset()
			fmt.Fprintln(d.out, styles.info.Render("Conversation history cleared."))
			continue
		}

		// Failures are reported by Turn; the loop continues with the same history
		_, _ = d.Turn(ctx, query)
	}

	d.end()
	return nil
}

// Once runs a single query and returns its failure, if any
func (d *Driver) Once(ctx context.Context, query string) error {
	_, err := d.Turn(ctx, query)
	return err
}

func (d *Driver) limitReached() string {
	if d.limits.MaxTurns > 0 && d.turns >= d.limits.MaxTurns {
		return fmt.Sprintf("%d turns", d.limits.MaxTurns)
	}
	if d.limits.MaxSessionDuration > 0 && time.Since(d.started) > d.limits.MaxSessionDuration {
		return fmt.Sprintf("session longer than %s", d.limits.MaxSessionDuration)
	}
	return ""
}

func (d *Driver) end() {
	if d.state == Running {
		fmt.Fprintf(d.out, "\nConversation ended after %s (session started %s).\n",
			english.Plural(d.history.Len(), "exchange", ""), humanize.Time(d.started))
		logger.Get().Info().
			Str("session", d.id).
			Int("turns", d.turns).
			Int("exchanges", d.history.Len()).
			Dur("duration", time.Since(d.started)).
			Msg("Session ended")
	}
	d.state = Idle
	d.agent = nil
}
