// Package provider adapts hosted LLM APIs (Gemini, OpenAI, Anthropic) to a single
// Completer contract that returns the raw JSON document produced for a request.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// Provider identifies a hosted LLM service
type Provider string

const (
	Gemini    Provider = "gemini"
	OpenAI    Provider = "openai"
	Anthropic Provider = "anthropic"
)

// ErrUnsupported is returned for provider identifiers outside the supported set
var ErrUnsupported = errors.New("unsupported provider")

// Supported returns the supported providers in a fixed order
func Supported() []Provider {
	return []Provider{Gemini, OpenAI, Anthropic}
}

// Parse converts a user supplied identifier into a Provider.
// "google" is accepted as an alias for gemini.
func Parse(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gemini", "google":
		return Gemini, nil
	case "openai":
		return OpenAI, nil
	case "anthropic", "claude":
		return Anthropic, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, s)
}

// Valid reports whether p belongs to the supported set
func (p Provider) Valid() bool {
	for _, s := range Supported() {
		if p == s {
			return true
		}
	}
	return false
}

func (p Provider) String() string {
	return string(p)
}

// DefaultModel returns the model used when an agent or pairing names none
func DefaultModel(p Provider) string {
	switch p {
	case Gemini:
		return "gemini-2.0-flash"
	case OpenAI:
		return "gpt-4o-mini"
	case Anthropic:
		return anthropic.ModelClaude3_5HaikuLatest
	}
	return ""
}

// Role is the author of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior turn passed to the provider
type Message struct {
	Role    Role
	Content string
}

// Request is a single structured completion request
type Request struct {
	Model       string
	Instruction string
	History     []Message
	Query       string

	// SchemaName and Schema describe the JSON object the provider must produce
	SchemaName string
	Schema     json.RawMessage

	MaxTokens int64
}

// Completer sends one request to a provider and returns the JSON document it produced.
// Implementations perform exactly one outbound call and honor ctx cancellation.
type Completer interface {
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

// Options holds adapter settings shared by all providers
type Options struct {
	BaseURL   string
	MaxTokens int64
}

// Option configures an adapter
type Option func(*Options)

// WithBaseURL points the adapter at a non-default endpoint
func WithBaseURL(url string) Option {
	return func(o *Options) { o.BaseURL = url }
}

// WithMaxTokens sets the default completion token limit
func WithMaxTokens(n int64) Option {
	return func(o *Options) { o.MaxTokens = n }
}

// New constructs the adapter for p authenticated with apiKey
func New(ctx context.Context, p Provider, apiKey string, opts ...Option) (Completer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: API key is required", p)
	}

	o := Options{MaxTokens: 1024}
	for _, opt := range opts {
		opt(&o)
	}

	switch p {
	case Gemini:
		return newGemini(ctx, apiKey, o)
	case OpenAI:
		return newOpenAI(apiKey, o), nil
	case Anthropic:
		return newAnthropic(apiKey, o), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, string(p))
}

// Factory builds a Completer; session code takes one so tests can avoid the network
type Factory func(ctx context.Context, p Provider, apiKey string, opts ...Option) (Completer, error)

// stripCodeFence removes a markdown code fence some models wrap around JSON output
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
