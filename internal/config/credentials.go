package config

import (
	"agentterm/internal/provider"
	"fmt"
)

// Credentials holds one API key per supported provider. It is built once at startup and
// passed explicitly to whatever constructs provider adapters.
type Credentials struct {
	Gemini    string `envconfig:"GEMINI_API_KEY"`
	Google    string `envconfig:"GOOGLE_API_KEY"`
	OpenAI    string `envconfig:"OPENAI_API_KEY"`
	Anthropic string `envconfig:"ANTHROPIC_API_KEY"`
}

// EnvVar returns the primary credential variable for p
func EnvVar(p provider.Provider) string {
	switch p {
	case provider.Gemini:
		return "GEMINI_API_KEY"
	case provider.OpenAI:
		return "OPENAI_API_KEY"
	case provider.Anthropic:
		return "ANTHROPIC_API_KEY"
	}
	return ""
}

// For returns the API key for p. Gemini falls back to GOOGLE_API_KEY.
func (c Credentials) For(p provider.Provider) (string, error) {
	var key string
	switch p {
	case provider.Gemini:
		key = c.Gemini
		if key == "" {
			key = c.Google
		}
	case provider.OpenAI:
		key = c.OpenAI
	case provider.Anthropic:
		key = c.Anthropic
	default:
		return "", &ErrConfiguration{Field: "provider", Err: fmt.Errorf("%w: %q", provider.ErrUnsupported, string(p))}
	}

	if key == "" {
		reason := fmt.Sprintf("%s environment variable is not set", EnvVar(p))
		if p == provider.Gemini {
			reason = "GEMINI_API_KEY (or GOOGLE_API_KEY) environment variable is not set"
		}
		return "", &ErrConfiguration{Field: EnvVar(p), Reason: reason}
	}
	return key, nil
}

// Available lists the providers whose credential is set, in supported order
func (c Credentials) Available() []string {
	var out []string
	for _, p := range provider.Supported() {
		if _, err := c.For(p); err == nil {
			out = append(out, p.String())
		}
	}
	return out
}
