package provider

import (
	"agentterm/internal/logger"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// geminiCompleter requests JSON output and states the result schema in the system instruction
type geminiCompleter struct {
	client    *genai.Client
	maxTokens int64
}

func newGemini(ctx context.Context, apiKey string, o Options) (*geminiCompleter, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if o.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	return &geminiCompleter{
		client:    client,
		maxTokens: o.MaxTokens,
	}, nil
}

// Complete sends the conversation to Gemini and returns the JSON response text
func (c *geminiCompleter) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Query, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  int32(maxTokens),
	}
	if instruction := geminiInstruction(req); instruction != "" {
		config.SystemInstruction = genai.NewContentFromText(instruction, genai.RoleUser)
	}

	logger.Get().Debug().
		Str("model", req.Model).
		Int("history", len(req.History)).
		Msg("Sending request to Gemini")

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini: response contained no text")
	}
	return json.RawMessage(stripCodeFence(text)), nil
}

func geminiInstruction(req Request) string {
	var b strings.Builder
	b.WriteString(req.Instruction)
	if len(req.Schema) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Respond with a single JSON object that conforms to this JSON schema:\n")
		b.Write(req.Schema)
	}
	return b.String()
}
