package provider

import (
	"agentterm/internal/logger"
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicCompleter forces the result through a single tool whose input schema is
// the requested result shape; the tool input is the structured result.
type anthropicCompleter struct {
	client    *anthropic.Client
	maxTokens int64
}

func newAnthropic(apiKey string, o Options) *anthropicCompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	return &anthropicCompleter{
		client:    &client,
		maxTokens: o.MaxTokens,
	}
}

// Complete sends the conversation to Claude and returns the forced tool input
func (c *anthropicCompleter) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	toolName := req.SchemaName
	if toolName == "" {
		toolName = "result"
	}

	inputSchema, err := anthropicInputSchema(req.Schema)
	if err != nil {
		return nil, err
	}

	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, m := range req.History {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(block))
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Query)))

	params := anthropic.MessageNewParams{
		Model:     req.Model,
		MaxTokens: maxTokens,
		Messages:  messages,
		Tools: []anthropic.ToolUnionParam{{
			OfTool: &anthropic.ToolParam{
				Name:        toolName,
				Description: anthropic.String("Report your answer by calling this tool with the structured result."),
				InputSchema: inputSchema,
			},
		}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfToolChoiceTool: &anthropic.ToolChoiceToolParam{Name: toolName},
		},
	}
	if req.Instruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instruction}}
	}

	logger.Get().Debug().
		Str("model", req.Model).
		Int("history", len(req.History)).
		Msg("Sending request to Anthropic")

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	for _, content := range message.Content {
		if content.Type == "tool_use" && content.Name == toolName {
			return json.RawMessage(content.Input), nil
		}
	}
	// Fall back to a text block holding JSON
	for _, content := range message.Content {
		if content.Type == "text" {
			return json.RawMessage(stripCodeFence(content.Text)), nil
		}
	}
	return nil, fmt.Errorf("anthropic: response contained no result")
}

// anthropicInputSchema converts a JSON schema document into the tool input schema param
func anthropicInputSchema(schema json.RawMessage) (anthropic.ToolInputSchemaParam, error) {
	var doc struct {
		Properties map[string]any `json:"properties"`
	}
	if len(schema) > 0 {
		if err := json.Unmarshal(schema, &doc); err != nil {
			return anthropic.ToolInputSchemaParam{}, fmt.Errorf("anthropic: invalid result schema: %w", err)
		}
	}
	return anthropic.ToolInputSchemaParam{
		Properties: doc.Properties,
	}, nil
}
