package provider

import (
	"agentterm/internal/logger"
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// openaiCompleter uses Chat Completions with a JSON schema response format
type openaiCompleter struct {
	client    openai.Client // NewClient returns Client (not *Client)
	maxTokens int64
}

func newOpenAI(apiKey string, o Options) *openaiCompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	return &openaiCompleter{
		client:    openai.NewClient(opts...),
		maxTokens: o.MaxTokens,
	}
}

// Complete sends the conversation to OpenAI and returns the JSON message content
func (c *openaiCompleter) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.Instruction != "" {
		messages = append(messages, openai.SystemMessage(req.Instruction))
	}
	for _, m := range req.History {
		if m.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
			continue
		}
		messages = append(messages, openai.UserMessage(m.Content))
	}
	messages = append(messages, openai.UserMessage(req.Query))

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(req.Model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(maxTokens),
	}

	if len(req.Schema) > 0 {
		var schema map[string]any
		if err := json.Unmarshal(req.Schema, &schema); err != nil {
			return nil, fmt.Errorf("openai: invalid result schema: %w", err)
		}
		name := req.SchemaName
		if name == "" {
			name = "result"
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: schema,
				},
			},
		}
	}

	logger.Get().Debug().
		Str("model", req.Model).
		Int("history", len(req.History)).
		Msg("Sending request to OpenAI")

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai: response contained no choices")
	}

	return json.RawMessage(stripCodeFence(completion.Choices[0].Message.Content)), nil
}
