package agent

import (
	"agentterm/internal/config"
	"agentterm/internal/provider"
	"encoding/json"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEntry_Invalid(t *testing.T) {
	valid := config.AgentEntry{
		Name:        "summarize",
		Provider:    "openai",
		Instruction: "Summarize the input.",
		ResultShape: "summary",
	}

	tests := []struct {
		name   string
		mutate func(e *config.AgentEntry)
		field  string
	}{
		{name: "missing name", mutate: func(e *config.AgentEntry) { e.Name = " " }, field: "name"},
		{name: "missing provider", mutate: func(e *config.AgentEntry) { e.Provider = "" }, field: "provider"},
		{name: "unsupported provider", mutate: func(e *config.AgentEntry) { e.Provider = "mistral" }, field: "provider"},
		{name: "missing instruction", mutate: func(e *config.AgentEntry) { e.Instruction = "" }, field: "instruction"},
		{name: "missing result shape", mutate: func(e *config.AgentEntry) { e.ResultShape = "" }, field: "result_shape"},
		{name: "unknown result shape", mutate: func(e *config.AgentEntry) { e.ResultShape = "poem" }, field: "result_shape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := valid
			tt.mutate(&entry)

			_, err := FromEntry(entry, "config.json", nil)
			var invalid *ErrInvalidDescriptor
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestFromEntry_ShapeFile(t *testing.T) {
	fsys := fstest.MapFS{
		"review.json": {Data: []byte(`{"type":"object","properties":{"verdict":{"type":"string"}},"required":["verdict"]}`)},
	}
	d, err := FromEntry(config.AgentEntry{
		Name:        "reviewer",
		Provider:    "Anthropic",
		Instruction: "Review the change.",
		ResultShape: "review.json",
	}, "agents/reviewer.yaml", fsys)
	require.NoError(t, err)

	assert.Equal(t, provider.Anthropic, d.Provider)
	assert.Equal(t, KindStructured, d.Kind)
	assert.Equal(t, "agents/reviewer.yaml", d.Source)
	_, err = d.Shape.Validate(json.RawMessage(`{"verdict": "approve"}`))
	assert.NoError(t, err)
}

func TestDescriptor_EntryRoundTrip(t *testing.T) {
	entries := []config.AgentEntry{
		{Name: "chat", Description: "A basic QA assistant.", Provider: "gemini", Model: "gemini-2.0-flash", Instruction: "Be helpful.", ResultShape: "text"},
		{Name: "codegen", Kind: "custom", Provider: "anthropic", Instruction: "Write code.", ResultShape: "code"},
	}

	for _, entry := range entries {
		t.Run(entry.Name, func(t *testing.T) {
			d, err := FromEntry(entry, "config.json", nil)
			require.NoError(t, err)
			assert.Equal(t, entry, d.Entry())

			again, err := FromEntry(d.Entry(), "config.json", nil)
			require.NoError(t, err)
			assert.Equal(t, d, again)
		})
	}
}

func TestDescriptor_WithModel(t *testing.T) {
	d, err := FromEntry(config.AgentEntry{
		Name:        "chat",
		Provider:    "gemini",
		Model:       "gemini-1.5-pro",
		Instruction: "Be helpful.",
		ResultShape: "text",
	}, "", nil)
	require.NoError(t, err)

	same := d.WithModel("", "")
	assert.Equal(t, d, same)

	sameProvider := d.WithModel(provider.Gemini, "")
	assert.Equal(t, "gemini-1.5-pro", sameProvider.EffectiveModel())

	switched := d.WithModel(provider.OpenAI, "")
	assert.Equal(t, provider.OpenAI, switched.Provider)
	assert.Equal(t, "gpt-4o-mini", switched.EffectiveModel())

	explicit := d.WithModel(provider.Anthropic, "claude-3-7-sonnet-latest")
	assert.Equal(t, "claude-3-7-sonnet-latest", explicit.EffectiveModel())

	// The original descriptor is unchanged
	assert.Equal(t, provider.Gemini, d.Provider)
	assert.Equal(t, "gemini-1.5-pro", d.Model)
}

func TestResult_Text(t *testing.T) {
	single := &Result{Fields: map[string]any{"text_response": "Hello there."}}
	assert.Equal(t, "Hello there.", single.Text())

	multi := &Result{Fields: map[string]any{"summary": "s", "key_points": []any{"a"}}}
	assert.JSONEq(t, `{"summary": "s", "key_points": ["a"]}`, multi.Text())

	number := &Result{Fields: map[string]any{"score": 3.0}}
	assert.JSONEq(t, `{"score": 3}`, number.Text())
}

func TestConversation(t *testing.T) {
	c := NewConversation()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Messages())

	c.Append(Exchange{Query: "q1", Result: &Result{Raw: json.RawMessage(`{"a":1}`)}})
	c.Append(Exchange{Query: "q2", Result: &Result{Raw: json.RawMessage(`{"a":2}`)}})
	assert.Equal(t, 2, c.Len())
	assert.Len(t, c.Messages(), 4)

	// Exchanges returns a copy
	exchanges := c.Exchanges()
	exchanges[0].Query = "changed"
	assert.Equal(t, "q1", c.Exchanges()[0].Query)

	c.Reset()
	assert.Equal(t, 0, c.Len())

	var nilConv *Conversation
	assert.Equal(t, 0, nilConv.Len())
	assert.Nil(t, nilConv.Messages())
}
