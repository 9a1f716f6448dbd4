package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{in: "gemini", want: Gemini},
		{in: "Google", want: Gemini},
		{in: " openai ", want: OpenAI},
		{in: "ANTHROPIC", want: Anthropic},
		{in: "claude", want: Anthropic},
		{in: "mistral", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestSupportedAndDefaults(t *testing.T) {
	assert.Equal(t, []Provider{Gemini, OpenAI, Anthropic}, Supported())
	for _, p := range Supported() {
		assert.NotEmpty(t, DefaultModel(p), p)
	}
	assert.False(t, Provider("mistral").Valid())
	assert.Empty(t, DefaultModel("mistral"))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), OpenAI, "")
	assert.Error(t, err)

	_, err = New(context.Background(), Provider("mistral"), "key")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}\n"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}```"))
}

var echoSchema = json.RawMessage(`{"type":"object","properties":{"echo":{"type":"string"}},"required":["echo"],"additionalProperties":false}`)

func echoRequest() Request {
	return Request{
		Instruction: "Repeat the message.",
		History: []Message{
			{Role: RoleUser, Content: "first"},
			{Role: RoleAssistant, Content: `{"echo":"first"}`},
		},
		Query:      "hi",
		SchemaName: "echo",
		Schema:     echoSchema,
	}
}

// recordingServer answers every request whose path ends in suffix with body and keeps
// the decoded request payload
func recordingServer(t *testing.T, suffix, body string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, suffix) {
			http.NotFound(w, r)
			return
		}
		data, err := io.ReadAll(r.Body)
		if err == nil {
			_ = json.Unmarshal(data, &payload)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &payload
}

func TestAnthropicCompleter(t *testing.T) {
	srv, payload := recordingServer(t, "/v1/messages", `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-3-5-haiku-latest",
		"content": [{"type": "tool_use", "id": "toolu_1", "name": "echo", "input": {"echo": "hi"}}],
		"stop_reason": "tool_use",
		"stop_sequence": null,
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)

	c, err := New(context.Background(), Anthropic, "test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	req := echoRequest()
	req.Model = DefaultModel(Anthropic)
	raw, err := c.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"echo": "hi"}`, string(raw))

	sent := *payload
	require.NotNil(t, sent)
	assert.Equal(t, req.Model, sent["model"])
	messages, ok := sent["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 3)
	assert.Contains(t, sent, "tool_choice")
	assert.Contains(t, sent, "system")
}

func TestOpenAICompleter(t *testing.T) {
	srv, payload := recordingServer(t, "/chat/completions", `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-4o-mini",
		"choices": [{
			"index": 0,
			"finish_reason": "stop",
			"logprobs": null,
			"message": {"role": "assistant", "content": "{\"echo\": \"hi\"}", "refusal": null}
		}]
	}`)

	c, err := New(context.Background(), OpenAI, "test-key", WithBaseURL(srv.URL+"/v1/"))
	require.NoError(t, err)

	req := echoRequest()
	req.Model = DefaultModel(OpenAI)
	raw, err := c.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"echo": "hi"}`, string(raw))

	sent := *payload
	require.NotNil(t, sent)
	messages, ok := sent["messages"].([]any)
	require.True(t, ok)
	// system + two history messages + query
	assert.Len(t, messages, 4)
	format, ok := sent["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])
}

func TestGeminiCompleter(t *testing.T) {
	srv, payload := recordingServer(t, ":generateContent", `{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "`+"```json\\n{\\\"echo\\\": \\\"hi\\\"}\\n```"+`"}]},
			"finishReason": "STOP"
		}]
	}`)

	c, err := New(context.Background(), Gemini, "test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	req := echoRequest()
	req.Model = DefaultModel(Gemini)
	raw, err := c.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"echo": "hi"}`, string(raw))

	sent := *payload
	require.NotNil(t, sent)
	contents, ok := sent["contents"].([]any)
	require.True(t, ok)
	assert.Len(t, contents, 3)
}

func TestGeminiInstruction(t *testing.T) {
	got := geminiInstruction(Request{Instruction: "Be brief.", Schema: echoSchema})
	assert.True(t, strings.HasPrefix(got, "Be brief.\n\n"))
	assert.Contains(t, got, string(echoSchema))

	assert.Empty(t, geminiInstruction(Request{}))
}

func TestAnthropicInputSchema(t *testing.T) {
	param, err := anthropicInputSchema(echoSchema)
	require.NoError(t, err)
	props, ok := param.Properties.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "echo")

	_, err = anthropicInputSchema(json.RawMessage(`{`))
	assert.Error(t, err)
}
