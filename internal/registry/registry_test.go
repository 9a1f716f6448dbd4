package registry

import (
	"agentterm/agents"
	"agentterm/internal/agent"
	"agentterm/internal/config"
	"agentterm/internal/provider"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifests() fstest.MapFS {
	return fstest.MapFS{
		"summarize.yaml": {Data: []byte("name: summarize\nprovider: openai\ninstruction: Summarize.\nresult_shape: summary\n")},
		"echo.json":      {Data: []byte(`{"name": "echo", "provider": "gemini", "instruction": "Repeat.", "result_shape": "echo"}`)},
		"broken.yaml":    {Data: []byte("name: broken\nprovider: gemini\nresult_shape: text\n")},
		"README.md":      {Data: []byte("# agents\n")},
		"shapes/x.json":  {Data: []byte(`{"type": "object"}`)},
	}
}

func TestLoadFS_ValidAndInvalidCandidates(t *testing.T) {
	r := New()
	r.LoadFS("agents", manifests())

	assert.Equal(t, []string{"echo", "summarize"}, r.Names())

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "echo", list[0].Name)
	assert.Equal(t, "agents/echo.json", list[0].Source)
	assert.Equal(t, "summarize", list[1].Name)

	rejected := r.Rejected()
	require.Len(t, rejected, 1)
	var discoveryErr *ErrDiscovery
	require.ErrorAs(t, rejected[0], &discoveryErr)
	assert.Equal(t, "agents/broken.yaml", discoveryErr.Source)
	var invalid *agent.ErrInvalidDescriptor
	require.ErrorAs(t, rejected[0], &invalid)
	assert.Equal(t, "instruction", invalid.Field)
}

func TestGet(t *testing.T) {
	r := New()
	r.LoadFS("agents", manifests())

	first, err := r.Get("echo")
	require.NoError(t, err)
	second, err := r.Get("echo")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Same(t, first.Shape, second.Shape)

	_, err = r.Get("missing")
	var notFound *ErrAgentNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Name)

	for _, d := range r.List() {
		_, err := r.Get(d.Name)
		assert.NoError(t, err)
	}
}

func TestLoadFS_RejectsBadCandidates(t *testing.T) {
	fsys := fstest.MapFS{
		"mistral.yaml": {Data: []byte("name: m\nprovider: mistral\ninstruction: x\nresult_shape: text\n")},
		"syntax.json":  {Data: []byte(`{"name": "s",`)},
		"shape.yaml":   {Data: []byte("name: s\nprovider: gemini\ninstruction: x\nresult_shape: poem\n")},
		"kind.yaml":    {Data: []byte("name: k\nkind: scripted\nprovider: gemini\ninstruction: x\nresult_shape: text\n")},
		"noname.yml":   {Data: []byte("provider: gemini\ninstruction: x\nresult_shape: text\n")},
	}

	r := New()
	assert.NotPanics(t, func() { r.LoadFS("agents", fsys) })
	assert.Empty(t, r.Names())
	assert.Len(t, r.Rejected(), 5)
}

func TestRegisterKind(t *testing.T) {
	fsys := fstest.MapFS{
		"kind.yaml": {Data: []byte("name: k\nkind: scripted\nprovider: gemini\ninstruction: x\nresult_shape: text\n")},
	}

	r := New()
	var built agent.Descriptor
	r.RegisterKind("scripted", func(cfg agent.Config) (agent.Agent, error) {
		built = cfg.Descriptor
		return agent.New(cfg)
	})
	r.LoadFS("agents", fsys)
	require.Equal(t, []string{"k"}, r.Names())

	d, err := r.Get("k")
	require.NoError(t, err)
	a, err := r.Build(agent.Config{Descriptor: d, Completer: stubCompleter{}})
	require.NoError(t, err)
	assert.Equal(t, "k", built.Name)
	assert.Equal(t, "k", a.Descriptor().Name)
}

func TestBuild_Structured(t *testing.T) {
	r := New()
	r.LoadFS("agents", manifests())

	d, err := r.Get("echo")
	require.NoError(t, err)

	a, err := r.Build(agent.Config{Descriptor: d.WithModel(provider.Anthropic, ""), Completer: stubCompleter{}})
	require.NoError(t, err)
	assert.Equal(t, provider.Anthropic, a.Descriptor().Provider)

	history := agent.NewConversation()
	_, err = a.Run(context.Background(), "hi", history)
	require.NoError(t, err)
	assert.Equal(t, 1, history.Len())

	d.Kind = "unregistered"
	_, err = r.Build(agent.Config{Descriptor: d, Completer: stubCompleter{}})
	assert.Error(t, err)
}

type stubCompleter struct{}

func (stubCompleter) Complete(ctx context.Context, req provider.Request) (json.RawMessage, error) {
	switch req.SchemaName {
	case "echo":
		return json.RawMessage(`{"echo": "` + req.Query + `"}`), nil
	default:
		return json.RawMessage(`{"text_response": "ok"}`), nil
	}
}

func TestDiscover_SourcesOverrideByName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.yaml"),
		[]byte("name: echo\nprovider: anthropic\ninstruction: Repeat from dir.\nresult_shape: echo\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "shapes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shapes", "review.json"),
		[]byte(`{"type":"object","properties":{"verdict":{"type":"string"}},"required":["verdict"]}`), 0o644))

	r, err := Discover(Options{
		Embedded:   agents.Defaults(),
		AgentsDir:  dir,
		ConfigPath: "config.json",
		Entries: []config.AgentEntry{
			{Name: "chat", Provider: "openai", Instruction: "Chat from config.", ResultShape: "text"},
			{Name: "reviewer", Provider: "anthropic", Instruction: "Review.", ResultShape: "shapes/review.json"},
			{Name: "bad", Provider: "openai", ResultShape: "text"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"chat", "codegen", "echo", "reviewer", "summarize"}, r.Names())

	echo, err := r.Get("echo")
	require.NoError(t, err)
	assert.Equal(t, provider.Anthropic, echo.Provider)
	assert.Equal(t, filepath.Join(dir, "echo.yaml"), echo.Source)

	chat, err := r.Get("chat")
	require.NoError(t, err)
	assert.Equal(t, "Chat from config.", chat.Instruction)
	assert.Equal(t, "config.json#agents[0]", chat.Source)

	reviewer, err := r.Get("reviewer")
	require.NoError(t, err)
	assert.Equal(t, "shapes/review.json", reviewer.Shape.Name())

	assert.Len(t, r.Rejected(), 1)
}

func TestDiscover_EmbeddedDefaults(t *testing.T) {
	r, err := Discover(Options{Embedded: agents.Defaults(), AgentsDir: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	assert.Equal(t, []string{"chat", "codegen", "echo", "summarize"}, r.Names())
	assert.Empty(t, r.Rejected())
}

func TestDiscover_NoAgents(t *testing.T) {
	r, err := Discover(Options{AgentsDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrNoAgents)
	assert.NotNil(t, r)
}

func TestDiscover_AgentsDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "agents")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	r, err := Discover(Options{Embedded: agents.Defaults(), AgentsDir: file})
	require.NoError(t, err)
	assert.Len(t, r.Rejected(), 1)
}

func TestDefault_DiscoversOnce(t *testing.T) {
	first, err := Default(Options{Embedded: agents.Defaults()})
	require.NoError(t, err)

	second, err := Default(Options{AgentsDir: t.TempDir()})
	require.NoError(t, err)
	assert.Same(t, first, second)
}
