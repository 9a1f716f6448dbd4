// Package registry discovers agent manifests, validates them against the agent contract
// and maps agent names to the factories that build them.
package registry

import (
	"agentterm/internal/agent"
	"agentterm/internal/config"
	"agentterm/internal/logger"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

// Factory builds an agent of one kind
type Factory func(cfg agent.Config) (agent.Agent, error)

// Registry maps agent names to validated descriptors. Kinds are registered before
// discovery; after discovery a Registry is read-only and safe to share.
type Registry struct {
	kinds    map[string]Factory
	agents   map[string]agent.Descriptor
	names    []string
	rejected []error
}

// New returns an empty registry with the structured kind registered
func New() *Registry {
	r := &Registry{
		kinds:  make(map[string]Factory),
		agents: make(map[string]agent.Descriptor),
	}
	r.RegisterKind(agent.KindStructured, func(cfg agent.Config) (agent.Agent, error) {
		return agent.New(cfg)
	})
	return r
}

// RegisterKind makes a kind of agent constructible. Registering a kind twice replaces
// the earlier factory.
func (r *Registry) RegisterKind(kind string, factory Factory) {
	r.kinds[kind] = factory
}

// LoadFS scans the top level of fsys for manifest files (*.json, *.yaml, *.yml). Each
// file yields at most one agent; result shape files belong in a subdirectory.
func (r *Registry) LoadFS(source string, fsys fs.FS) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		r.reject(source, err)
		return
	}

	for _, e := range entries {
		if e.IsDir() || !isManifest(e.Name()) {
			continue
		}
		location := path.Join(source, e.Name())

		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			r.reject(location, err)
			continue
		}

		entry, err := config.DecodeAgent(e.Name(), data)
		if err != nil {
			r.reject(location, err)
			continue
		}

		r.add(entry, location, fsys)
	}
}

// LoadEntries adds configuration file entries. Shape file references resolve against fsys.
func (r *Registry) LoadEntries(source string, entries []config.AgentEntry, fsys fs.FS) {
	for i, entry := range entries {
		r.add(entry, fmt.Sprintf("%s#agents[%d]", source, i), fsys)
	}
}

func (r *Registry) add(entry config.AgentEntry, source string, fsys fs.FS) {
	d, err := agent.FromEntry(entry, source, fsys)
	if err != nil {
		r.reject(source, err)
		return
	}

	if _, ok := r.kinds[d.Kind]; !ok {
		r.reject(source, &agent.ErrInvalidDescriptor{Name: d.Name, Field: "kind", Reason: fmt.Sprintf("%q is not registered", d.Kind)})
		return
	}

	if previous, ok := r.agents[d.Name]; ok {
		logger.Get().Debug().
			Str("agent", d.Name).
			Str("source", source).
			Str("previous", previous.Source).
			Msg("Agent overridden by later source")
	} else {
		r.names = append(r.names, d.Name)
		sort.Strings(r.names)
	}
	r.agents[d.Name] = d
}

func (r *Registry) reject(source string, err error) {
	discoveryErr := &ErrDiscovery{Source: source, Err: err}
	r.rejected = append(r.rejected, discoveryErr)
	logger.Get().Warn().
		Err(err).
		Str("source", source).
		Msg("Skipping agent candidate")
}

// List returns every agent ordered by name
func (r *Registry) List() []agent.Descriptor {
	out := make([]agent.Descriptor, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.agents[name])
	}
	return out
}

// Names returns the agent names in lexicographic order
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Get returns the descriptor registered under name
func (r *Registry) Get(name string) (agent.Descriptor, error) {
	d, ok := r.agents[name]
	if !ok {
		return agent.Descriptor{}, &ErrAgentNotFound{Name: name}
	}
	return d, nil
}

// Rejected returns the discovery errors of candidates that were omitted
func (r *Registry) Rejected() []error {
	return append([]error(nil), r.rejected...)
}

// Build constructs an agent through the factory of the descriptor's kind
func (r *Registry) Build(cfg agent.Config) (agent.Agent, error) {
	factory, ok := r.kinds[cfg.Descriptor.Kind]
	if !ok {
		return nil, fmt.Errorf("agent %s: kind %q is not registered", cfg.Descriptor.Name, cfg.Descriptor.Kind)
	}
	return factory(cfg)
}

// Options describes where discovery looks for agents
type Options struct {
	// Embedded holds manifests compiled into the binary; loaded first
	Embedded fs.FS

	// AgentsDir is scanned after Embedded; a missing directory is not an error
	AgentsDir string

	// ConfigPath and Entries are the configuration file agents; loaded last
	ConfigPath string
	Entries    []config.AgentEntry

	// Kinds are registered in addition to the structured kind
	Kinds map[string]Factory
}

// Discover builds a registry from every source in opts. Later sources override earlier
// ones by name. It fails only when no valid agent is found.
func Discover(opts Options) (*Registry, error) {
	r := New()
	for kind, factory := range opts.Kinds {
		r.RegisterKind(kind, factory)
	}

	if opts.Embedded != nil {
		r.LoadFS("embedded", opts.Embedded)
	}

	var dirFS fs.FS
	if opts.AgentsDir != "" {
		info, err := os.Stat(opts.AgentsDir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Get().Debug().Str("dir", opts.AgentsDir).Msg("Agents directory not found")
		case err != nil:
			r.reject(opts.AgentsDir, err)
		case !info.IsDir():
			r.reject(opts.AgentsDir, fmt.Errorf("not a directory"))
		default:
			dirFS = os.DirFS(opts.AgentsDir)
			r.LoadFS(opts.AgentsDir, dirFS)
		}
	}

	if len(opts.Entries) > 0 {
		source := opts.ConfigPath
		if source == "" {
			source = "config"
		}
		r.LoadEntries(source, opts.Entries, dirFS)
	}

	logger.Get().Debug().
		Strs("agents", r.names).
		Int("rejected", len(r.rejected)).
		Msg("Agent discovery finished")

	if len(r.names) == 0 {
		return r, ErrNoAgents
	}
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Default discovers agents once per process. The options of the first call are used;
// later calls return the same registry.
func Default(opts Options) (*Registry, error) {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = Discover(opts)
	})
	return defaultRegistry, defaultErr
}

func isManifest(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
