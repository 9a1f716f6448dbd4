package config

import (
	"agentterm/internal/logger"
	"agentterm/internal/provider"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LLMEntry is a named provider/model pairing
type LLMEntry struct {
	Name     string `json:"name" yaml:"name"`
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
}

// AgentEntry declares one agent. The same layout is used for config file entries
// and for manifest files in the agents directory.
type AgentEntry struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Kind        string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Provider    string `json:"provider" yaml:"provider"`
	Model       string `json:"model,omitempty" yaml:"model,omitempty"`
	Instruction string `json:"instruction" yaml:"instruction"`
	ResultShape string `json:"result_shape" yaml:"result_shape"`
}

// File is the configuration file read once at startup
type File struct {
	LLMs       []LLMEntry   `json:"llms,omitempty" yaml:"llms,omitempty"`
	CurrentLLM string       `json:"current_llm,omitempty" yaml:"current_llm,omitempty"`
	Agents     []AgentEntry `json:"agents,omitempty" yaml:"agents,omitempty"`
}

// rawFile defers entry decoding so one malformed entry does not reject the file
type rawFile struct {
	LLMs       []json.RawMessage `json:"llms"`
	CurrentLLM string            `json:"current_llm"`
	Agents     []json.RawMessage `json:"agents"`
}

// legacyLLMEntry accepts the older "model_type" key for the provider
type legacyLLMEntry struct {
	LLMEntry
	ModelType string `json:"model_type"`
}

// LoadFile reads the configuration file at path. A missing file yields an empty File.
// Malformed entries are skipped with a warning; an unparsable document is an error.
func LoadFile(path string) (*File, error) {
	log := logger.Get()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", path).Msg("No configuration file found")
		return &File{}, nil
	}
	if err != nil {
		return nil, &ErrConfiguration{Field: path, Reason: "failed to read configuration file", Err: err}
	}

	return ParseFile(path, data)
}

// ParseFile decodes a configuration document; YAML is chosen by a .yaml or .yml extension
func ParseFile(path string, data []byte) (*File, error) {
	log := logger.Get()

	data, err := toJSON(path, data)
	if err != nil {
		return nil, &ErrConfiguration{Field: path, Reason: "failed to parse configuration file", Err: err}
	}

	var raw rawFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ErrConfiguration{Field: path, Reason: "failed to parse configuration file", Err: err}
	}

	file := &File{CurrentLLM: raw.CurrentLLM}

	for i, msg := range raw.LLMs {
		entry, err := decodeLLM(msg)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Int("index", i).Msg("Skipping malformed llm entry")
			continue
		}
		file.LLMs = append(file.LLMs, entry)
	}

	for i, msg := range raw.Agents {
		var entry AgentEntry
		if err := json.Unmarshal(msg, &entry); err != nil {
			log.Warn().Err(err).Str("path", path).Int("index", i).Msg("Skipping malformed agent entry")
			continue
		}
		file.Agents = append(file.Agents, entry)
	}

	if file.CurrentLLM != "" {
		if _, ok := file.LLM(file.CurrentLLM); !ok {
			log.Warn().Str("current_llm", file.CurrentLLM).Msg("current_llm does not name a configured llm, ignoring")
			file.CurrentLLM = ""
		}
	}

	log.Debug().
		Str("path", path).
		Int("llms", len(file.LLMs)).
		Int("agents", len(file.Agents)).
		Msg("Loaded configuration file")

	return file, nil
}

func decodeLLM(msg json.RawMessage) (LLMEntry, error) {
	var legacy legacyLLMEntry
	if err := json.Unmarshal(msg, &legacy); err != nil {
		return LLMEntry{}, err
	}
	entry := legacy.LLMEntry
	if entry.Provider == "" {
		entry.Provider = legacy.ModelType
	}
	if entry.Name == "" {
		return LLMEntry{}, fmt.Errorf("llm entry has no name")
	}
	p, err := provider.Parse(entry.Provider)
	if err != nil {
		return LLMEntry{}, fmt.Errorf("llm %q: %w", entry.Name, err)
	}
	entry.Provider = p.String()
	return entry, nil
}

// LLM returns the pairing with the given name
func (f *File) LLM(name string) (LLMEntry, bool) {
	for _, llm := range f.LLMs {
		if llm.Name == name {
			return llm, true
		}
	}
	return LLMEntry{}, false
}

// Save writes the file to path, as YAML for .yaml/.yml paths and indented JSON otherwise
func (f *File) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(f)
	} else {
		data, err = json.MarshalIndent(f, "", "    ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode configuration file: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create configuration directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// toJSON converts YAML documents to JSON so both formats share one lenient decoder
func toJSON(path string, data []byte) ([]byte, error) {
	if !isYAML(path) {
		return data, nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(doc)
}

// DecodeAgent parses a single agent manifest document (JSON, or YAML by extension)
func DecodeAgent(path string, data []byte) (AgentEntry, error) {
	data, err := toJSON(path, data)
	if err != nil {
		return AgentEntry{}, err
	}
	var entry AgentEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return AgentEntry{}, err
	}
	return entry, nil
}
