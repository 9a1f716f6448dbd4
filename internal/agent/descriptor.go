package agent

import (
	"agentterm/internal/agent/schema"
	"agentterm/internal/config"
	"agentterm/internal/provider"
	"io/fs"
	"strings"
)

// KindStructured is the default agent kind: an instruction-driven agent whose output
// is validated against its declared result shape
const KindStructured = "structured"

// Descriptor is the identity and configuration of an agent. It is created at discovery
// time and never modified afterwards; use WithModel to derive a session pairing.
type Descriptor struct {
	Name        string
	Source      string
	Description string
	Kind        string
	Provider    provider.Provider
	Model       string
	Instruction string
	ResultShape string

	// Shape is the validator resolved from ResultShape
	Shape *schema.Shape
}

// FromEntry builds a Descriptor from a configuration entry. Shape references that are
// file paths are read from fsys. The returned error is *ErrInvalidDescriptor.
func FromEntry(entry config.AgentEntry, source string, fsys fs.FS) (Descriptor, error) {
	name := strings.TrimSpace(entry.Name)
	if name == "" {
		return Descriptor{}, &ErrInvalidDescriptor{Field: "name", Reason: "is required"}
	}

	if strings.TrimSpace(entry.Provider) == "" {
		return Descriptor{}, &ErrInvalidDescriptor{Name: name, Field: "provider", Reason: "is required"}
	}
	p, err := provider.Parse(entry.Provider)
	if err != nil {
		return Descriptor{}, &ErrInvalidDescriptor{Name: name, Field: "provider", Err: err}
	}

	if strings.TrimSpace(entry.Instruction) == "" {
		return Descriptor{}, &ErrInvalidDescriptor{Name: name, Field: "instruction", Reason: "is required"}
	}

	if strings.TrimSpace(entry.ResultShape) == "" {
		return Descriptor{}, &ErrInvalidDescriptor{Name: name, Field: "result_shape", Reason: "is required"}
	}
	shape, err := schema.Resolve(entry.ResultShape, fsys)
	if err != nil {
		return Descriptor{}, &ErrInvalidDescriptor{Name: name, Field: "result_shape", Err: err}
	}

	kind := entry.Kind
	if kind == "" {
		kind = KindStructured
	}

	return Descriptor{
		Name:        name,
		Source:      source,
		Description: entry.Description,
		Kind:        kind,
		Provider:    p,
		Model:       entry.Model,
		Instruction: entry.Instruction,
		ResultShape: entry.ResultShape,
		Shape:       shape,
	}, nil
}

// Entry converts the descriptor back into its configuration entry
func (d Descriptor) Entry() config.AgentEntry {
	kind := d.Kind
	if kind == KindStructured {
		kind = ""
	}
	return config.AgentEntry{
		Name:        d.Name,
		Description: d.Description,
		Kind:        kind,
		Provider:    d.Provider.String(),
		Model:       d.Model,
		Instruction: d.Instruction,
		ResultShape: d.ResultShape,
	}
}

// EffectiveModel returns the model to call, falling back to the provider default
func (d Descriptor) EffectiveModel() string {
	if d.Model != "" {
		return d.Model
	}
	return provider.DefaultModel(d.Provider)
}

// WithModel returns a copy paired with another provider and model. When the provider
// changes and no model is given, the provider default is used.
func (d Descriptor) WithModel(p provider.Provider, model string) Descriptor {
	if p == "" {
		p = d.Provider
	}
	if model == "" && p == d.Provider {
		model = d.Model
	}
	d.Provider = p
	d.Model = model
	return d
}
