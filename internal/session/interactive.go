package session

import (
	"agentterm/internal/agent"
	"agentterm/internal/config"
	"agentterm/internal/logger"
	"agentterm/internal/provider"
	"agentterm/internal/registry"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Pairing is one provider/model choice offered after an agent is picked
type Pairing struct {
	Name     string
	Provider provider.Provider
	Model    string
}

// Pairings lists the provider/model choices for desc. The agent's own pairing comes
// first, then the configured LLMs with current_llm leading, then the default model of
// every supported provider. Duplicates are dropped.
func (d *Driver) Pairings(desc agent.Descriptor) []Pairing {
	log := logger.Get()
	seen := make(map[string]bool)
	var out []Pairing

	add := func(p Pairing) {
		if p.Model == "" {
			p.Model = provider.DefaultModel(p.Provider)
		}
		key := p.Provider.String() + "/" + p.Model
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, p)
	}

	add(Pairing{Name: desc.Name + " default", Provider: desc.Provider, Model: desc.Model})

	llms := make([]config.LLMEntry, 0, len(d.file.LLMs))
	if current, ok := d.file.LLM(d.file.CurrentLLM); ok {
		llms = append(llms, current)
	}
	for _, entry := range d.file.LLMs {
		if entry.Name != d.file.CurrentLLM {
			llms = append(llms, entry)
		}
	}
	for _, entry := range llms {
		p, err := provider.Parse(entry.Provider)
		if err != nil {
			log.Debug().Err(err).Str("llm", entry.Name).Msg("Skipping configured LLM")
			continue
		}
		add(Pairing{Name: entry.Name, Provider: p, Model: entry.Model})
	}

	for _, p := range provider.Supported() {
		add(Pairing{Name: p.String(), Provider: p})
	}
	return out
}

// Interactive asks for an agent and a provider/model pairing, then runs the loop.
// Unknown choices and configuration failures are reported and asked again; the
// session ends quietly when input is exhausted.
func (d *Driver) Interactive(ctx context.Context) error {
	log := logger.Get()

	for {
		d.state = Selecting

		desc, ok := d.chooseAgent()
		if !ok {
			d.end()
			return nil
		}

		pairing, ok := d.choosePairing(desc)
		if !ok {
			d.end()
			return nil
		}

		err := d.Select(ctx, desc.Name, pairing.Provider, pairing.Model)
		if err == nil {
			return d.Loop(ctx)
		}

		var cfgErr *config.ErrConfiguration
		var notFound *registry.ErrAgentNotFound
		if !errors.As(err, &cfgErr) && !errors.As(err, &notFound) {
			return err
		}
		log.Debug().Err(err).Str("session", d.id).Msg("Selection rejected, asking again")
		d.printError(err)
	}
}

func (d *Driver) chooseAgent() (agent.Descriptor, bool) {
	descs := d.registry.List()
	options := make([]string, len(descs))
	for i, desc := range descs {
		options[i] = desc.Name
		if desc.Description != "" {
			options[i] += styles.info.Render(" - " + desc.Description)
		}
	}

	i, ok := d.choose("Available agents:", options, func(s string) (int, error) {
		if _, err := d.registry.Get(s); err != nil {
			return -1, err
		}
		for i, desc := range descs {
			if desc.Name == s {
				return i, nil
			}
		}
		return -1, &registry.ErrAgentNotFound{Name: s}
	})
	if !ok {
		return agent.Descriptor{}, false
	}
	return descs[i], true
}

func (d *Driver) choosePairing(desc agent.Descriptor) (Pairing, bool) {
	pairings := d.Pairings(desc)
	options := make([]string, len(pairings))
	for i, p := range pairings {
		options[i] = fmt.Sprintf("%s (%s/%s)", p.Name, p.Provider, p.Model)
		if p.Name == d.file.CurrentLLM {
			options[i] += styles.info.Render(" current")
		}
		if _, err := d.credentials.For(p.Provider); err != nil {
			options[i] += styles.info.Render(" [" + config.EnvVar(p.Provider) + " not set]")
		}
	}

	i, ok := d.choose("Language models for "+desc.Name+":", options, func(s string) (int, error) {
		for i, p := range pairings {
			if strings.EqualFold(p.Name, s) {
				return i, nil
			}
		}
		if p, err := provider.Parse(s); err == nil {
			for i, pairing := range pairings {
				if pairing.Provider == p {
					return i, nil
				}
			}
		}
		return -1, fmt.Errorf("unknown language model %q", s)
	})
	if !ok {
		return Pairing{}, false
	}
	return pairings[i], true
}

// choose prints a numbered menu and reads until the user picks an option by number or
// by name. It reports false when input ends or the user exits.
func (d *Driver) choose(title string, options []string, byName func(string) (int, error)) (int, bool) {
	fmt.Fprintf(d.out, "\n%s\n", styles.title.Render(title))
	for i, option := range options {
		fmt.Fprintf(d.out, "  %d. %s\n", i+1, option)
	}

	for {
		fmt.Fprintf(d.out, "Enter a number (1-%d) or name: ", len(options))
		input, ok := d.getUserMessage()
		if !ok {
			return -1, false
		}

		choice := strings.TrimSpace(input)
		switch strings.ToLower(choice) {
		case "":
			continue
		case "exit", "quit":
			return -1, false
		}

		if n, err := strconv.Atoi(choice); err == nil {
			if n >= 1 && n <= len(options) {
				return n - 1, true
			}
			d.printError(fmt.Errorf("invalid choice %d, pick a number between 1 and %d", n, len(options)))
			continue
		}

		i, err := byName(choice)
		if err != nil {
			d.printError(err)
			continue
		}
		return i, true
	}
}
