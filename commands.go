package main

import (
	"agentterm/internal/config"
	"agentterm/internal/provider"
	"agentterm/internal/session"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	nameStyle  = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
)

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "agentterm",
		Short: "Chat with LLM-backed agents from the terminal",
		Long: `agentterm discovers agents from the embedded defaults, the agents directory and the
configuration file, pairs the chosen agent with a language model provider and runs a
conversation in the terminal.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, flags)
			if err != nil {
				return err
			}
			d, err := a.newSession(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return d.Interactive(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "config.json", "Configuration file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&flags.agentsDir, "agents-dir", "agents", "Directory scanned for agent manifests")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 0, "Per-call provider timeout (default from AGENTTERM_TIMEOUT)")

	rootCmd.AddCommand(newListCmd(flags))
	rootCmd.AddCommand(newProvidersCmd(flags))
	rootCmd.AddCommand(newRunCmd(flags))
	rootCmd.AddCommand(newUseCmd(flags))
	return rootCmd
}

func (a *app) newSession(out io.Writer) (*session.Driver, error) {
	return session.New(session.Config{
		Registry:       a.registry,
		File:           a.file,
		Credentials:    a.cfg.Credentials,
		GetUserMessage: a.cfg.GetUserMessage,
		Output:         out,
		Timeout:        a.cfg.Timeout,
		MaxTokens:      a.cfg.MaxTokens,
		Limits: session.Limits{
			MaxTurns:           a.cfg.MaxTurns,
			MaxSessionDuration: a.cfg.MaxSessionDuration,
		},
	})
}

// agentInfo is the list --json record of one agent
type agentInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	ResultShape string `json:"result_shape"`
	Source      string `json:"source"`
}

func newListCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the discovered agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			descs := a.registry.List()

			if asJSON {
				infos := make([]agentInfo, 0, len(descs))
				for _, d := range descs {
					infos = append(infos, agentInfo{
						Name:        d.Name,
						Description: d.Description,
						Provider:    d.Provider.String(),
						Model:       d.EffectiveModel(),
						ResultShape: d.ResultShape,
						Source:      d.Source,
					})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}

			fmt.Fprintln(out, titleStyle.Render("Available agents:"))
			for i, d := range descs {
				fmt.Fprintf(out, "  %d. %s %s\n", i+1, nameStyle.Render(d.Name),
					faintStyle.Render(fmt.Sprintf("(%s/%s, %s)", d.Provider, d.EffectiveModel(), d.ResultShape)))
				if d.Description != "" {
					fmt.Fprintf(out, "     %s\n", d.Description)
				}
			}
			if rejected := a.registry.Rejected(); len(rejected) > 0 {
				fmt.Fprintf(out, "\n%s\n", warnStyle.Render(english.Plural(len(rejected), "agent candidate", "")+" skipped:"))
				for _, err := range rejected {
					fmt.Fprintf(out, "  - %v\n", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print agents as JSON")
	return cmd
}

func newProvidersCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Show supported providers, their credentials and configured models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, titleStyle.Render("Providers:"))
			for _, p := range provider.Supported() {
				status := "set"
				if _, err := a.cfg.Credentials.For(p); err != nil {
					status = warnStyle.Render("not set")
				}
				fmt.Fprintf(out, "  %s default %-28s %s %s\n", nameStyle.Render(fmt.Sprintf("%-10s", p)), provider.DefaultModel(p), config.EnvVar(p), status)
			}

			if len(a.file.LLMs) == 0 {
				return nil
			}
			fmt.Fprintf(out, "\n%s\n", titleStyle.Render("Configured language models:"))
			for _, llm := range a.file.LLMs {
				marker := ""
				if llm.Name == a.file.CurrentLLM {
					marker = faintStyle.Render(" current")
				}
				model := llm.Model
				if model == "" {
					if p, err := provider.Parse(llm.Provider); err == nil {
						model = provider.DefaultModel(p)
					}
				}
				fmt.Fprintf(out, "  %s (%s/%s)%s\n", nameStyle.Render(llm.Name), llm.Provider, model, marker)
			}
			return nil
		},
	}
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var providerName, model, llm string

	cmd := &cobra.Command{
		Use:   "run <agent> [query...]",
		Short: "Chat with one agent, or ask it a single query",
		Long: `Run selects the named agent directly. With a query the answer is printed and the
command exits; without one an interactive conversation starts.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, flags)
			if err != nil {
				return err
			}

			p, m, err := a.pairing(providerName, model, llm)
			if err != nil {
				return err
			}

			d, err := a.newSession(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := d.Select(ctx, args[0], p, m); err != nil {
				return err
			}

			if query := strings.TrimSpace(strings.Join(args[1:], " ")); query != "" {
				return d.Once(ctx, query)
			}
			return d.Loop(ctx)
		},
	}

	cmd.Flags().StringVar(&providerName, "provider", "", "Provider to pair the agent with (gemini, openai, anthropic)")
	cmd.Flags().StringVar(&model, "model", "", "Model to use instead of the agent or provider default")
	cmd.Flags().StringVar(&llm, "llm", "", "Named language model from the configuration file")
	return cmd
}

// pairing resolves run flags into a provider and model. An empty provider keeps the
// agent's own.
func (a *app) pairing(providerName, model, llm string) (provider.Provider, string, error) {
	if llm != "" {
		entry, ok := a.file.LLM(llm)
		if !ok {
			return "", "", &config.ErrConfiguration{Field: "llm", Reason: fmt.Sprintf("%q is not defined in %s", llm, a.cfg.ConfigFile)}
		}
		if providerName == "" {
			providerName = entry.Provider
		}
		if model == "" {
			model = entry.Model
		}
	}
	if providerName == "" {
		return "", model, nil
	}

	p, err := provider.Parse(providerName)
	if err != nil {
		return "", "", &config.ErrConfiguration{Field: "provider", Err: err}
	}
	return p, model, nil
}

func newUseCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "use <llm>",
		Short: "Make a configured language model the current one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, flags)
			if err != nil {
				return err
			}
			return a.use(cmd.OutOrStdout(), args[0])
		},
	}
}

func (a *app) use(out io.Writer, name string) error {
	if _, ok := a.file.LLM(name); !ok {
		return &config.ErrConfiguration{Field: "current_llm", Reason: fmt.Sprintf("%q is not defined in %s", name, a.cfg.ConfigFile)}
	}
	a.file.CurrentLLM = name
	if err := a.file.Save(a.cfg.ConfigFile); err != nil {
		return err
	}
	fmt.Fprintf(out, "Current language model set to %s.\n", nameStyle.Render(name))
	return nil
}
