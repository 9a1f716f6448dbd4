package session

import (
	"agentterm/internal/agent"
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var styles = struct {
	prompt lipgloss.Style
	agent  lipgloss.Style
	err    lipgloss.Style
	info   lipgloss.Style
	title  lipgloss.Style
}{
	prompt: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575")),
	agent:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
	err:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
	info:   lipgloss.NewStyle().Faint(true),
	title:  lipgloss.NewStyle().Bold(true),
}

func (d *Driver) printResult(result *agent.Result) {
	fmt.Fprintf(d.out, "\n%s: %s\n\n", styles.agent.Render("·>"), result.Text())
}

func (d *Driver) printError(err error) {
	fmt.Fprintf(d.out, "\n%s\n\n", styles.err.Render("Error: "+err.Error()))
}
