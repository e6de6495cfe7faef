// Package cli runs the interactive read-eval-print loop of the agent.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gwi.com/web-rag-agent/internal/core"
)

// TurnHandler answers one line of user input.
type TurnHandler interface {
	HandleTurn(ctx context.Context, userInput string) string
}

type REPL struct {
	handler   TurnHandler
	in        io.Reader
	out       io.Writer
	modelName string

	userLabel  lipgloss.Style
	agentLabel lipgloss.Style
	dimText    lipgloss.Style
}

func NewREPL(handler TurnHandler, modelName string, in io.Reader, out io.Writer) *REPL {
	renderer := lipgloss.NewRenderer(out)
	return &REPL{
		handler:    handler,
		in:         in,
		out:        out,
		modelName:  modelName,
		userLabel:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		agentLabel: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		dimText:    renderer.NewStyle().Faint(true),
	}
}

// Run reads lines until "exit", "quit" or end of input. Blank lines are
// ignored. Every other line is one turn.
func (r *REPL) Run(ctx context.Context) error {
	r.printBanner()

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprintf(r.out, "\n%s ", r.userLabel.Render("You:"))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			fmt.Fprintln(r.out)
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		if isExitCommand(input) {
			fmt.Fprintln(r.out, "Exiting agent.")
			return nil
		}
		if input == "" {
			continue
		}

		answer := r.handler.HandleTurn(ctx, input)
		fmt.Fprintf(r.out, "%s %s\n", r.agentLabel.Render("Agent:"), answer)
	}
}

func (r *REPL) printBanner() {
	fmt.Fprintf(r.out, "Simple Agent CLI (using model: %s)\n", r.modelName)
	fmt.Fprintln(r.out, "Enter a URL for the model to consider scraping, or ask a question.")
	fmt.Fprintln(r.out, r.dimText.Render(fmt.Sprintf("Scrape requests: %s\"URL_HERE\"%s",
		core.ScrapeURLPrefix, core.ToolRequestSuffix)))
	fmt.Fprintln(r.out, r.dimText.Render(fmt.Sprintf("Search requests: %squery=\"QUERY_HERE\", category=\"CATEGORY_HERE\"%s",
		core.GetFromVDBPrefix, core.ToolRequestSuffix)))
	fmt.Fprintln(r.out, "Type 'exit' or 'quit' to end.")
}

func isExitCommand(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit":
		return true
	}
	return false
}
