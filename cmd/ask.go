package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"

	"github.com/edumentor/edumentor/internal/app"
	"github.com/edumentor/edumentor/internal/config"
	"github.com/edumentor/edumentor/internal/knowledge"
	"github.com/edumentor/edumentor/internal/tutor"
)

// defaultWrapWidth is the word-wrap width for rendered answers.
const defaultWrapWidth = 80

// runAsk answers a single question from the command line and exits.
// With --subject the answer is grounded in that subject's indexed
// material and the sources are listed after the answer.
func runAsk() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	configureLogger(cfg)

	askFlags := flag.NewFlagSet("ask", flag.ContinueOnError)
	askFlags.SetOutput(os.Stderr)
	subject := askFlags.String("subject", "", "Subject whose study material grounds the answer")
	plain := askFlags.Bool("plain", false, "Print the raw answer without terminal styling")

	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	if err := askFlags.Parse(args); err != nil {
		return fmt.Errorf("parsing ask flags: %w", err)
	}

	question := strings.TrimSpace(strings.Join(askFlags.Args(), " "))
	if question == "" {
		return errors.New(`ask needs a question, e.g.: edumentor ask --subject maths "what is a fraction?"`)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	var matches []knowledge.Match
	if *subject != "" {
		matches, err = a.Knowledge.Search(ctx, *subject, question)
		if err != nil {
			// Retrieval is an enrichment; the tutor can answer without it.
			slog.Warn("material search failed, answering without context", "error", err)
			matches = nil
		}
	}

	resp, err := a.Tutor.Answer(ctx, tutor.Request{
		UserID:  "cli",
		Subject: *subject,
		Message: question,
		Context: knowledge.FormatContext(matches),
	})
	if err != nil {
		return fmt.Errorf("generating answer: %w", err)
	}

	printAnswer(os.Stdout, resp.Answer, matches, *plain)
	return nil
}

// printAnswer writes the answer, then the sources that grounded it.
func printAnswer(w io.Writer, answer string, matches []knowledge.Match, plain bool) {
	if plain {
		fmt.Fprintln(w, answer)
		for _, m := range matches {
			fmt.Fprintf(w, "  source: %s (%.0f%% match)\n", m.Source, m.Similarity*100)
		}
		return
	}

	fmt.Fprintln(w, renderMarkdown(answer))

	if len(matches) > 0 {
		heading := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
		entry := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

		fmt.Fprintln(w, heading.Render("Sources"))
		for _, m := range matches {
			line := fmt.Sprintf("  %s (%s, %.0f%% match)", m.Title, m.Source, m.Similarity*100)
			fmt.Fprintln(w, entry.Render(line))
		}
	}
}

// renderMarkdown converts Markdown to styled terminal output.
// Returns the original text if rendering fails.
func renderMarkdown(markdown string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Detect light/dark terminal
		glamour.WithWordWrap(defaultWrapWidth),
	)
	if err != nil {
		return markdown
	}

	rendered, err := r.Render(markdown)
	if err != nil {
		return markdown
	}

	// Trim trailing newlines added by glamour
	return strings.TrimSuffix(rendered, "\n")
}
