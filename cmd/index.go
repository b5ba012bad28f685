package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/edumentor/edumentor/internal/app"
	"github.com/edumentor/edumentor/internal/config"
	"github.com/edumentor/edumentor/internal/database"
	"github.com/edumentor/edumentor/internal/document"
)

// runIndex ingests study material into the knowledge store. Sources can
// be PDF files, shell-style globs, or http(s) article URLs; everything
// lands under one subject per invocation.
func runIndex() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	configureLogger(cfg)

	indexFlags := flag.NewFlagSet("index", flag.ContinueOnError)
	indexFlags.SetOutput(os.Stderr)
	subject := indexFlags.String("subject", "", "Subject to index into (required)")

	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	if err := indexFlags.Parse(args); err != nil {
		return fmt.Errorf("parsing index flags: %w", err)
	}

	if *subject == "" {
		return errors.New("--subject is required, e.g.: edumentor index --subject maths textbook.pdf")
	}
	targets, err := expandTargets(indexFlags.Args())
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errors.New("nothing to index: pass PDF files, globs, or URLs")
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

	if v, err := database.VecVersion(a.DB); err == nil {
		slog.Debug("sqlite-vec loaded", "version", v)
	}

	total := 0
	for _, target := range targets {
		doc, err := loadTarget(ctx, a, *subject, target)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", target, err)
		}
		added, err := a.Knowledge.Add(ctx, doc)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", target, err)
		}
		slog.Info("indexed", "source", doc.Source, "title", doc.Title, "chunks", added)
		total += added
	}

	slog.Info("indexing complete", "subject", *subject, "sources", len(targets), "chunks", total)
	return nil
}

// expandTargets resolves each argument into concrete sources. URLs pass
// through untouched; everything else goes through filepath.Glob, and a
// pattern that matches nothing must at least name an existing file.
func expandTargets(args []string) ([]string, error) {
	var targets []string
	for _, arg := range args {
		if isURL(arg) {
			targets = append(targets, arg)
			continue
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad glob pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(arg); statErr != nil {
				return nil, fmt.Errorf("no files match %q", arg)
			}
			matches = []string{arg}
		}
		targets = append(targets, matches...)
	}
	return targets, nil
}

// loadTarget extracts and chunks one source.
func loadTarget(ctx context.Context, a *app.App, subject, target string) (*document.Document, error) {
	if isURL(target) {
		return a.Documents.FromURL(ctx, target, subject)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, err
	}
	return a.Documents.FromPDF(subject, filepath.Base(target), data)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
