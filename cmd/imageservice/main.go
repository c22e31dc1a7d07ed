// Command imageservice processes one or more image files into Document JSON
// records.
//
// Usage:
//
//	imageservice [flags] <image> [<image>...]
//
// Configuration comes from IMAGE_SERVICE_* environment variables (a .env
// file is loaded when present); flags override per-invocation options.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	imageservice "github.com/planora/image-service"
	"github.com/planora/image-service/config"
	"github.com/planora/image-service/document"
	apperrors "github.com/planora/image-service/errors"
	"github.com/planora/image-service/hooks"
)

func main() {
	if err := run(); err != nil {
		var pe *apperrors.ProcessingError
		if errors.As(err, &pe) {
			fmt.Fprintf(os.Stderr, "processing error: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "internal error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	workspace := flag.String("workspace", "", "workspace directory (default from config)")
	format := flag.String("format", "", "output format: webp or jpeg (default from config)")
	documentID := flag.String("id", "", "custom document id")
	outputFile := flag.String("output", "", "write JSON output to file instead of stdout")
	pretty := flag.Bool("pretty", true, "pretty-print JSON output")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if flag.NArg() == 0 {
		return errors.New("at least one image path is required")
	}

	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	cfg := config.FromEnv()
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel, *verbose),
	}))

	proc := imageservice.New(cfg)
	proc.SetLogger(hooks.NewSlogLogger(logger))
	if *verbose {
		proc.AddHook(hooks.NewLoggingHook(hooks.NewSlogLogger(logger)))
	}

	opts := imageservice.ProcessOptions{
		Workspace:    *workspace,
		OutputFormat: *format,
		DocumentID:   *documentID,
	}
	if flag.NArg() > 1 && opts.DocumentID != "" {
		return errors.New("-id cannot be combined with multiple inputs")
	}

	docs := make([]*document.Document, flag.NArg())
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(cfg.WorkerCount)
	for i, path := range flag.Args() {
		i, path := i, path
		g.Go(func() error {
			doc, err := proc.Process(ctx, path, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			docs[i] = doc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return writeOutput(docs, *outputFile, *pretty)
}

func writeOutput(docs []*document.Document, outputFile string, pretty bool) error {
	var payload any = docs
	if len(docs) == 1 {
		payload = docs[0]
	}

	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if outputFile != "" {
		return os.WriteFile(outputFile, data, 0o644)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func logLevel(configured string, verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(configured) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
