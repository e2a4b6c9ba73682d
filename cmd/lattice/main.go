// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/lattice"
	"github.com/poiesic/lattice/ai"
	"github.com/poiesic/lattice/batch"
	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/server"
)

func main() {
	app := &cli.App{
		Name:  "lattice",
		Usage: "Typed knowledge graph builder for engineering documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
						Value: ":8080",
					},
					&cli.StringFlag{
						Name:  "extractor-host",
						Usage: "Extraction service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "extractor-model",
						Usage: "Extraction model name",
						Value: "qwen2.5:3b",
					},
					&cli.Float64Flag{
						Name:  "min-confidence",
						Usage: "Drop extraction candidates below this confidence",
						Value: 0.5,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Worker pool size shared across batch jobs",
						Value: 0,
					},
					&cli.DurationFlag{
						Name:  "file-timeout",
						Usage: "Per-file processing deadline",
						Value: 2 * time.Minute,
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Ingest documents from the command line as one batch job",
				Action:    ingestCommand,
				ArgsUsage: "FILE [FILE...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "extractor-host",
						Usage: "Extraction service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "extractor-model",
						Usage: "Extraction model name",
						Value: "qwen2.5:3b",
					},
					&cli.Float64Flag{
						Name:  "min-confidence",
						Usage: "Drop extraction candidates below this confidence",
						Value: 0.5,
					},
					&cli.DurationFlag{
						Name:  "file-timeout",
						Usage: "Per-file processing deadline",
						Value: 2 * time.Minute,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func aiConfigFromFlags(c *cli.Context) *ai.Config {
	return ai.NewConfig(
		ai.WithExtractorHost(c.String("extractor-host")),
		ai.WithExtractorModel(c.String("extractor-model")),
		ai.WithMinConfidence(c.Float64("min-confidence")),
	)
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := lattice.NewDatabase(ctx, c.String("db"),
		lattice.WithAIConfig(aiConfigFromFlags(c)))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	batchOpts := []batch.Option{
		batch.WithFileTimeout(c.Duration("file-timeout")),
	}
	if size := c.Int("pool-size"); size > 0 {
		batchOpts = append(batchOpts, batch.WithPoolSize(size))
	}

	orchestrator, err := db.NewOrchestrator(batchOpts...)
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}
	defer orchestrator.Release()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return fmt.Errorf("creating ingestion pipeline: %w", err)
	}

	router := server.NewRouter(server.RouterConfig{
		OntologyHandler: server.NewOntologyHandler(db.Ontology()),
		BatchHandler:    server.NewBatchHandler(orchestrator),
		RAGHandler:      server.NewRAGHandler(pipeline),
	})

	srv := &http.Server{
		Addr:    c.String("addr"),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("no input files given")
	}
	files := c.Args().Slice()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := lattice.NewDatabase(ctx, c.String("db"),
		lattice.WithAIConfig(aiConfigFromFlags(c)))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	orchestrator, err := db.NewOrchestrator(
		batch.WithFileTimeout(c.Duration("file-timeout")))
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}
	defer orchestrator.Release()

	jobID, err := orchestrator.Submit(ctx, files, nil)
	if err != nil {
		return fmt.Errorf("submitting batch: %w", err)
	}
	slog.Info("batch submitted", "jobId", jobID, "files", len(files))

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	done := ctx.Done()
	for {
		select {
		case <-done:
			done = nil // only request cancellation once
			if err := orchestrator.Cancel(context.Background(), jobID); err != nil {
				slog.Error("failed to request cancellation", "err", err)
			}
			slog.Warn("cancellation requested; waiting for in-flight files")
		case <-ticker.C:
		}

		progress, err := orchestrator.Status(context.Background(), jobID)
		if err != nil {
			return fmt.Errorf("reading job status: %w", err)
		}
		fmt.Fprintf(os.Stderr, "\rProgress: %d/%d (%d failed)",
			progress.ProcessedFiles, progress.TotalFiles, progress.FailedFiles)

		if progress.Status.Terminal() {
			fmt.Fprintln(os.Stderr)
			report, err := orchestrator.Report(context.Background(), jobID)
			if err != nil {
				return fmt.Errorf("reading job report: %w", err)
			}
			slog.Info("batch finished", "status", report.Status, "summary", report.Summary)
			for _, fileErr := range report.Errors {
				slog.Warn("file failed", "file", fileErr.File, "reason", fileErr.Reason)
			}
			if report.Status == core.JobStatusFailed {
				return fmt.Errorf("batch failed: %s", report.Summary)
			}
			return nil
		}
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
