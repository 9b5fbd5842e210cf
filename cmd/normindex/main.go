// Copyright 2026 Normindex Authors
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
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/normindex/normindex"
	"github.com/normindex/normindex/config"
	"github.com/normindex/normindex/core"
	"github.com/normindex/normindex/ingest"
	"github.com/normindex/normindex/search"
	"github.com/normindex/normindex/store"
)

func main() {
	app := &cli.App{
		Name:  "normindex",
		Usage: "Semantic index for normative and regulatory documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Set logging format (text, json)",
				Value: "text",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Extract, chunk, embed, and index documents",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 10,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search the index for relevant chunks",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   search.DefaultLimit,
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Minimum relevance score (negative disables the threshold)",
					},
					&cli.StringSliceFlag{
						Name:  "document",
						Usage: "Restrict results to these document ids",
					},
					&cli.StringFlag{
						Name:  "section",
						Usage: "Restrict results to a section path, e.g. 'СП 63/5.2'",
					},
					&cli.StringSliceFlag{
						Name:  "entity",
						Usage: "Restrict results to chunks referencing these standards",
					},
				},
			},
			{
				Name:      "reindex",
				Usage:     "Re-ingest documents, replacing their indexed chunks",
				ArgsUsage: "FILE...",
				Action:    reindexCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 10,
					},
				},
			},
			{
				Name:      "delete",
				Usage:     "Remove a document and all its chunks from the index",
				ArgsUsage: "DOCUMENT_ID",
				Action:    deleteCommand,
			},
			{
				Name:   "stats",
				Usage:  "Print index contents summary",
				Action: statsCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openEngine(c *cli.Context) (*normindex.Engine, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	engine, err := normindex.NewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}
	return engine, nil
}

func ingestCommand(c *cli.Context) error {
	return runIngestion(c, false)
}

func reindexCommand(c *cli.Context) error {
	return runIngestion(c, true)
}

func runIngestion(c *cli.Context, reindex bool) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	documents := make([]*core.SourceDocument, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		// Format detection falls back to the file extension.
		documents = append(documents, core.NewSourceDocument(path, "", data, nil))
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	tracker := ingest.NewProgressTracker(os.Stderr, len(documents), c.Int("report-interval"))
	pipeline, err := engine.NewIngestionPipeline(ingest.WithProgress(tracker))
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var job *ingest.Job
	if reindex {
		job, err = pipeline.Reindex(ctx, engine.Index(), documents)
		if err != nil {
			return fmt.Errorf("reindex failed: %w", err)
		}
		err = job.Wait(ctx)
	} else {
		job, err = pipeline.RunSync(ctx, documents)
	}
	if err != nil && job == nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	for _, outcome := range job.Outcomes() {
		switch outcome.Status {
		case ingest.DocumentIndexed:
			fmt.Printf("%s: indexed %d chunks (document %d, %s)\n",
				outcome.Path, outcome.Accepted, outcome.DocumentId, outcome.Method)
		case ingest.DocumentDuplicate:
			fmt.Printf("%s: already indexed (document %d)\n", outcome.Path, outcome.DocumentId)
		case ingest.DocumentFailed:
			fmt.Printf("%s: failed: %v\n", outcome.Path, outcome.Err)
		}
	}

	if job.Status() != ingest.StatusCompleted {
		return fmt.Errorf("ingestion %s: %w", job.Status(), job.Err())
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	filters, err := parseFilters(c)
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	searcher, err := engine.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := searcher.Search(ctx, search.Request{
		Query:    query,
		Limit:    c.Int("limit"),
		MinScore: float32(c.Float64("min-score")),
		Filters:  filters,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}

	for i, result := range results {
		section := strings.Join(result.Payload.HierarchyPath, " / ")
		fmt.Printf("%d. [%.3f] document %d", i+1, result.Score, result.Payload.DocumentId)
		if section != "" {
			fmt.Printf(" — %s", section)
		}
		fmt.Println()
		fmt.Printf("   %s\n", condense(result.Payload.Text, 240))
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one document id is required")
	}
	id, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", c.Args().First(), err)
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	removed, err := engine.DeleteDocument(context.Background(), core.ID(id))
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if removed == 0 {
		fmt.Printf("document %d not found\n", id)
		return nil
	}
	fmt.Printf("removed %d chunks of document %d\n", removed, id)
	return nil
}

func statsCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	stats, err := engine.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	fmt.Printf("documents: %d\n", stats.TotalDocuments)
	fmt.Printf("chunks:    %d\n", stats.TotalChunks)

	if cache := engine.Cache(); cache != nil {
		cs := cache.Stats()
		fmt.Printf("cache:     %d hits, %d misses (%.0f%% hit rate)\n",
			cs.Hits, cs.Misses, cs.HitRate*100)
	}
	return nil
}

func parseFilters(c *cli.Context) (store.Filters, error) {
	var filters store.Filters

	for _, raw := range c.StringSlice("document") {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filters, fmt.Errorf("invalid document id %q: %w", raw, err)
		}
		filters.DocumentIds = append(filters.DocumentIds, core.ID(id))
	}

	if section := c.String("section"); section != "" {
		for _, part := range strings.Split(section, "/") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				filters.HierarchyPrefix = append(filters.HierarchyPrefix, trimmed)
			}
		}
	}

	filters.Entities = c.StringSlice("entity")
	return filters, nil
}

// condense collapses whitespace and truncates text for terminal output.
func condense(text string, max int) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) <= max {
		return collapsed
	}
	return string(runes[:max]) + "…"
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(c.String("log-format")) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.String("log-format"))
	}
	slog.SetDefault(slog.New(handler))

	return nil
}
