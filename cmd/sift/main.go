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
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/poiesic/sift"
	"github.com/poiesic/sift/ai"
	"github.com/poiesic/sift/server"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:   "sift",
		Usage:  "Adaptive retrieval question answering service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP answer service",
				Action: serveCommand,
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:    "listen",
						Usage:   "HTTP listen address",
						Value:   ":8000",
						EnvVars: []string{"SIFT_LISTEN"},
					},
				),
			},
			{
				Name:   "index",
				Usage:  "Build the local knowledge index from markdown documents",
				Action: indexCommand,
				Flags: append(serviceFlags(),
					&cli.BoolFlag{
						Name:  "rebuild",
						Usage: "Drop the existing index and rebuild from scratch",
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Answer a single question from the command line",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags:     serviceFlags(),
			},
			{
				Name:      "route",
				Usage:     "Show the routing decision for a query without retrieval",
				ArgsUsage: "<query>",
				Action:    routeCommand,
				Flags:     serviceFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB index directory",
			Value:   "sift.db",
			EnvVars: []string{"SIFT_DB"},
		},
		&cli.StringFlag{
			Name:    "docs",
			Usage:   "Directory of markdown documents to index",
			Value:   "docs",
			EnvVars: []string{"SIFT_DOCS"},
		},
		&cli.StringFlag{
			Name:    "llm-host",
			Usage:   "OpenAI-compatible service host URL for embeddings and chat",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"LLM_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "embeddinggemma",
			EnvVars: []string{"EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "chat-model",
			Usage:   "Chat model name for routing and synthesis",
			Value:   "qwen2.5:3b",
			EnvVars: []string{"CHAT_MODEL"},
		},
		&cli.StringFlag{
			Name:    "llm-api-key",
			Usage:   "Bearer token for the model service",
			EnvVars: []string{"LLM_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "tavily-api-key",
			Usage:   "Tavily API key for web search (web retrieval is disabled when unset)",
			EnvVars: []string{"TAVILY_API_KEY"},
		},
		&cli.StringSliceFlag{
			Name:    "local-keywords",
			Usage:   "Keywords that route a query straight to the local index",
			EnvVars: []string{"SIFT_LOCAL_KEYWORDS"},
		},
		&cli.StringSliceFlag{
			Name:    "realtime-keywords",
			Usage:   "Keywords that route a query straight to web search",
			EnvVars: []string{"SIFT_REALTIME_KEYWORDS"},
		},
		&cli.IntFlag{
			Name:    "top-k",
			Usage:   "Number of results each retriever fetches per query",
			EnvVars: []string{"SIFT_TOP_K"},
		},
		&cli.DurationFlag{
			Name:    "cache-ttl",
			Usage:   "How long routing decisions and web results stay cached",
			EnvVars: []string{"SIFT_CACHE_TTL"},
		},
		&cli.DurationFlag{
			Name:    "call-timeout",
			Usage:   "Timeout for each model or search call",
			EnvVars: []string{"SIFT_CALL_TIMEOUT"},
		},
	}
}

func buildService(c *cli.Context) (*sift.Service, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("llm-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithAPIKey(c.String("llm-api-key")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []sift.ServiceOption{
		sift.WithAIConfig(aiConfig),
		sift.WithDocsDir(c.String("docs")),
		sift.WithSearchAPIKey(c.String("tavily-api-key")),
		sift.WithTopK(c.Int("top-k")),
		sift.WithCacheTTL(c.Duration("cache-ttl")),
		sift.WithCallTimeout(c.Duration("call-timeout")),
	}
	local := c.StringSlice("local-keywords")
	realtime := c.StringSlice("realtime-keywords")
	if len(local) > 0 || len(realtime) > 0 {
		opts = append(opts, sift.WithKeywords(local, realtime))
	}

	service, err := sift.NewService(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build service: %w", err)
	}
	return service, nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, err := buildService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	srv, err := server.NewServer(service, service, server.WithAddr(c.String("listen")))
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	// The health probe reports loading until the index is ready.
	go func() {
		if err := service.EnsureIndex(ctx); err != nil {
			slog.Error("index load failed", "err", err)
			return
		}
		srv.SetReady(true)
	}()

	return srv.ListenAndServe(ctx)
}

func indexCommand(c *cli.Context) error {
	ctx := context.Background()

	service, err := buildService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	if c.Bool("rebuild") {
		count, err := service.RebuildIndex(ctx)
		if err != nil {
			return fmt.Errorf("rebuild failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Indexed %d chunks\n", count)
		return nil
	}

	if err := service.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	count, err := service.ChunkRepository().Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Index ready with %d chunks\n", count)
	return nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	ctx := context.Background()

	service, err := buildService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	if err := service.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("index load failed: %w", err)
	}

	response := service.Answer(ctx, question)
	return printJSON(response)
}

func routeCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}

	service, err := buildService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	decision := service.Route(context.Background(), query)
	return printJSON(decision)
}

func printJSON(payload any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func setup(c *cli.Context) error {
	// Missing .env is fine; flags and process env still apply
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "err", err)
	}

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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
