package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	corpus := flag.String("corpus", "", "override the corpus path from the config")
	force := flag.Bool("force", false, "re-index even when the snapshot is fresh")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpus != "" {
		cfg.Indexer.CorpusPath = *corpus
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer",
		"corpus_path", cfg.Indexer.CorpusPath,
		"cache_dir", cfg.Indexer.CacheDir,
		"force", *force,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := indexer.NewEngine(cfg.Indexer)
	if err != nil {
		slog.Error("failed to create indexing engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	if *force {
		err = engine.Refresh(ctx, "cli")
	} else {
		select {
		case err = <-engine.Start():
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	if err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(engine.Stats()); err != nil {
		slog.Error("writing stats", "error", err)
		os.Exit(1)
	}
}
