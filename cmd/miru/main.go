// Package main is the miru CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/pipeline"
	"github.com/hyperjump/miru/internal/server"
	"github.com/hyperjump/miru/internal/watcher"
	"github.com/hyperjump/miru/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/miru/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "run":
		runRun()
	case "serve":
		runServe()
	case "version", "--version", "-v":
		fmt.Printf("miru version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// pipelineFlags registers the flags shared by run and serve, returning the
// override appliers.
func pipelineFlags(fs *flag.FlagSet) func(cfg *config.Config) error {
	dir := fs.String("dir", "", "corpus directory (overrides config)")
	query := fs.String("query", "", "query image path (overrides config)")
	feature := fs.String("feature", "", "feature type: gradient or binary (overrides config)")
	mode := fs.String("mode", "", "descriptor mode: global or region (overrides config)")
	max := fs.String("max", "", "max corpus images, or \"all\" (overrides config)")
	workers := fs.Int("workers", 0, "descriptor worker count (0 = CPU count)")
	topK := fs.Int("k", 0, "number of matches to return (overrides config)")

	return func(cfg *config.Config) error {
		if *dir != "" {
			cfg.Corpus.Directory = *dir
		}
		if *query != "" {
			cfg.Corpus.QueryImage = *query
		}
		if *feature != "" {
			cfg.Descriptor.Feature = strings.ToLower(*feature)
		}
		if *mode != "" {
			cfg.Descriptor.Mode = strings.ToLower(*mode)
		}
		if *max != "" {
			if strings.EqualFold(*max, "all") {
				cfg.Corpus.MaxImages = config.MaxImagesUnbounded
			} else {
				n, err := strconv.Atoi(*max)
				if err != nil || n <= 0 {
					return fmt.Errorf("invalid -max value %q (want a positive number or \"all\")", *max)
				}
				cfg.Corpus.MaxImages = n
			}
		}
		if *workers > 0 {
			cfg.Descriptor.Workers = *workers
		}
		if *topK > 0 {
			cfg.Search.TopK = *topK
		}
		return cfg.Validate()
	}
}

func runRun() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	apply := pipelineFlags(fs)
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := apply(cfg); err != nil {
		fmt.Printf("Invalid flags: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded", zap.String("config_path", resolvedPath))

	pipe, err := pipeline.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", zap.Error(err))
		os.Exit(1)
	}
	defer pipe.Close()

	summary, err := pipe.Run(context.Background())
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}

	fmt.Printf("\nTop %d matches for %s:\n", len(summary.Matches), filepath.Base(summary.QueryPath))
	for _, m := range summary.Matches {
		hit := " "
		if m.Hit {
			hit = "*"
		}
		fmt.Printf("  %d. [%s] %s  (dist=%.4f)  %s\n", m.Rank, hit, filepath.Base(m.Path), m.Distance, m.Categories)
	}
	fmt.Printf("Precision@%d = %.4f\n", len(summary.Matches), summary.PrecisionAtK)
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watch := fs.Bool("watch", false, "watch the corpus directory and index new images")
	apply := pipelineFlags(fs)
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := apply(cfg); err != nil {
		fmt.Printf("Invalid flags: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded", zap.String("config_path", resolvedPath))

	pipe, err := pipeline.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", zap.Error(err))
		os.Exit(1)
	}
	defer pipe.Close()

	ctx := context.Background()

	// Reuse a snapshot when one exists; otherwise build from the corpus.
	if cfg.Storage.IndexPath != "" {
		if err := pipe.Index().Load(cfg.Storage.IndexPath); err != nil {
			logger.Warn("could not load index snapshot", zap.Error(err))
		} else if n := pipe.Index().Size(); n > 0 {
			logger.Info("index snapshot loaded", zap.Int("indexed", n))
		}
	}
	if pipe.Index().Size() == 0 {
		if err := pipe.BuildIndex(ctx); err != nil {
			logger.Error("failed to build index", zap.Error(err))
			os.Exit(1)
		}
	}

	if *watch {
		w := watcher.New(cfg.Corpus.Directory, cfg.Corpus.Extensions, func(path string) {
			if err := pipe.AddFile(ctx, path); err != nil {
				logger.Warn("could not index new image", zap.String("path", path), zap.Error(err))
				return
			}
			logger.Info("indexed new image", zap.String("path", path), zap.Int("indexed", pipe.Index().Size()))
		}, watcher.WithLogger(logger))
		if err := w.Start(); err != nil {
			logger.Error("failed to start watcher", zap.Error(err))
			os.Exit(1)
		}
		defer w.Stop()
	}

	srv := server.NewServer(pipe, cfg, logger)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`miru - content-based image retrieval

Usage:
  miru run   [-config path] [-dir path] [-query path] [-feature gradient|binary]
             [-mode global|region] [-max N|all] [-workers N] [-k N] [-debug]
  miru serve [-config path] [-watch] [...same flags as run] [-debug]
  miru version
  miru help

run    builds descriptors for every corpus image, indexes them, searches for
       the query image, and writes the CSV report and top-K match copies.
serve  builds (or loads) the index and serves queries over HTTP.`)
}
