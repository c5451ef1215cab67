package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hazyhaar/recruitmatch/pkg/api"
	"github.com/hazyhaar/recruitmatch/pkg/config"
	"github.com/hazyhaar/recruitmatch/pkg/duplicates"
	"github.com/hazyhaar/recruitmatch/pkg/importer"
	"github.com/hazyhaar/recruitmatch/pkg/institution"
	"github.com/hazyhaar/recruitmatch/pkg/metrics"
	"github.com/hazyhaar/recruitmatch/pkg/store"
	"github.com/mark3labs/mcp-go/server"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "import":
		cmdImport(os.Args[2:])
	case "resolve":
		cmdResolve(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: recruitmatch <command>

Commands:
  serve     Start the HTTP + MCP server
  import    Download reference corpora from public sources
  resolve   Resolve institution names from the command line
`)
}

// loadConfig loads the layered config and builds the process logger, exiting
// on invalid settings.
func loadConfig(path string) (*config.Config, *slog.Logger) {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger
}

// sourcesPath is the import source DB, kept next to the athlete database.
func sourcesPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.DatabasePath), "sources.db")
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file (default $RECRUITMATCH_CONFIG)")
	fs.Parse(args)

	cfg, logger := loadConfig(*cfgPath)
	mtr := metrics.NewManager()

	// Load reference corpora.
	reg := institution.NewRegistry(cfg.CorporaDir)
	if err := reg.Load(); err != nil {
		logger.Error("failed to load corpora", "dir", cfg.CorporaDir, "error", err)
		os.Exit(1)
	}
	mtr.UpdateCorpusEntities(reg.TotalEntities())
	logger.Info("corpora loaded", "count", reg.CorpusCount(), "entities", reg.TotalEntities())
	if _, ok := reg.Corpus(cfg.DefaultCorpus); !ok {
		logger.Warn("default corpus not loaded", "corpus", cfg.DefaultCorpus)
	}

	athletes, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open athlete store", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer athletes.Close()

	svc := &api.Service{
		Registry: reg,
		Store:    athletes,
		Finder: duplicates.New(athletes,
			duplicates.WithLimit(cfg.DuplicatesLimit),
			duplicates.WithMinConfidence(cfg.DuplicatesMinConfidence),
			duplicates.WithPoolLimit(cfg.DuplicatesPoolLimit),
			duplicates.WithLogger(logger),
		),
		Metrics:       mtr,
		Logger:        logger,
		DefaultCorpus: cfg.DefaultCorpus,
	}

	mcpSrv := server.NewMCPServer("recruitmatch", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(mcpSrv, svc)

	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(mcpSrv))
	mux.Handle("/", api.NewRouter(svc))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// SIGHUP: hot reload corpora.
	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading corpora")
			if err := reg.Reload(); err != nil {
				logger.Error("reload failed", "error", err)
				continue
			}
			mtr.UpdateCorpusEntities(reg.TotalEntities())
			logger.Info("corpora reloaded", "count", reg.CorpusCount(), "entities", reg.TotalEntities())
		}
	}()

	if interval := cfg.SourceCheckInterval(); interval > 0 {
		sdb, err := importer.OpenSourceDB(sourcesPath(cfg))
		if err != nil {
			logger.Error("failed to open source db", "error", err)
			os.Exit(1)
		}
		defer sdb.Close()
		if err := sdb.Seed(ctx, importer.All()); err != nil {
			logger.Error("failed to seed sources", "error", err)
			os.Exit(1)
		}
		go importer.NewChecker(sdb, logger, interval).Start(ctx)
	}

	// Start server.
	go func() {
		logger.Info("recruitmatch listening", "addr", cfg.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func cmdResolve(args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file (default $RECRUITMATCH_CONFIG)")
	corpus := fs.String("corpus", "", "corpus id (default: default_corpus from config)")
	fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: recruitmatch resolve [--corpus <id>] <name> [<name>...]")
		os.Exit(1)
	}

	cfg, logger := loadConfig(*cfgPath)
	reg := institution.NewRegistry(cfg.CorporaDir)
	if err := reg.Load(); err != nil {
		logger.Error("failed to load corpora", "dir", cfg.CorporaDir, "error", err)
		os.Exit(1)
	}
	id := *corpus
	if id == "" {
		id = cfg.DefaultCorpus
	}

	enc := json.NewEncoder(os.Stdout)
	for _, q := range fs.Args() {
		m, err := reg.Resolve(id, q)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		enc.Encode(struct {
			Query string             `json:"query"`
			Match *institution.Match `json:"match"`
		}{q, m})
	}
}
