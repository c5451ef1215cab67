package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hazyhaar/recruitmatch/pkg/importer"
)

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file (default $RECRUITMATCH_CONFIG)")
	source := fs.String("source", "", "adapter ID to import (e.g. ipeds-institutions-us)")
	all := fs.Bool("all", false, "import all available sources")
	outputDir := fs.String("output-dir", "", "output directory for corpora (default: import_output_dir from config)")
	setURL := fs.String("set-url", "", "override the source URL of --source (empty string with --reset-url restores the default)")
	resetURL := fs.Bool("reset-url", false, "restore the default source URL of --source")
	fs.Parse(args)

	cfg, logger := loadConfig(*cfgPath)
	if *outputDir == "" {
		*outputDir = cfg.ImportDir()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	// Open source DB and seed defaults.
	sdb, err := importer.OpenSourceDB(sourcesPath(cfg))
	if err != nil {
		logger.Error("open source db", "error", err)
		os.Exit(1)
	}
	defer sdb.Close()

	if err := sdb.Seed(ctx, importer.All()); err != nil {
		logger.Error("seed sources", "error", err)
		os.Exit(1)
	}

	if *setURL != "" || *resetURL {
		if *source == "" {
			fmt.Fprintln(os.Stderr, "--set-url and --reset-url need --source")
			os.Exit(1)
		}
		url := *setURL
		if *resetURL {
			url = ""
		}
		if err := sdb.SetURL(ctx, *source, url); err != nil {
			logger.Error("set url", "source", *source, "error", err)
			os.Exit(1)
		}
		current, _ := sdb.GetURL(ctx, *source)
		fmt.Printf("[%s] source URL: %s\n", *source, current)
		return
	}

	if !*all && *source == "" {
		fmt.Println("Available sources:")
		fmt.Println()
		sources, _ := sdb.ListSources(ctx)
		for _, src := range sources {
			status := ""
			if src.LastStatus != nil {
				status = fmt.Sprintf("  [%d]", *src.LastStatus)
			}
			if src.Overridden() {
				status += "  (url overridden)"
			}
			fmt.Printf("  %-25s  %s  (-> %s)%s\n", src.AdapterID, src.Description, src.CorpusID, status)
		}
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  recruitmatch import --source <id> [--output-dir <dir>]")
		fmt.Println("  recruitmatch import --all [--output-dir <dir>]")
		fmt.Println("  recruitmatch import --source <id> --set-url <url> | --reset-url")
		return
	}

	adapters := importer.All()
	if !*all {
		a, err := importer.Get(*source)
		if err != nil {
			logger.Error("unknown source", "source", *source, "error", err)
			os.Exit(1)
		}
		adapters = []importer.Adapter{a}
	}

	failed := 0
	for _, a := range adapters {
		url, err := sdb.GetURL(ctx, a.ID())
		if err != nil {
			logger.Error("source url", "source", a.ID(), "error", err)
			failed++
			continue
		}
		logger.Info("import started", "source", a.ID(), "url", url)
		if err := a.Import(ctx, url, *outputDir); err != nil {
			logger.Error("import failed", "source", a.ID(), "error", err)
			failed++
			continue
		}
		if err := sdb.MarkImported(ctx, a.ID()); err != nil {
			logger.Warn("record import", "source", a.ID(), "error", err)
		}
		fmt.Printf("[%s] OK -> %s/%s/\n", a.ID(), *outputDir, a.CorpusID())
	}
	if failed > 0 {
		os.Exit(1)
	}
}
