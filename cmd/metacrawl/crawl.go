package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/metacrawl/internal/config"
	"github.com/nao1215/metacrawl/internal/crawler"
	"github.com/nao1215/metacrawl/internal/database"
	"github.com/nao1215/metacrawl/internal/log"
	"github.com/nao1215/metacrawl/internal/model"
	"github.com/nao1215/metacrawl/internal/pipeline"
	"github.com/nao1215/metacrawl/internal/report"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the metagame and write decks.json",
		Long: `Crawl fetches the metagame index, every listed deck's tournament finishes
and every finish's decklist, then writes the ranked decks to decks.json.

A deck is kept when it has at least --min-games games; if none has, the ten
most played decks are kept. Identical card lists are merged and the most
played --max-decklists of them are written per deck.

Pages that cannot be fetched or parsed after the index are logged and
skipped. A failure on the index page itself aborts the crawl.

Examples:
  # Crawl with the defaults
  metacrawl crawl

  # Write somewhere else and also produce a Markdown report
  metacrawl crawl -o out/decks.json -m out/report.md

  # Quick look: fewer finishes per deck, lower threshold
  metacrawl crawl --max-finishes 20 --min-games 10

  # Be gentle with the site
  metacrawl crawl -c 4 --rate-limit 5`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"Output file for the ranked decks")
	cmd.Flags().StringP("markdown", "m", "",
		"Also write a Markdown report to this file")
	cmd.Flags().String("snapshot", "",
		"Also write the full snapshot (ID, decks, page statistics) as JSON to this file")
	cmd.Flags().Bool("show-decklists", false,
		"List the kept decklists in the terminal summary")
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency,
		"Pages fetched at once")
	cmd.Flags().Int("min-games", config.DefaultMinGames,
		"Minimum games for a deck or decklist to be kept")
	cmd.Flags().Int("max-decklists", config.DefaultMaxDecklists,
		"Decklists kept per deck")
	cmd.Flags().Int("max-finishes", 0,
		"Finishes read per deck (0 reads all)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Float64("rate-limit", 0,
		"Maximum requests per second (0 for no limit)")
	cmd.Flags().String("origin", config.DefaultOrigin,
		"Site root")
	cmd.Flags().String("index-path", config.DefaultIndexPath,
		"Metagame index path below the origin")
	cmd.Flags().String("config", "",
		"Configuration file path (default: .metacrawl in current or home directory)")
	cmd.Flags().Bool("no-db", false,
		"Do not save the snapshot to the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogFormat returns the global --log-format value, "text" when unset.
func getLogFormat(cmd *cobra.Command) (string, error) {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format, err = cmd.Root().PersistentFlags().GetString("log-format")
		if err != nil {
			return "text", nil
		}
	}
	switch format {
	case "text", "json":
		return format, nil
	default:
		return "", fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.JSONLogs {
		return log.NewJSONLogger(w, cfg.Verbose)
	}
	return log.NewLogger(w, cfg.Verbose)
}

// buildConfig layers defaults, the configuration file and the flags the
// user actually set, in that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	logFormat, err := getLogFormat(cmd)
	if err != nil {
		return nil, err
	}
	cfg.JSONLogs = logFormat == "json"

	flags := cmd.Flags()

	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if flags.Changed("output") {
		if cfg.OutputFile, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if cfg.MarkdownFile, err = flags.GetString("markdown"); err != nil {
		return nil, err
	}
	if cfg.SnapshotFile, err = flags.GetString("snapshot"); err != nil {
		return nil, err
	}
	if cfg.ShowDecklists, err = flags.GetBool("show-decklists"); err != nil {
		return nil, err
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("min-games") {
		if cfg.MinGames, err = flags.GetInt("min-games"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-decklists") {
		if cfg.MaxDecklists, err = flags.GetInt("max-decklists"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-finishes") {
		if cfg.MaxFinishes, err = flags.GetInt("max-finishes"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rate-limit") {
		if cfg.RateLimit, err = flags.GetFloat64("rate-limit"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("origin") {
		if cfg.Origin, err = flags.GetString("origin"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("index-path") {
		if cfg.IndexPath, err = flags.GetString("index-path"); err != nil {
			return nil, err
		}
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newFetcher builds the one HTTP fetcher shared by every stage.
func newFetcher(cfg *config.Config, logger *slog.Logger) *crawler.Fetcher {
	return crawler.NewFetcher(
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithPoolSize(cfg.Concurrency),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithHeaders(cfg.Headers),
		crawler.WithRetry(cfg.MaxRetries, cfg.RetryInterval),
		crawler.WithRateLimit(cfg.RateLimit),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithFetcherLogger(logger),
	)
}

// runCrawl executes the crawl and writes every requested output.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	indexURL, err := cfg.IndexURL()
	if err != nil {
		return fmt.Errorf("invalid index URL: %w", err)
	}

	parser, err := crawler.NewParser(cfg.Origin)
	if err != nil {
		return fmt.Errorf("invalid origin: %w", err)
	}

	p := pipeline.DefaultPipeline(
		newFetcher(cfg, logger),
		parser,
		[]pipeline.Option{pipeline.WithLogger(logger)},
		pipeline.WithPipelineConcurrency(cfg.Concurrency),
		pipeline.WithPipelineProgressEvery(cfg.ProgressEvery),
		pipeline.WithPipelineMinGames(cfg.MinGames),
		pipeline.WithPipelineMaxDecklists(cfg.MaxDecklists),
		pipeline.WithPipelineMaxFinishes(cfg.MaxFinishes),
	)

	logger.Info("starting crawl",
		"index", indexURL,
		"concurrency", cfg.Concurrency,
		"minGames", cfg.MinGames,
		"maxDecklists", cfg.MaxDecklists,
	)

	crawl := model.NewCrawl(cfg.Origin, indexURL)
	if err := p.Execute(ctx, crawl); err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	snap := crawl.Snapshot

	if err := writeFile(cfg.OutputFile, func(w io.Writer) report.Writer {
		return report.NewJSONWriter(w)
	}, snap); err != nil {
		return err
	}
	logger.Info("wrote decks", "file", cfg.OutputFile, "decks", len(snap.Decks))

	if cfg.MarkdownFile != "" {
		if err := writeFile(cfg.MarkdownFile, func(w io.Writer) report.Writer {
			return report.NewMarkdownWriter(w)
		}, snap); err != nil {
			return err
		}
		logger.Info("wrote markdown report", "file", cfg.MarkdownFile)
	}

	if cfg.SnapshotFile != "" {
		if err := writeFile(cfg.SnapshotFile, func(w io.Writer) report.Writer {
			return report.NewJSONWriter(w, report.WithFullSnapshot())
		}, snap); err != nil {
			return err
		}
		logger.Info("wrote snapshot", "file", cfg.SnapshotFile, "id", snap.ID)
	}

	if cfg.SaveToDB {
		if err := saveSnapshot(ctx, cfg.DBDir, snap); err != nil {
			// The crawl itself succeeded and decks.json is on disk.
			logger.Error("failed to save snapshot", "error", err)
		} else {
			logger.Debug("snapshot saved", "id", snap.ID, "dir", cfg.DBDir)
		}
	}

	_, err = report.NewSimpleWriter(out, report.WithDecklists(cfg.ShowDecklists)).Write(snap)
	return err
}

// writeFile creates path with owner-only permissions, creating parent
// directories as needed, and renders snap into it.
func writeFile(path string, newWriter func(io.Writer) report.Writer, snap *model.Snapshot) (err error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-chosen output path
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if _, err := newWriter(f).Write(snap); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func saveSnapshot(ctx context.Context, dbDir string, snap *model.Snapshot) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer db.Close()

	return db.SaveSnapshot(ctx, snap)
}
