package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samjhill/dream-companion/internal/analysis"
	"github.com/samjhill/dream-companion/internal/collect"
	"github.com/samjhill/dream-companion/internal/config"
	"github.com/samjhill/dream-companion/internal/database"
	"github.com/samjhill/dream-companion/internal/lexicon"
	"github.com/samjhill/dream-companion/internal/logging"
	"github.com/samjhill/dream-companion/internal/pipeline"
	"github.com/samjhill/dream-companion/internal/premium"
	"github.com/samjhill/dream-companion/internal/report"
	"github.com/samjhill/dream-companion/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     = zap.NewNop()
)

const noDreamsMessage = "No dreams found. Start journaling and your analysis will appear here."

func main() {
	err := rootCmd.Execute()
	logging.Sync(logger)
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "dreamctl",
	Short:   "Dream journal analysis",
	Long:    "dreamctl imports dream journals, analyzes archetypes, emotions, time orientation and symbols, and serves the results.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that need none
		switch cmd.Name() {
		case "init", "version", "schema":
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		logger.Debug("config loaded", zap.String("path", path))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(importFeedCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(lexiconCmd)
	rootCmd.AddCommand(subscriptionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dreamctl", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/dream-companion/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure journal feeds and premium enforcement.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and lexicon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		lex, err := lexicon.Resolve(cfg.Lexicon.Path)
		if err != nil {
			return fmt.Errorf("loading lexicon: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Journal:")
		fmt.Printf("  Dreams stored: %d\n", stats.TotalDreams)
		fmt.Printf("  Journals: %d\n", stats.Users)
		fmt.Printf("  Reports generated: %d\n", stats.Reports)
		fmt.Printf("  Premium journals: %d\n", stats.PremiumUsers)
		fmt.Println("\nLexicon:")
		fmt.Printf("  Version: %s\n", lex.Version())
		fmt.Printf("  Feeds configured: %d\n", len(cfg.Journal.Feeds))
		return nil
	},
}

// --- import commands ---

var importUser string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import dreams from a JSON array or JSON-lines file (- for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importUser == "" {
			return fmt.Errorf("--user is required")
		}
		in, closeIn, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer closeIn()

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := collect.ImportJSON(in, db, importUser)
		if err != nil {
			return err
		}
		fmt.Println("Import complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New dreams: %d\n", result.NewDreams)
		if result.Failed > 0 {
			fmt.Printf("  Failed: %d\n", result.Failed)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importUser, "user", "u", "", "Journal owner the dreams belong to")
}

var importFeedCmd = &cobra.Command{
	Use:   "import-feed",
	Short: "Import dreams from the configured journal feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println("Importing journal feeds...")
		collector := collect.NewCollector(cfg, db, collect.WithLogger(logger))
		result := collector.Collect(ctx, importUser)

		fmt.Println("\nImport complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New dreams: %d\n", result.NewDreams)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)
		if result.Failed > 0 {
			fmt.Printf("  Failed: %d\n", result.Failed)
		}

		if len(result.Sources) > 0 {
			fmt.Println("\nDreams by feed:")
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Sources {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool {
				if sorted[i].val != sorted[j].val {
					return sorted[i].val > sorted[j].val
				}
				return sorted[i].key < sorted[j].key
			})
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}
		return nil
	},
}

func init() {
	importFeedCmd.Flags().StringVarP(&importUser, "user", "u", "", "Only import feeds of this journal owner")
}

// --- analyze command ---

var (
	analyzeUser   string
	analyzeFile   string
	analyzeFormat string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a stored journal (--user) or a JSON file (--file)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (analyzeUser == "") == (analyzeFile == "") {
			return fmt.Errorf("exactly one of --user or --file is required")
		}
		if analyzeFormat != "json" && analyzeFormat != "markdown" {
			return fmt.Errorf("invalid format %q: want json or markdown", analyzeFormat)
		}

		engine, err := newEngine()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var rep *analysis.Report
		title := analyzeUser
		if analyzeFile != "" {
			rep, err = analyzeFileRecords(ctx, engine, analyzeFile)
			title = filepath.Base(analyzeFile)
		} else {
			rep, err = analyzeStored(ctx, engine, analyzeUser)
		}
		if errors.Is(err, analysis.ErrNoDreams) {
			fmt.Println(noDreamsMessage)
			return nil
		}
		if err != nil {
			return err
		}

		return writeReport(cmd.OutOrStdout(), rep, title, analyzeFormat)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeUser, "user", "u", "", "Analyze the stored journal of this owner")
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "Analyze dreams from a JSON file (- for stdin)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "markdown", "Output format: json or markdown")
}

func analyzeFileRecords(ctx context.Context, engine *analysis.Engine, path string) (*analysis.Report, error) {
	in, closeIn, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer closeIn()

	records, skipped, err := collect.ReadRecords(in)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Warn("skipped undecodable dreams", zap.String("file", path), zap.Int("skipped", skipped))
	}
	rep, err := engine.Analyze(ctx, records)
	if err != nil {
		return nil, err
	}
	rep.SkippedRecords = skipped
	return rep, nil
}

// analyzeStored analyzes user's stored journal and saves the report.
func analyzeStored(ctx context.Context, engine *analysis.Engine, user string) (*analysis.Report, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rep, err := engine.AnalyzeSource(ctx, database.NewRecordSource(db), user)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	if _, err := db.InsertReport(user, rep.TotalDreams, rep.SkippedRecords, rep.LexiconVersion, data); err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}
	return rep, nil
}

func writeReport(w io.Writer, rep *analysis.Report, title, format string) error {
	if format == "markdown" {
		_, err := io.WriteString(w, report.Markdown(rep, title))
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// --- run command ---

var (
	dryRun  bool
	runUser string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Import every journal feed, then analyze every journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine, err := newEngine()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pipe := pipeline.New(cfg, db, engine, pipeline.WithLogger(logger))
		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun(ctx, runUser)
		} else {
			result = pipe.Run(ctx, runUser)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/2: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if !dryRun && result.Reports > 0 {
			fmt.Println("\nRun complete! Run 'dreamctl serve' to view the reports.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	runCmd.Flags().StringVarP(&runUser, "user", "u", "", "Only refresh this journal")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the journal API and report server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine, err := newEngine()
		if err != nil {
			return err
		}
		checker := premium.NewChecker(db, cfg.Premium.CacheTTL,
			premium.WithEnforce(cfg.Premium.Enforce),
			premium.WithLogger(logger),
		)
		if !cfg.Premium.Enforce {
			logger.Warn("premium enforcement disabled")
		}

		srv, err := server.New(db, engine, checker,
			server.WithLogger(logger),
			server.WithRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://%s\n", cfg.Addr())
		fmt.Println("Press Ctrl+C to stop")
		return srv.Serve(ctx, cfg.Addr())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- schema command ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the analysis report",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(analysis.Schema())
	},
}

func newEngine() (*analysis.Engine, error) {
	lex, err := lexicon.Resolve(cfg.Lexicon.Path)
	if err != nil {
		return nil, fmt.Errorf("loading lexicon: %w", err)
	}
	logger.Debug("lexicon loaded", zap.String("version", lex.Version()))
	return analysis.New(lex,
		analysis.WithWorkers(cfg.Analysis.Workers),
		analysis.WithLogger(logger),
	), nil
}

// openInput opens path for reading, treating "-" as stdin.
func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(cfg.DatabasePath(), database.WithLogger(logger))
}
