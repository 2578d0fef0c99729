package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sahelwatch/reliefdocs/internal/classify"
	"github.com/sahelwatch/reliefdocs/internal/config"
	"github.com/sahelwatch/reliefdocs/internal/database"
	"github.com/sahelwatch/reliefdocs/internal/download"
	"github.com/sahelwatch/reliefdocs/internal/export"
	"github.com/sahelwatch/reliefdocs/internal/pipeline"
	"github.com/sahelwatch/reliefdocs/internal/reliefweb"
	"github.com/sahelwatch/reliefdocs/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "reliefdocs",
	Short:   "Humanitarian document registry",
	Long:    "Reliefdocs fetches ReliefWeb report metadata, filters it by country, downloads attachments, and extracts searchable content.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
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
		applyOverrides()
		return nil
	},
}

var (
	flagCountry  string
	flagPolicy   string
	flagDateFrom string
	flagDateTo   string
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flagCountry, "country", "", "Override filter country")
	rootCmd.PersistentFlags().StringVar(&flagPolicy, "policy", "", "Override filter policy (primary, associated, all)")
	rootCmd.PersistentFlags().StringVar(&flagDateFrom, "date-from", "", "Only reports created on or after this date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&flagDateTo, "date-to", "", "Only reports created on or before this date (YYYY-MM-DD)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(optionsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}

// applyOverrides copies command-line filter flags over the loaded config.
func applyOverrides() {
	if flagCountry != "" {
		cfg.Filter.Country = flagCountry
	}
	if flagPolicy != "" {
		cfg.Filter.Policy = flagPolicy
	}
	if flagDateFrom != "" {
		cfg.Filter.DateFrom = flagDateFrom
	}
	if flagDateTo != "" {
		cfg.Filter.DateTo = flagDateTo
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("reliefdocs", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/reliefdocs/",
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
		fmt.Println("Edit it to set the country filter and embedding provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show registry status",
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

		fmt.Printf("Country filter: %s (%s policy)\n\n", cfg.Filter.Country, cfg.Filter.Policy)
		fmt.Println("Assessments:")
		fmt.Printf("  Total: %d\n", stats.Assessments)
		fmt.Println("\nDownloads:")
		statuses := make([]string, 0, len(stats.Downloads))
		for s := range stats.Downloads {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)
		for _, s := range statuses {
			fmt.Printf("  %s: %d\n", s, stats.Downloads[s])
		}
		fmt.Println("\nContent:")
		fmt.Printf("  Extractions: %d\n", stats.Extractions)
		fmt.Printf("  Chunks: %d\n", stats.Chunks)
		fmt.Printf("  Embedded chunks: %d\n", stats.EmbeddedChunks)
		return nil
	},
}

// --- fetch command ---

var (
	feedOnly     bool
	feedDaysBack int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch report metadata, filter by country, and save assessments",
	RunE: func(cmd *cobra.Command, args []string) error {
		if feedOnly {
			return pollFeed()
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe, err := pipeline.New(cfg, db)
		if err != nil {
			return err
		}

		result := pipe.Ingest(context.Background())
		printSteps(result)
		return firstStepError(result)
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&feedOnly, "feed", false, "Poll the updates RSS feed instead of the reports API")
	fetchCmd.Flags().IntVar(&feedDaysBack, "days-back", 7, "Feed lookback window (days)")
}

// pollFeed lists recent updates-feed entries without touching the
// database. Feed items carry no country taxonomy, so they are matched
// against the configured country by title.
func pollFeed() error {
	if cfg.API.FeedURL == "" {
		return fmt.Errorf("no feed_url configured")
	}

	entries, err := reliefweb.NewFeedPoller(cfg.API.FeedURL).Poll(feedDaysBack)
	if err != nil {
		return fmt.Errorf("polling feed: %w", err)
	}

	classifier := classify.New(nil)
	matched := entries[:0]
	for _, e := range entries {
		if classifier.MatchesTitle(e.Title, cfg.Filter.Country) {
			matched = append(matched, e)
		}
	}

	if len(matched) == 0 {
		fmt.Printf("No recent feed entries mention %s.\n", cfg.Filter.Country)
		return nil
	}
	fmt.Printf("Recent updates mentioning %s (%d of %d entries):\n\n",
		cfg.Filter.Country, len(matched), len(entries))
	for _, e := range matched {
		date := e.PublishedDate
		if date == "" {
			date = "unknown"
		}
		fmt.Printf("  [%s] %s\n      %s\n", date, e.Title, e.URL)
	}
	return nil
}

// --- download command ---

var downloadAssessmentID int64

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download pending report attachments",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var only *int64
		if downloadAssessmentID > 0 {
			only = &downloadAssessmentID
		}

		fetcher := download.NewFetcher(db, cfg.GetDataDir(), 0)
		result := fetcher.FetchPending(only)

		fmt.Println("\nDownload complete:")
		fmt.Printf("  Downloaded: %d\n", result.Downloaded)
		fmt.Printf("  Skipped: %d\n", result.Skipped)
		fmt.Printf("  Failed: %d\n", result.Failed)
		return nil
	},
}

func init() {
	downloadCmd.Flags().Int64Var(&downloadAssessmentID, "assessment", 0, "Only download attachments of one assessment")
}

// --- process command ---

var processCmd = &cobra.Command{
	Use:   "process [download-id]",
	Short: "Extract, chunk, and embed downloaded documents",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe, err := pipeline.New(cfg, db)
		if err != nil {
			return err
		}
		ctx := context.Background()

		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid download ID: %s", args[0])
			}
			if err := pipe.ProcessDownloadByID(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Processed download %d\n", id)
			return nil
		}

		downloads, err := db.GetDownloadsNeedingExtraction()
		if err != nil {
			return err
		}
		if len(downloads) == 0 {
			fmt.Println("Nothing to process.")
			return nil
		}

		processed, failed := 0, 0
		for _, d := range downloads {
			if err := pipe.ProcessDownload(ctx, d); err != nil {
				failed++
				fmt.Printf("  Failed %s: %v\n", d.Filename, err)
				continue
			}
			processed++
		}
		fmt.Printf("\nProcessed %d documents, %d failed.\n", processed, failed)
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: fetch -> filter -> save -> download -> process",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe, err := pipeline.New(cfg, db)
		if err != nil {
			return err
		}

		result := pipe.Run(context.Background())
		printSteps(result)

		if err := firstStepError(result); err != nil {
			return err
		}
		fmt.Println("\nPipeline complete! Run 'reliefdocs search' or 'reliefdocs serve' to explore.")
		return nil
	},
}

// --- search command ---

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed document chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe, err := pipeline.New(cfg, db)
		if err != nil {
			return err
		}

		results, err := pipe.Search(context.Background(), args[0], searchTopK)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}

		for i, r := range results {
			text := r.Text
			if len(text) > 200 {
				text = text[:200] + "..."
			}
			fmt.Printf("%d. [%.3f] document %d, chunk %d\n   %s\n\n", i+1, r.Score, r.DocumentID, r.ChunkID, text)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 5, "Number of results")
}

// --- options command ---

var optionsCmd = &cobra.Command{
	Use:   "options [field]",
	Short: "List known values of a filterable field (format.name, theme.name, language.name)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		field := "format.name"
		if len(args) == 1 {
			field = args[0]
		}

		client := reliefweb.NewClient(cfg.API.BaseURL, cfg.API.AppName, cfg.API.RatePerSecond)
		values, err := client.FilterOptions(context.Background(), field)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%d values):\n", field, len(values))
		for _, v := range values {
			fmt.Printf("  %s\n", v)
		}
		return nil
	},
}

// --- export command ---

var exportCmd = &cobra.Command{
	Use:   "export [output.xlsx]",
	Short: "Export assessments to an XLSX workbook",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		assessments, err := db.ListAssessments(0)
		if err != nil {
			return err
		}

		data, err := export.AssessmentsXLSX(assessments)
		if err != nil {
			return err
		}

		target := "assessments.xlsx"
		if len(args) == 1 {
			target = args[0]
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("writing workbook: %w", err)
		}
		fmt.Printf("Exported %d assessments to %s\n", len(assessments), target)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe, err := pipeline.New(cfg, db)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, pipe, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func printSteps(result *pipeline.Result) {
	total := len(result.Steps)
	for i, step := range result.Steps {
		fmt.Printf("\nStep %d/%d: %s\n", i+1, total, step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		} else {
			fmt.Printf("  %s\n", step.Summary)
		}
	}
}

func firstStepError(result *pipeline.Result) error {
	for _, step := range result.Steps {
		if step.Err != nil {
			return step.Err
		}
	}
	return nil
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "reliefdocs.db")
	return database.Open(dbPath)
}
