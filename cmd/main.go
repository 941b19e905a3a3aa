package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pathovar/internal/cache"
	"pathovar/internal/config"
	"pathovar/internal/fasta"
	"pathovar/internal/generator"
	"pathovar/internal/logging"
	"pathovar/internal/output"
	"pathovar/internal/proteins"
	"pathovar/internal/variant"
)

// version is the program version. It can be overridden at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

var (
	v          = viper.New()
	configPath string
	verbose    bool
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:   "pathovar",
	Short: "Generate mutated protein sequences for annotated variants",
	Long: `Generate mutated protein sequences for annotated variants.

pathovar reads a protein FASTA file, fetches each protein's variation
features from the EBI Proteins API and writes one FASTA record per variant
that passes the selected policy:

  pathogenic  pathogenic and likely pathogenic variants only (default)
  evidence    variants with a description, clinical significance or disease
  all         every reported variant`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runGenerate,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configPath, "config", "", "path to a config file (default ./config.json when present)")
	f.BoolVar(&verbose, "verbose", false, "enable verbose (debug) logging")

	rootCmd.Flags().StringP("in", "i", "", "input FASTA file path (plain or .gz, - for stdin)")
	rootCmd.Flags().StringP("out", "o", "", "output FASTA file path (.gz compresses)")
	rootCmd.Flags().StringP("policy", "p", "", "variant policy: pathogenic, evidence or all")
	rootCmd.Flags().Int("concurrency", 0, "parallel variant lookups")
	rootCmd.Flags().Int("qps", 0, "maximum lookups started per second")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse input and report without calling the API or writing output")

	// flags override config and environment
	_ = v.BindPFlag("input_fasta", rootCmd.Flags().Lookup("in"))
	_ = v.BindPFlag("output_fasta", rootCmd.Flags().Lookup("out"))
	_ = v.BindPFlag("policy", rootCmd.Flags().Lookup("policy"))
	_ = v.BindPFlag("concurrency", rootCmd.Flags().Lookup("concurrency"))
	_ = v.BindPFlag("qps", rootCmd.Flags().Lookup("qps"))

	rootCmd.AddCommand(policiesCmd, cacheCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}

// setup loads config and builds the logger shared by every command.
func setup() (*config.Config, *log.Logger, func() error, error) {
	cfg, err := config.LoadConfig(v, configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, closeLog := logging.New(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel, Verbose: verbose})
	logger.Debug("loaded config", "input_fasta", cfg.InputFasta, "output_fasta", cfg.OutputFasta, "policy", cfg.Policy,
		"log_file", cfg.LogFile, "log_level", cfg.LogLevel, "cache_store", cfg.CacheStore, "cache_path", cfg.CachePath,
		"concurrency", cfg.Concurrency, "qps", cfg.QPS)
	return cfg, logger, closeLog, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	policy, err := variant.ParsePolicy(cfg.Policy)
	if err != nil {
		return err
	}
	if cfg.InputFasta == "" {
		return fmt.Errorf("no input FASTA given (use --in or input_fasta in config)")
	}
	outPath := cfg.OutputFasta
	if outPath == "" {
		outPath = output.DefaultFileName
	}
	logger.Info("starting pathovar", "version", version, "input_fasta", cfg.InputFasta, "output_fasta", outPath, "policy", policy.String())

	logger.Info("Step 1/4: reading FASTA file", "path", cfg.InputFasta)
	records, err := fasta.ParseFile(cfg.InputFasta)
	if err != nil {
		return fmt.Errorf("read input fasta %s: %w", cfg.InputFasta, err)
	}
	logger.Info("parsed fasta", "records", records.Len(), "duplicates", len(records.Duplicates), "dropped", len(records.Dropped))
	if records.Len() == 0 {
		return fmt.Errorf("no valid protein identifiers found in %s", cfg.InputFasta)
	}

	if dryRun {
		for _, r := range records.Ordered() {
			logger.Info("dry-run: would look up", "id", r.ID, "residues", len(r.Sequence))
		}
		logger.Info("dry-run: skipping variant lookups and output", "output_fasta", outPath)
		return nil
	}

	store, err := cache.Open(cfg.CacheStore, cfg.CachePath, cfg.CacheTTL())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &generator.Runner{
		Lookup:      proteins.New(cfg.ProteinsAPIBase, store),
		Policy:      policy,
		Logger:      logger,
		Concurrency: cfg.Concurrency,
		QPS:         cfg.QPS,
		Timeout:     cfg.RequestTimeout(),
	}
	start := time.Now()
	res, runErr := runner.Run(ctx, records)
	if runErr != nil {
		logger.Warn("run interrupted; writing partial output", "err", runErr)
	}

	if err := output.WriteFile(outPath, res.Text); err != nil {
		return fmt.Errorf("write output %s: %w", outPath, err)
	}
	s := res.Summary
	logger.Info("process completed", "output_fasta", outPath, "proteins", s.Proteins, "failed_lookups", s.Failed,
		"features", s.Features, "accepted", s.Accepted, "applied", s.Applied, "skipped", s.Skipped,
		"mismatches", s.Mismatches, "duration_ms", time.Since(start).Milliseconds())
	if len(res.Entries) == 0 {
		logger.Info(output.NoResultsMessage(policy))
	}
	return runErr
}

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the variant policies",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range variant.Policies {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", p, p.Description())
		}
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the variant lookup cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop expired cache entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closeLog, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = closeLog() }()
		store, err := cache.Open(cfg.CacheStore, cfg.CachePath, cfg.CacheTTL())
		if err != nil {
			return err
		}
		defer store.Close()
		n, err := store.Purge()
		if err != nil {
			return fmt.Errorf("purge cache: %w", err)
		}
		logger.Info("purged cache", "store", cfg.CacheStore, "removed", n)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pathovar:", err)
		os.Exit(1)
	}
}
