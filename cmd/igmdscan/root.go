package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/igmdscan/pkg/classify"
	"github.com/walteh/igmdscan/pkg/config"
	"github.com/walteh/igmdscan/pkg/extract"
	"github.com/walteh/igmdscan/pkg/log"
	"github.com/walteh/igmdscan/pkg/misslog"
	"github.com/walteh/igmdscan/pkg/scan"
	"github.com/walteh/igmdscan/pkg/status"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	configFile       string
	scanDir          string
	destDir          string
	missLogPath      string
	topConcurrency   int
	entryConcurrency int
	debug            bool
)

// NewRootCmd creates the igmdscan root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "igmdscan --scan_dir <dir> --dest_dir <dir> [--log_non-igmd <file>]",
		Short: "Extract images carrying generation metadata from a directory tree",
		Long: `igmdscan scans a directory tree of loose images and comic archives
(cbz/cbr), finds images that carry embedded generation metadata (prompt,
seed, model, ...), and copies only the matching images into a mirrored
destination tree. Non-matching files can optionally have their raw
metadata appended to a log file via exiftool.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runScan,
	}

	cmd.Flags().StringVar(&scanDir, "scan_dir", "", "directory to scan for images and archives")
	cmd.Flags().StringVar(&destDir, "dest_dir", "", "directory to save matching images into (created if absent)")
	cmd.Flags().StringVar(&missLogPath, "log_non-igmd", "", "log file for metadata of non-matching files (optional)")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path (.yaml, .hcl or .json)")
	cmd.Flags().IntVar(&topConcurrency, "concurrency", 0, "max files/archives processed at once")
	cmd.Flags().IntVar(&entryConcurrency, "entry-concurrency", 0, "max entry tasks per archive")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	return cmd
}

// setupLogging configures zerolog based on flags
func setupLogging(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).Level(level).With().Timestamp().Logger()
}

// runScan validates the CLI surface, wires the collaborators, and runs
// the whole scan. Only startup-phase errors reach the caller; processing
// errors degrade to per-file outcomes inside the run.
func runScan(cmd *cobra.Command, args []string) error {
	logger := setupLogging(debug)
	ctx := logger.WithContext(cmd.Context())

	// Load config file when given, flags override
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(ctx, configFile)
		if err != nil {
			logger.Error().Err(err).Msg("loading config file")
			return err
		}
		cfg = loaded
	}
	if scanDir != "" {
		cfg.ScanDir = scanDir
	}
	if destDir != "" {
		cfg.DestDir = destDir
	}
	if missLogPath != "" {
		cfg.MissLogPath = missLogPath
	}
	if topConcurrency > 0 {
		cfg.Concurrency.TopLevel = topConcurrency
	}
	if entryConcurrency > 0 {
		cfg.Concurrency.PerArchive = entryConcurrency
	}

	if cfg.ScanDir == "" || cfg.DestDir == "" {
		cmd.Usage()
		return errors.New("--scan_dir and --dest_dir are required")
	}

	if err := validateDirectories(cfg.ScanDir, cfg.DestDir, cfg.MissLogPath); err != nil {
		logger.Error().Err(err).Msg("invalid directory configuration")
		return err
	}
	if err := checkDependencies(cfg); err != nil {
		logger.Error().Err(err).Msg("missing dependency")
		return err
	}

	console := log.New(os.Stdout, logger.GetLevel())
	console.Header("scanning " + cfg.ScanDir)

	statusMgr := status.NewManager(cfg.DestDir)

	var missLogger *misslog.Logger
	if cfg.MissLogPath != "" {
		var err error
		missLogger, err = misslog.New(cfg.MissLogPath, misslog.Options{
			Tool: cfg.ExifTool.Path,
			Args: cfg.ExifTool.Args,
			Runner: &misslog.ExecRunner{
				Timeout: time.Duration(cfg.ExifTool.TimeoutSeconds) * time.Second,
			},
		})
		if err != nil {
			logger.Error().Err(err).Msg("opening miss log")
			return err
		}
		defer missLogger.Close()
	}

	processor, err := extract.New(extract.Options{
		Classifier: classify.New(),
		Status:     statusMgr,
		Console:    console,
		MissLog:    missLogger,
		Walk: scan.Options{
			ImageExtensions:   cfg.ImageExtensions,
			ArchiveExtensions: cfg.ArchiveExtensions,
			ExcludeGlobs:      cfg.ExcludeGlobs,
		},
		TopWorkers:   cfg.Concurrency.TopLevel,
		EntryWorkers: cfg.Concurrency.PerArchive,
	})
	if err != nil {
		return errors.Errorf("creating processor: %w", err)
	}

	summary, err := processor.Run(ctx, cfg.ScanDir)
	if err != nil {
		console.Errorf("scan interrupted: %v", err)
		return err
	}

	console.Infof("matched %d, no metadata %d, skipped %d, failed %d (archives with matches: %d)",
		summary.Matched, summary.NoMetadata, summary.Skipped, summary.Failed, summary.ArchivesHit)
	console.Success("scan complete")
	return nil
}
