package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yumyai/swarmtable/internal/util"
	"github.com/yumyai/swarmtable/logger"
	mydb "github.com/yumyai/swarmtable/pkg/db"
	"github.com/yumyai/swarmtable/pkg/handler"
	"github.com/yumyai/swarmtable/pkg/middle"
	"github.com/yumyai/swarmtable/pkg/pipeline"
)

const VERSION = "0.1.0"

func main() {

	if err := logger.InitLogger(zapcore.InfoLevel); err != nil {
		panic(err)
	}
	defer logger.Sync() // Make sure that the buffered is flushed.

	// Try load env
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env found, using local environment")
	}

	cfg, err := configFromEnv(os.Getenv)
	if err != nil {
		logger.Error("Invalid environment", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&cfg).ExecuteContext(ctx); err != nil {
		logger.Error("swarmtable failed", zap.Error(err))
		logger.Sync()
		stop()
		os.Exit(1)
	}
}

func newRootCmd(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "swarmtable",
		Short: "Build an OTU table from SWARM clustering output",
		Long: `swarmtable turns the output of a SWARM clustering run into an OTU table.

It reads origins.tsv (per sample read counts of each unique sequence),
SWARM.swarms (one cluster per line) and SWARM_OTUs.fasta (cluster seeds),
then writes SWARM_table.tsv and SWARM_OTUs_f.fasta holding only the OTUs
that pass the minimum abundance.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logger.ParseLevel(cfg.LogLevel)
			if err != nil {
				return pkgerrors.Wrap(err, "--log-level")
			}
			if err := logger.InitLogger(level); err != nil {
				return err
			}
			logger.With(zap.String("run_id", uuid.New().String()))
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error ($"+envLogLevel+")")

	root.AddCommand(runCommand(cfg))
	root.AddCommand(serveCommand(cfg))
	root.AddCommand(versionCommand())
	return root
}

func runCommand(cfg *Config) *cobra.Command {
	p := &cfg.Pipeline
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the OTU table and the filtered representative sequences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if p.MinAbundance < 1 {
				return fmt.Errorf("--min-abundance must be at least 1, got %d", p.MinAbundance)
			}
			return runPipeline(cmd.Context(), *p)
		},
	}

	cmd.Flags().StringVarP(&p.Dir, "dir", "d", p.Dir, "Directory holding inputs and outputs ($"+envDir+")")
	cmd.Flags().StringVar(&p.Origins, "origins", p.Origins, "Per sample counts of each unique sequence")
	cmd.Flags().StringVar(&p.Swarms, "swarms", p.Swarms, "SWARM clusters, one per line")
	cmd.Flags().StringVar(&p.Fasta, "fasta", p.Fasta, "Cluster representative sequences")
	cmd.Flags().StringVarP(&p.Table, "table", "o", p.Table, "Output OTU table")
	cmd.Flags().StringVar(&p.FilteredFasta, "filtered-fasta", p.FilteredFasta, "Output representative sequences of retained OTUs")
	cmd.Flags().Int64VarP(&p.MinAbundance, "min-abundance", "m", p.MinAbundance, "Minimum cluster size or seed abundance ($"+envMinAbundance+")")
	cmd.Flags().StringVarP(&p.Prefix, "prefix", "p", p.Prefix, "OTU name prefix ($"+envPrefix+")")
	cmd.Flags().BoolVar(&p.KeepIndex, "keep-index", p.KeepIndex, "Keep origin entries after use instead of consuming them")
	cmd.Flags().BoolVar(&p.Progress, "progress", p.Progress, "Show a progress bar while reading origins")
	cmd.Flags().StringVar(&p.DBPath, "db", p.DBPath, "Also write results to this SQLite database ($"+envDB+")")
	return cmd
}

func runPipeline(ctx context.Context, cfg pipeline.Config) error {
	logger.Info("Start:", zap.String("Version", VERSION), zap.String("dir", cfg.Dir))

	summary, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}

	logger.Info("Done",
		zap.Int("samples", summary.Samples),
		zap.Int("sequences", summary.Sequences),
		zap.Int("clusters", summary.Aggregate.Clusters),
		zap.Int("retained", summary.Aggregate.Retained),
		zap.Int("dropped", summary.Aggregate.Dropped),
		zap.Int64("reads", summary.Aggregate.Reads),
		zap.Int("missing_members", summary.Aggregate.MissingMembers),
		zap.Int("fasta_kept", summary.Filter.Kept),
		zap.Int("fasta_skipped", summary.Filter.Skipped),
		zap.Duration("duration", summary.Duration))
	return nil
}

func serveCommand(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Browse an OTU database written by run --db",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg.Pipeline.DBPath, cfg.Addr)
		},
	}
	cmd.Flags().StringVar(&cfg.Pipeline.DBPath, "db", cfg.Pipeline.DBPath, "SQLite database to serve ($"+envDB+")")
	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address ($"+envAddr+")")
	return cmd
}

func serve(ctx context.Context, dbPath, addr string) error {
	if dbPath == "" {
		return errors.New("--db is required")
	}
	// Opening a missing file would create an empty database.
	if !util.FileExists(dbPath) {
		return fmt.Errorf("%w: %s", os.ErrNotExist, dbPath)
	}

	store, err := mydb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	dbctx := &handler.DBContext{Store: store}
	log := logger.Logger()
	mux := middle.Chain(handler.NewRouter(dbctx),
		middle.RequestIDMiddleware(log),
		middle.LoggingMiddleware(log))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Start:", zap.String("Version", VERSION))
	logger.Info("Open database on", zap.String("DB_LOC", dbPath))
	logger.Info("Server starting", zap.String("addr", addr))

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "swarmtable version %s\n", VERSION)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
