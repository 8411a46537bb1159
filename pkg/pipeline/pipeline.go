// Package pipeline runs the three stages over files: origin index, cluster
// aggregation and representative sequence filtering.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/yumyai/swarmtable/internal/util"
	"github.com/yumyai/swarmtable/logger"
	"github.com/yumyai/swarmtable/pkg/db"
	"github.com/yumyai/swarmtable/pkg/model"
	"github.com/yumyai/swarmtable/pkg/render"
)

const (
	DefaultOrigins       = "origins.tsv"
	DefaultSwarms        = "SWARM.swarms"
	DefaultFasta         = "SWARM_OTUs.fasta"
	DefaultTable         = "SWARM_table.tsv"
	DefaultFilteredFasta = "SWARM_OTUs_f.fasta"
)

type Config struct {
	Dir string // relative file names are resolved against Dir

	Origins       string
	Swarms        string
	Fasta         string
	Table         string
	FilteredFasta string

	MinAbundance int64
	Prefix       string
	KeepIndex    bool   // disable consume-on-read
	Progress     bool   // show a progress bar while reading origins
	DBPath       string // optional SQLite copy of the results
}

func DefaultConfig() Config {
	return Config{
		Dir:           ".",
		Origins:       DefaultOrigins,
		Swarms:        DefaultSwarms,
		Fasta:         DefaultFasta,
		Table:         DefaultTable,
		FilteredFasta: DefaultFilteredFasta,
		MinAbundance:  model.DefaultMinAbundance,
		Prefix:        model.DefaultPrefix,
	}
}

type Summary struct {
	Samples   int                  `json:"samples"`
	Sequences int                  `json:"sequences"`
	Aggregate model.AggregateStats `json:"aggregate"`
	Filter    model.FilterStats    `json:"filter"`
	Duration  time.Duration        `json:"duration"`
}

func (c Config) path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// checkInputs fails before any output is created when an input is missing.
func (c Config) checkInputs() error {
	if !util.DirExists(c.Dir) {
		return fmt.Errorf("%w: directory %s", os.ErrNotExist, c.Dir)
	}
	for _, name := range []string{c.Origins, c.Swarms, c.Fasta} {
		p := c.path(name)
		if util.DirExists(p) {
			return fmt.Errorf("%s is a directory", p)
		}
		if !util.FileExists(p) {
			return fmt.Errorf("%w: %s", os.ErrNotExist, p)
		}
	}
	return nil
}

// Run executes the whole conversion. Outputs written before a failure are
// left in place.
func Run(ctx context.Context, cfg Config) (*Summary, error) {
	start := time.Now()

	if err := cfg.checkInputs(); err != nil {
		return nil, err
	}

	var store *db.OTUDB
	if cfg.DBPath != "" {
		var err error
		if store, err = db.Open(cfg.DBPath); err != nil {
			return nil, err
		}
		defer store.Close()

		if err := store.Begin(ctx); err != nil {
			return nil, pkgerrors.Wrap(err, cfg.DBPath)
		}
	}

	index, err := buildIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Samples:   len(index.Samples()),
		Sequences: index.Len(),
	}

	logger.Info("Aggregating clusters and writing table",
		zap.String("swarms", cfg.path(cfg.Swarms)),
		zap.String("table", cfg.path(cfg.Table)),
		zap.Strings("samples", index.Samples()))

	registry, aggStats, err := aggregate(ctx, cfg, index, store)
	if err != nil {
		return nil, err
	}
	summary.Aggregate = aggStats

	logger.Info("Writing representative sequences",
		zap.String("fasta", cfg.path(cfg.FilteredFasta)))

	filterStats, err := filter(ctx, cfg, registry, store)
	if err != nil {
		return nil, err
	}
	summary.Filter = filterStats

	if store != nil {
		if err := store.Commit(); err != nil {
			return nil, pkgerrors.Wrap(err, cfg.DBPath)
		}
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

func buildIndex(ctx context.Context, cfg Config) (*model.OriginIndex, error) {
	var (
		bar   *pb.ProgressBar
		proxy func(io.Reader, int64) io.Reader
	)
	if cfg.Progress {
		proxy = func(r io.Reader, size int64) io.Reader {
			bar = pb.Full.Start64(size)
			bar.Set(pb.Bytes, true)
			return bar.NewProxyReader(r)
		}
	}

	path := cfg.path(cfg.Origins)
	logger.Info("Reading origins into memory", zap.String("origins", path))

	in, err := util.OpenInput(path, proxy)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	index, err := model.BuildOriginIndex(ctx, in, path)
	if bar != nil {
		bar.Finish()
	}
	return index, err
}

func aggregate(ctx context.Context, cfg Config, index *model.OriginIndex, store *db.OTUDB) (model.Registry, model.AggregateStats, error) {
	var stats model.AggregateStats

	in, err := util.OpenInput(cfg.path(cfg.Swarms), nil)
	if err != nil {
		return nil, stats, err
	}
	defer in.Close()

	outPath := cfg.path(cfg.Table)
	out, err := os.Create(outPath)
	if err != nil {
		return nil, stats, pkgerrors.Wrap(err, outPath)
	}
	defer out.Close()

	table := render.NewTSVTable(out)
	var sink model.TableSink = table
	if store != nil {
		sink = model.TeeTable(table, store)
	}

	var lookup model.SampleIndex = index.Consuming()
	if cfg.KeepIndex {
		lookup = index
	}

	registry, stats, err := model.AggregateClusters(ctx, in, lookup, sink, model.AggregateOptions{
		MinAbundance: cfg.MinAbundance,
		Prefix:       cfg.Prefix,
		Source:       in.Path,
	})
	if ferr := table.Flush(); err == nil && ferr != nil {
		err = pkgerrors.Wrap(ferr, outPath)
	}
	if err != nil {
		return nil, stats, err
	}

	if err := out.Close(); err != nil {
		return nil, stats, pkgerrors.Wrap(err, outPath)
	}

	logger.Info("Table written",
		zap.Int("clusters", stats.Clusters),
		zap.Int("retained", stats.Retained),
		zap.Int("dropped", stats.Dropped),
		zap.Int64("reads", stats.Reads),
		zap.Int("missing_members", stats.MissingMembers),
		zap.Int("unassigned_sequences", index.Len()))

	if stats.MissingMembers > 0 {
		logger.Warn("Cluster members missing from the origin table contributed no reads",
			zap.Int("missing_members", stats.MissingMembers),
			zap.String("origins", cfg.path(cfg.Origins)))
	}

	return registry, stats, nil
}

func filter(ctx context.Context, cfg Config, registry model.Registry, store *db.OTUDB) (model.FilterStats, error) {
	var stats model.FilterStats

	in, err := util.OpenInput(cfg.path(cfg.Fasta), nil)
	if err != nil {
		return stats, err
	}
	defer in.Close()

	outPath := cfg.path(cfg.FilteredFasta)
	out, err := os.Create(outPath)
	if err != nil {
		return stats, pkgerrors.Wrap(err, outPath)
	}
	defer out.Close()

	fasta := render.NewFASTAWriter(out)
	var sink model.SequenceSink = fasta
	if store != nil {
		sink = model.TeeSequence(fasta, store)
	}

	stats, err = model.FilterRepresentatives(ctx, in, registry, sink, in.Path)
	if ferr := fasta.Flush(); err == nil && ferr != nil {
		err = pkgerrors.Wrap(ferr, outPath)
	}
	if err != nil {
		return stats, err
	}

	if err := out.Close(); err != nil {
		return stats, pkgerrors.Wrap(err, outPath)
	}
	return stats, nil
}
