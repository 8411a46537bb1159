package model

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/yumyai/swarmtable/logger"
	"go.uber.org/zap"
)

const (
	DefaultMinAbundance = 2
	DefaultPrefix       = "SWARM"
)

type AggregateOptions struct {
	MinAbundance int64  // clusters below this in both member count and seed size are dropped
	Prefix       string // cluster name prefix and first header column
	Source       string // input name used in errors
}

type AggregateStats struct {
	Clusters       int   `json:"clusters"`
	Retained       int   `json:"retained"`
	Dropped        int   `json:"dropped"`
	Reads          int64 `json:"reads"`
	MissingMembers int   `json:"missing_members"`
}

// ParseCluster parses one whitespace-separated clustering line.
func ParseCluster(line string, lineNo int) (*Cluster, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil, &MalformedError{Token: line, Reason: "empty cluster"}
	}

	c := &Cluster{Line: lineNo, Members: make([]SizedID, 0, len(tokens))}
	for _, tok := range tokens {
		m, err := ParseSized(tok)
		if err != nil {
			return nil, err
		}
		c.Members = append(c.Members, m)
	}
	return c, nil
}

// AggregateClusters reads the clustering file and writes one table row per
// retained cluster to sink as soon as it is summed. The returned registry maps
// each retained seed to its cluster name.
func AggregateClusters(ctx context.Context, r io.Reader, index SampleIndex, sink TableSink, opts AggregateOptions) (Registry, AggregateStats, error) {
	var stats AggregateStats

	if opts.MinAbundance <= 0 {
		opts.MinAbundance = DefaultMinAbundance
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}

	samples := index.Samples()
	if err := sink.WriteHeader(opts.Prefix, samples); err != nil {
		return nil, stats, err
	}

	registry := make(Registry)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		cluster, err := ParseCluster(sc.Text(), lineNo)
		if err != nil {
			return nil, stats, at(err, opts.Source, lineNo)
		}
		stats.Clusters++

		if !cluster.Retained(opts.MinAbundance) {
			stats.Dropped++
			continue
		}

		seed := cluster.Seed()
		row := Row{
			Name:   ClusterName(opts.Prefix, lineNo),
			Line:   lineNo,
			Seed:   seed,
			Counts: make([]int64, len(samples)),
		}
		registry[seed.ID] = row.Name

		for _, m := range cluster.Members {
			occ := index.Lookup(m.ID)
			if len(occ) == 0 {
				stats.MissingMembers++
				continue
			}
			for _, o := range occ {
				row.Counts[o.Sample] += o.Reads
			}
		}

		if err := sink.WriteRow(row); err != nil {
			return nil, stats, err
		}

		total := row.Total()
		stats.Retained++
		stats.Reads += total
		logger.Debug("Cluster retained",
			zap.String("seed", seed.ID),
			zap.String("name", row.Name),
			zap.Int64("reads", total))
	}
	if err := sc.Err(); err != nil {
		return nil, stats, err
	}

	return registry, stats, nil
}
