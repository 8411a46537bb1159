package model

import (
	"bufio"
	"context"
	"io"
	"strings"
	"unicode"

	"github.com/yumyai/swarmtable/logger"
	"go.uber.org/zap"
)

const (
	maxLineSize   = 256 * 1024 * 1024 // origin lines grow with the number of samples
	ctxCheckEvery = 4096
)

// OriginIndex holds, for every unique sequence, the reads it contributed to
// each sample. Samples are numbered in order of first appearance.
type OriginIndex struct {
	samples   []string
	sampleIdx map[string]int
	byID      map[string][]Occurrence
}

func NewOriginIndex() *OriginIndex {
	return &OriginIndex{
		sampleIdx: make(map[string]int),
		byID:      make(map[string][]Occurrence),
	}
}

// Add records reads of id in sample. A repeated (id, sample) pair overwrites.
func (ix *OriginIndex) Add(id, sample string, reads int64) {
	s, ok := ix.sampleIdx[sample]
	if !ok {
		s = len(ix.samples)
		ix.samples = append(ix.samples, sample)
		ix.sampleIdx[sample] = s
	}

	occ := ix.byID[id]
	for i := range occ {
		if occ[i].Sample == s {
			occ[i].Reads = reads
			return
		}
	}
	ix.byID[id] = append(occ, Occurrence{Sample: s, Reads: reads})
}

// Samples returns the sample names in column order.
func (ix *OriginIndex) Samples() []string {
	return append([]string(nil), ix.samples...)
}

// Len is the number of unique sequences still held by the index.
func (ix *OriginIndex) Len() int {
	return len(ix.byID)
}

// reads returns the reads of id in sample, if any.
func (ix *OriginIndex) reads(sample, id string) (int64, bool) {
	s, ok := ix.sampleIdx[sample]
	if !ok {
		return 0, false
	}
	for _, o := range ix.byID[id] {
		if o.Sample == s {
			return o.Reads, true
		}
	}
	return 0, false
}

// Lookup returns the occurrences of id without modifying the index.
func (ix *OriginIndex) Lookup(id string) []Occurrence {
	return ix.byID[id]
}

// Take returns the occurrences of id and drops them from the index.
func (ix *OriginIndex) Take(id string) []Occurrence {
	occ, ok := ix.byID[id]
	if ok {
		delete(ix.byID, id)
	}
	return occ
}

// Consuming returns a view of the index whose lookups remove the entries they
// return, so the index shrinks as clusters are aggregated.
func (ix *OriginIndex) Consuming() SampleIndex {
	return consumingIndex{ix}
}

type consumingIndex struct {
	ix *OriginIndex
}

func (c consumingIndex) Samples() []string             { return c.ix.Samples() }
func (c consumingIndex) Lookup(id string) []Occurrence { return c.ix.Take(id) }

// BuildOriginIndex reads an origin table:
//
//	ISU_0;size=7118<TAB>S-Fer1;size=579<TAB>S-Fer2;size=636
//
// source names the input in error messages.
func BuildOriginIndex(ctx context.Context, r io.Reader, source string) (*OriginIndex, error) {
	ix := NewOriginIndex()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimRightFunc(sc.Text(), unicode.IsSpace)
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		isu, err := ParseSized(fields[0])
		if err != nil {
			return nil, at(err, source, lineNo)
		}

		for _, field := range fields[1:] {
			occ, err := ParseSized(field)
			if err != nil {
				return nil, at(err, source, lineNo)
			}
			ix.Add(isu.ID, occ.ID, occ.Size)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	logger.Info("Origin index built",
		zap.String("source", source),
		zap.Int("lines", lineNo),
		zap.Int("sequences", ix.Len()),
		zap.Int("samples", len(ix.samples)))
	logger.Debug("Samples", zap.Strings("samples", ix.samples))

	return ix, nil
}
