// Filtering and renaming of representative sequences

package model

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/yumyai/swarmtable/logger"
	"go.uber.org/zap"
)

type FilterStats struct {
	Records int `json:"records"`
	Kept    int `json:"kept"`
	Skipped int `json:"skipped"`
}

// headerID returns the text between '>' and the first ';' of an id line.
func headerID(line string) string {
	id, _, _ := strings.Cut(strings.TrimRight(line[1:], "\r\n"), ";")
	return id
}

// FilterRepresentatives copies the records whose id is in registry to sink,
// renaming each header to ">{name};size={seed size};" with the size digits
// copied unchanged. Sequence lines of kept
// records are passed through unchanged. Other records are dropped.
func FilterRepresentatives(ctx context.Context, r io.Reader, registry Registry, sink SequenceSink, source string) (FilterStats, error) {
	var stats FilterStats

	br := bufio.NewReaderSize(r, 1<<16)

	var (
		seenHeader bool
		included   bool
		lineNo     int
	)

	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return stats, err
		}
		if line == "" {
			break
		}
		lineNo++
		if lineNo%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		if line[0] == '>' {
			if included {
				if err := sink.EndRecord(); err != nil {
					return stats, err
				}
			}
			seenHeader = true
			stats.Records++

			name, ok := registry[headerID(line)]
			if !ok {
				included = false
				stats.Skipped++
				continue
			}

			header, perr := ParseSized(strings.TrimRight(line[1:], "\r\n"))
			if perr != nil {
				return stats, at(perr, source, lineNo)
			}

			included = true
			stats.Kept++
			if err := sink.BeginRecord(name, header.SizeText); err != nil {
				return stats, err
			}
			continue
		}

		if !seenHeader {
			return stats, &MalformedError{
				File:   source,
				Line:   lineNo,
				Token:  strings.TrimRight(line, "\r\n"),
				Reason: "sequence data before the first header",
			}
		}
		if included {
			if err := sink.WriteLine(line); err != nil {
				return stats, err
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
	}

	if included {
		if err := sink.EndRecord(); err != nil {
			return stats, err
		}
	}

	logger.Info("Representative sequences filtered",
		zap.String("source", source),
		zap.Int("records", stats.Records),
		zap.Int("kept", stats.Kept),
		zap.Int("skipped", stats.Skipped))

	return stats, nil
}
