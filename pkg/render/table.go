// Abundance table output

package render

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/yumyai/swarmtable/pkg/model"
)

// TSVTable writes the abundance table as tab-separated text, one row per
// call. Output is buffered per write, never per table.
type TSVTable struct {
	w        *bufio.Writer
	nSamples int
	buf      []byte
}

func NewTSVTable(w io.Writer) *TSVTable {
	return &TSVTable{w: bufio.NewWriterSize(w, 1<<16)}
}

func (t *TSVTable) WriteHeader(prefix string, samples []string) error {
	t.nSamples = len(samples)

	t.buf = append(t.buf[:0], prefix...)
	t.buf = append(t.buf, '\t')
	for i, s := range samples {
		if i > 0 {
			t.buf = append(t.buf, '\t')
		}
		t.buf = append(t.buf, s...)
	}
	t.buf = append(t.buf, '\n')

	_, err := t.w.Write(t.buf)
	return err
}

func (t *TSVTable) WriteRow(row model.Row) error {
	if len(row.Counts) != t.nSamples {
		return fmt.Errorf("row %s has %d columns, header has %d", row.Name, len(row.Counts), t.nSamples)
	}

	t.buf = append(t.buf[:0], row.Name...)
	t.buf = append(t.buf, '\t')
	for i, c := range row.Counts {
		if i > 0 {
			t.buf = append(t.buf, '\t')
		}
		t.buf = strconv.AppendInt(t.buf, c, 10)
	}
	t.buf = append(t.buf, '\n')

	_, err := t.w.Write(t.buf)
	return err
}

// Flush must be called once the last row has been written.
func (t *TSVTable) Flush() error {
	return t.w.Flush()
}
