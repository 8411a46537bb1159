package render

import (
	"io"
	"strconv"

	"github.com/yumyai/swarmtable/pkg/model"
)

// WriteOTUFasta writes the stored representative sequence of otu in the same
// header format as the filtered FASTA file.
func WriteOTUFasta(w io.Writer, otu *model.OTU) error {
	size := otu.Seed.SizeText
	if size == "" {
		size = strconv.FormatInt(otu.Seed.Size, 10)
	}

	fw := NewFASTAWriter(w)
	if err := fw.BeginRecord(otu.Name, size); err != nil {
		return err
	}
	if err := fw.WriteLine(otu.Sequence); err != nil {
		return err
	}
	if err := fw.EndRecord(); err != nil {
		return err
	}
	return fw.Flush()
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
