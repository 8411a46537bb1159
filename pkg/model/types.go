package model

// SizedID is a record identifier carrying a size annotation: "ISU_0;size=7118".
type SizedID struct {
	ID       string `json:"id"`
	Size     int64  `json:"size"`
	SizeText string `json:"-"` // digits after "size=" as written in the input
}

// Occurrence is the number of reads of one unique sequence in one sample.
// Sample indexes into the sample order of the index that produced it.
type Occurrence struct {
	Sample int   `json:"sample"`
	Reads  int64 `json:"reads"`
}

// Cluster is one line of the clustering file. Members[0] is the seed.
type Cluster struct {
	Line    int       `json:"line"`
	Members []SizedID `json:"members"`
}

func (c *Cluster) Seed() SizedID {
	return c.Members[0]
}

// Retained reports whether the cluster passes the singleton filter.
func (c *Cluster) Retained(minAbundance int64) bool {
	return int64(len(c.Members)) >= minAbundance || c.Seed().Size >= minAbundance
}

// Row is one line of the abundance table. Counts follows the sample order
// given to TableSink.WriteHeader.
type Row struct {
	Name   string  `json:"name"`
	Line   int     `json:"line"`
	Seed   SizedID `json:"seed"`
	Counts []int64 `json:"counts"`
}

func (r Row) Total() int64 {
	var total int64
	for _, c := range r.Counts {
		total += c
	}
	return total
}

// Registry maps the seed id of every retained cluster to its cluster name.
type Registry map[string]string

// SampleIndex resolves a unique sequence id to its per-sample read counts.
type SampleIndex interface {
	Samples() []string
	Lookup(id string) []Occurrence
}

// TableSink receives the abundance table one row at a time.
type TableSink interface {
	WriteHeader(prefix string, samples []string) error
	WriteRow(row Row) error
}

// SequenceSink receives the filtered representative sequences. Lines are
// passed verbatim, line terminator included, and size is the seed's size
// annotation exactly as it appeared in the input header.
type SequenceSink interface {
	BeginRecord(name, size string) error
	WriteLine(line string) error
	EndRecord() error
}

type teeTable []TableSink

// TeeTable duplicates every header and row to all sinks, in order.
func TeeTable(sinks ...TableSink) TableSink {
	return teeTable(sinks)
}

func (t teeTable) WriteHeader(prefix string, samples []string) error {
	for _, s := range t {
		if err := s.WriteHeader(prefix, samples); err != nil {
			return err
		}
	}
	return nil
}

func (t teeTable) WriteRow(row Row) error {
	for _, s := range t {
		if err := s.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

type teeSequence []SequenceSink

func TeeSequence(sinks ...SequenceSink) SequenceSink {
	return teeSequence(sinks)
}

func (t teeSequence) BeginRecord(name, size string) error {
	for _, s := range t {
		if err := s.BeginRecord(name, size); err != nil {
			return err
		}
	}
	return nil
}

func (t teeSequence) WriteLine(line string) error {
	for _, s := range t {
		if err := s.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (t teeSequence) EndRecord() error {
	for _, s := range t {
		if err := s.EndRecord(); err != nil {
			return err
		}
	}
	return nil
}

type SampleAbundance struct {
	Sample string `json:"sample"`
	Reads  int64  `json:"reads"`
}

// OTU is a retained cluster as stored after a run: its table row joined with
// its representative sequence.
type OTU struct {
	Name       string            `json:"name"`
	Line       int               `json:"line"`
	Seed       SizedID           `json:"seed"`
	TotalReads int64             `json:"total_reads"`
	Sequence   string            `json:"sequence,omitempty"`
	Abundances []SampleAbundance `json:"abundances,omitempty"`
}
