package pipeline

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yumyai/swarmtable/logger"
	"github.com/yumyai/swarmtable/pkg/db"
	"github.com/yumyai/swarmtable/pkg/model"
)

type runFiles struct {
	origins, swarms, fasta string
}

func writeInputs(t *testing.T, dir string, f runFiles) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Dir = dir

	for name, content := range map[string]string{
		cfg.Origins: f.origins,
		cfg.Swarms:  f.swarms,
		cfg.Fasta:   f.fasta,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func readOutput(t *testing.T, cfg Config, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(cfg.Dir, name))
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestRunEndToEndExample(t *testing.T) {
	cfg := writeInputs(t, t.TempDir(), runFiles{
		origins: "ISU_0;size=7118\tS1;size=5\tS2;size=3\n",
		swarms:  "ISU_0;size=7118 ISU_9;size=2\n",
		fasta:   ">ISU_0;size=7118;\nACGT\n",
	})

	summary, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if got, want := readOutput(t, cfg, DefaultTable), "SWARM\tS1\tS2\nSWARM_1\t5\t3\n"; got != want {
		t.Errorf("table: got %q, want %q", got, want)
	}
	if got, want := readOutput(t, cfg, DefaultFilteredFasta), ">SWARM_1;size=7118;\nACGT\n"; got != want {
		t.Errorf("fasta: got %q, want %q", got, want)
	}

	if summary.Samples != 2 || summary.Aggregate.Retained != 1 || summary.Aggregate.MissingMembers != 1 || summary.Filter.Kept != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

var mixedRun = runFiles{
	origins: strings.Join([]string{
		"ISU_0;size=12\tB;size=2\tA;size=10",
		"ISU_1;size=3\tA;size=1\tC;size=2",
		"ISU_2;size=1\tC;size=1",
		"ISU_3;size=4\tB;size=4",
		"ISU_4;size=1\tA;size=1",
	}, "\n") + "\n",
	swarms: strings.Join([]string{
		"ISU_0;size=12 ISU_1;size=3",
		"ISU_2;size=1",
		"ISU_3;size=4",
		"ISU_4;size=1 ISU_7;size=1",
	}, "\n") + "\n",
	fasta: ">ISU_0;size=12;\nAAAA\nCCCC\n>ISU_2;size=1;\nGGGG\n>ISU_3;size=4;\nTTTT\n>ISU_4;size=1;\nACAC\n",
}

func TestRunRetentionAndConsistency(t *testing.T) {
	cfg := writeInputs(t, t.TempDir(), mixedRun)

	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("run: %v", err)
	}

	wantTable := "SWARM\tB\tA\tC\n" +
		"SWARM_1\t2\t11\t2\n" +
		"SWARM_3\t4\t0\t0\n" +
		"SWARM_4\t0\t1\t0\n"
	table := readOutput(t, cfg, DefaultTable)
	if table != wantTable {
		t.Errorf("table: got %q, want %q", table, wantTable)
	}

	wantFasta := ">SWARM_1;size=12;\nAAAA\nCCCC\n>SWARM_3;size=4;\nTTTT\n>SWARM_4;size=1;\nACAC\n"
	fasta := readOutput(t, cfg, DefaultFilteredFasta)
	if fasta != wantFasta {
		t.Errorf("fasta: got %q, want %q", fasta, wantFasta)
	}

	// Every name in the FASTA output is a table row and vice versa.
	var tableNames, fastaNames []string
	for _, line := range strings.Split(strings.TrimSpace(table), "\n")[1:] {
		tableNames = append(tableNames, strings.SplitN(line, "\t", 2)[0])
	}
	for _, line := range strings.Split(fasta, "\n") {
		if strings.HasPrefix(line, ">") {
			fastaNames = append(fastaNames, strings.SplitN(line[1:], ";", 2)[0])
		}
	}
	if strings.Join(tableNames, ",") != strings.Join(fastaNames, ",") {
		t.Errorf("table names %v != fasta names %v", tableNames, fastaNames)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	first := writeInputs(t, t.TempDir(), mixedRun)
	second := writeInputs(t, t.TempDir(), mixedRun)
	second.KeepIndex = true

	for _, cfg := range []Config{first, second} {
		if _, err := Run(context.Background(), cfg); err != nil {
			t.Fatalf("run: %v", err)
		}
	}

	for _, name := range []string{DefaultTable, DefaultFilteredFasta} {
		if readOutput(t, first, name) != readOutput(t, second, name) {
			t.Errorf("%s differs between runs", name)
		}
	}
}

func TestRunMinAbundanceAndPrefix(t *testing.T) {
	cfg := writeInputs(t, t.TempDir(), mixedRun)
	cfg.MinAbundance = 1
	cfg.Prefix = "OTU"

	summary, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Aggregate.Retained != 4 {
		t.Errorf("expected every cluster retained, got %+v", summary.Aggregate)
	}

	table := readOutput(t, cfg, DefaultTable)
	if !strings.HasPrefix(table, "OTU\tB\tA\tC\n") || !strings.Contains(table, "OTU_2\t0\t0\t1\n") {
		t.Errorf("unexpected table %q", table)
	}
}

func TestRunCompressedOrigins(t *testing.T) {
	dir := t.TempDir()
	cfg := writeInputs(t, dir, mixedRun)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(mixedRun.origins))
	zw.Close()
	os.WriteFile(filepath.Join(dir, "origins.tsv.gz"), buf.Bytes(), 0o644)
	cfg.Origins = "origins.tsv.gz"

	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(readOutput(t, cfg, DefaultTable), "SWARM\tB\tA\tC\nSWARM_1\t2\t11\t2\n") {
		t.Error("compressed origins produced a different table")
	}
}

func TestRunWithDatabase(t *testing.T) {
	dir := t.TempDir()
	cfg := writeInputs(t, dir, mixedRun)
	cfg.DBPath = filepath.Join(dir, "run.db")

	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("run: %v", err)
	}

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	otu, err := store.GetOTU(context.Background(), "SWARM_1")
	if err != nil {
		t.Fatal(err)
	}
	if otu.TotalReads != 15 || otu.Sequence != "AAAA\nCCCC\n" {
		t.Errorf("unexpected stored OTU: %+v", otu)
	}
	if n, _ := store.CountOTUs(context.Background()); n != 3 {
		t.Errorf("expected 3 stored OTUs, got %d", n)
	}
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	cfg := writeInputs(t, dir, mixedRun)
	os.Remove(filepath.Join(dir, DefaultFasta))

	_, err := Run(context.Background(), cfg)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultTable)); !errors.Is(err, fs.ErrNotExist) {
		t.Error("no output should be created when an input is missing")
	}
}

func TestRunMalformedInput(t *testing.T) {
	f := mixedRun
	f.swarms = "ISU_0;size=12 ISU_1\n"
	cfg := writeInputs(t, t.TempDir(), f)

	_, err := Run(context.Background(), cfg)
	if !errors.Is(err, model.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestRunMissingDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dir = filepath.Join(t.TempDir(), "absent")

	if _, err := Run(context.Background(), cfg); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestRunInputIsDirectory(t *testing.T) {
	dir := t.TempDir()
	cfg := writeInputs(t, dir, mixedRun)
	if err := os.Mkdir(filepath.Join(dir, "swarms.d"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg.Swarms = "swarms.d"

	_, err := Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("expected a directory error, got %v", err)
	}
}

func TestRunWarnsOnMissingMembers(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	defer logger.Replace(zap.New(core))()

	// ISU_7 of the fourth cluster is not in the origin table.
	cfg := writeInputs(t, t.TempDir(), mixedRun)
	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("run: %v", err)
	}

	entries := logs.FilterField(zap.Int("missing_members", 1)).All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected one missing-member warning, got %v", logs.All())
	}
}
