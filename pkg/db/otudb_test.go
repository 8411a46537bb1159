package db

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/yumyai/swarmtable/pkg/handler/request"
	"github.com/yumyai/swarmtable/pkg/model"
)

func openTestDB(t *testing.T) *OTUDB {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "otus.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func writeRun(t *testing.T, store *OTUDB) {
	t.Helper()
	ctx := context.Background()

	if err := store.Begin(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := store.WriteHeader("SWARM", []string{"S1", "S2", "S3"}); err != nil {
		t.Fatal(err)
	}
	rows := []model.Row{
		{Name: "SWARM_1", Line: 1, Seed: model.SizedID{ID: "ISU_0", Size: 7118}, Counts: []int64{5, 3, 0}},
		{Name: "SWARM_3", Line: 3, Seed: model.SizedID{ID: "ISU_4", Size: 2}, Counts: []int64{0, 0, 2}},
	}
	for _, r := range rows {
		if err := store.WriteRow(r); err != nil {
			t.Fatal(err)
		}
	}

	store.BeginRecord("SWARM_1", "07118")
	store.WriteLine("ACGT\n")
	store.WriteLine("TT\n")
	if err := store.EndRecord(); err != nil {
		t.Fatal(err)
	}

	if err := store.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestOTUDBRoundTrip(t *testing.T) {
	store := openTestDB(t)
	writeRun(t, store)
	ctx := context.Background()

	samples, err := store.ListSamples(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(samples, []string{"S1", "S2", "S3"}) {
		t.Errorf("samples: %v", samples)
	}

	n, err := store.CountOTUs(ctx)
	if err != nil || n != 2 {
		t.Fatalf("CountOTUs = %d, %v", n, err)
	}

	otu, err := store.GetOTU(ctx, "SWARM_1")
	if err != nil {
		t.Fatal(err)
	}
	if otu.TotalReads != 8 || otu.Seed.ID != "ISU_0" || otu.Seed.SizeText != "07118" || otu.Sequence != "ACGT\nTT\n" {
		t.Errorf("unexpected OTU: %+v", otu)
	}
	wantAbund := []model.SampleAbundance{{Sample: "S1", Reads: 5}, {Sample: "S2", Reads: 3}, {Sample: "S3", Reads: 0}}
	if !reflect.DeepEqual(otu.Abundances, wantAbund) {
		t.Errorf("abundances: got %v, want %v", otu.Abundances, wantAbund)
	}

	// No representative sequence was written for SWARM_3.
	otu3, err := store.GetOTU(ctx, "SWARM_3")
	if err != nil {
		t.Fatal(err)
	}
	if otu3.Sequence != "" {
		t.Errorf("expected empty sequence, got %q", otu3.Sequence)
	}
}

func TestOTUDBListPaging(t *testing.T) {
	store := openTestDB(t)
	writeRun(t, store)

	tests := []struct {
		name string
		req  request.OTUListRequest
		want []string
	}{
		{"ByLine", request.OTUListRequest{Page: 1, Page_Size: 10}, []string{"SWARM_1", "SWARM_3"}},
		{"SecondPage", request.OTUListRequest{Page: 2, Page_Size: 1}, []string{"SWARM_3"}},
		{"ReadsAscending", request.OTUListRequest{Order_By: request.OTUFieldTotalReads, Page: 1, Page_Size: 10}, []string{"SWARM_3", "SWARM_1"}},
		{"NameDescending", request.OTUListRequest{Order_By: request.OTUFieldName, Order_Dir: "desc", Page: 1, Page_Size: 10}, []string{"SWARM_3", "SWARM_1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := store.ListOTUs(context.Background(), tt.req)
			if err != nil {
				t.Fatal(err)
			}
			var names []string
			for _, o := range page {
				names = append(names, o.Name)
			}
			if !reflect.DeepEqual(names, tt.want) {
				t.Errorf("got %v, want %v", names, tt.want)
			}
		})
	}
}

func TestOTUDBNotFound(t *testing.T) {
	store := openTestDB(t)

	_, err := store.GetOTU(context.Background(), "SWARM_99")
	if !errors.Is(err, OTUNotExists) {
		t.Fatalf("expected OTUNotExists, got %v", err)
	}
}

func TestOTUDBRewriteReplaces(t *testing.T) {
	store := openTestDB(t)
	writeRun(t, store)
	writeRun(t, store)

	n, err := store.CountOTUs(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("CountOTUs = %d, %v", n, err)
	}
}

func TestOTUDBRequiresTransaction(t *testing.T) {
	store := openTestDB(t)

	if err := store.WriteRow(model.Row{Name: "SWARM_1"}); !errors.Is(err, ErrNotWriting) {
		t.Fatalf("expected ErrNotWriting, got %v", err)
	}
}
