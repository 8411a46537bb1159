package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yumyai/swarmtable/pkg/handler/request"
	"github.com/yumyai/swarmtable/pkg/model"
)

// ListSamples returns the sample names in table column order.
func (s *OTUDB) ListSamples(ctx context.Context) ([]string, error) {

	stm, err := s.db.PrepareContext(ctx, `SELECT name FROM samples ORDER BY sample_idx`)
	if err != nil {
		return nil, err
	}
	defer stm.Close()

	rows, err := stm.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		samples = append(samples, name)
	}

	return samples, rows.Err()
}

func (s *OTUDB) CountOTUs(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM otus`).Scan(&n)
	return n, err
}

// ListOTUs returns a page of OTUs without abundances or sequences.
func (s *OTUDB) ListOTUs(ctx context.Context, req request.OTUListRequest) ([]*model.OTU, error) {

	// Order column and direction come from enums, never from raw input.
	qstring := fmt.Sprintf(`
		SELECT name, line_no, seed_id, seed_size, total_reads
		FROM otus
		ORDER BY %s %s, line_no ASC
		LIMIT ? OFFSET ?;
	`, req.Order_By.String(), req.Direction())

	stm, err := s.db.PrepareContext(ctx, qstring)
	if err != nil {
		return nil, err
	}
	defer stm.Close()

	rows, err := stm.QueryContext(ctx, req.Page_Size, req.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	otus := make([]*model.OTU, 0, req.Page_Size)
	for rows.Next() {
		var o model.OTU
		if err := rows.Scan(&o.Name, &o.Line, &o.Seed.ID, &o.Seed.Size, &o.TotalReads); err != nil {
			return nil, err
		}
		otus = append(otus, &o)
	}

	return otus, rows.Err()
}

// GetOTU returns one OTU with its abundance in every sample, zeros included,
// in column order. OTUNotExists is returned for unknown names.
func (s *OTUDB) GetOTU(ctx context.Context, name string) (*model.OTU, error) {

	var (
		o         model.OTU
		seq, size sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT name, line_no, seed_id, seed_size, total_reads, header_size, sequence
		FROM otus WHERE name = ?`, name).
		Scan(&o.Name, &o.Line, &o.Seed.ID, &o.Seed.Size, &o.TotalReads, &size, &seq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", OTUNotExists, name)
	}
	if err != nil {
		return nil, err
	}
	o.Sequence = seq.String
	o.Seed.SizeText = size.String

	qstring := `
		SELECT s.name, COALESCE(a.reads, 0)
		FROM samples s
		LEFT JOIN abundances a ON a.sample_idx = s.sample_idx AND a.otu_name = ?
		ORDER BY s.sample_idx;
	`

	stm, err := s.db.PrepareContext(ctx, qstring)
	if err != nil {
		return nil, err
	}
	defer stm.Close()

	rows, err := stm.QueryContext(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.SampleAbundance
		if err := rows.Scan(&a.Sample, &a.Reads); err != nil {
			return nil, err
		}
		o.Abundances = append(o.Abundances, a)
	}

	return &o, rows.Err()
}
