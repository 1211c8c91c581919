package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/txome/internal/diag"
	"github.com/inodb/txome/internal/transcript"
)

// Run holds everything recorded about one extraction.
type Run struct {
	Transcripts []*transcript.Transcript // assembled, in annotation order
	Extracted   map[string]bool          // transcript IDs written to the FASTA
	Diagnostics []diag.Diagnostic
	Inputs      []Input
}

// WriteRun replaces the stored run with r. Rows are batch-inserted with the
// Appender API.
func (s *Store) WriteRun(r *Run) error {
	if err := s.Clear(); err != nil {
		return err
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	err = appendRows(conn.Raw, "transcripts", len(r.Transcripts), func(i int) []driver.Value {
		t := r.Transcripts[i]
		return []driver.Value{
			t.ID, t.GeneID, t.SeqID, t.Strand.String(),
			int64(len(t.Exons)), t.Length(), r.Extracted[t.ID],
		}
	})
	if err != nil {
		return err
	}

	var exons [][]driver.Value
	for _, t := range r.Transcripts {
		for rank, e := range t.BiologicalOrder() {
			exons = append(exons, []driver.Value{t.ID, int64(rank + 1), t.SeqID, e.Start, e.End})
		}
	}
	err = appendRows(conn.Raw, "exons", len(exons), func(i int) []driver.Value { return exons[i] })
	if err != nil {
		return err
	}

	err = appendRows(conn.Raw, "diagnostics", len(r.Diagnostics), func(i int) []driver.Value {
		d := r.Diagnostics[i]
		return []driver.Value{
			int64(i + 1), d.Severity.String(), d.Kind.String(),
			d.TranscriptID, d.Message, d.Context,
		}
	})
	if err != nil {
		return err
	}

	return appendRows(conn.Raw, "inputs", len(r.Inputs), func(i int) []driver.Value {
		in := r.Inputs[i]
		return []driver.Value{in.Role, in.Path, in.Size, in.ModTime}
	})
}

// appendRows appends n rows produced by row to table through one appender.
func appendRows(raw func(func(any) error) error, table string, n int, row func(i int) []driver.Value) error {
	if n == 0 {
		return nil
	}

	var appender *goduckdb.Appender
	if err := raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create %s appender: %w", table, err)
	}
	defer appender.Close()

	for i := range n {
		if err := appender.AppendRow(row(i)...); err != nil {
			return fmt.Errorf("append %s row: %w", table, err)
		}
	}

	return appender.Flush()
}
