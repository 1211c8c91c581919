// Package output writes the transcriptome, gene map and region tables.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/txome/internal/transcript"
)

// tabWriter writes tab-delimited rows through a buffer.
type tabWriter struct {
	w       *bufio.Writer
	columns []string
}

func newTabWriter(w io.Writer, columns ...string) *tabWriter {
	return &tabWriter{
		w:       bufio.NewWriter(w),
		columns: columns,
	}
}

// WriteHeader writes the header line.
func (tw *tabWriter) WriteHeader() error {
	return tw.writeRow(tw.columns...)
}

func (tw *tabWriter) writeRow(values ...string) error {
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *tabWriter) Flush() error {
	return tw.w.Flush()
}

// GeneMapWriter writes header-less transcript_id/gene_id rows.
type GeneMapWriter struct {
	*tabWriter
}

// NewGeneMapWriter creates a gene map writer.
func NewGeneMapWriter(w io.Writer) *GeneMapWriter {
	return &GeneMapWriter{newTabWriter(w, "transcript_id", "gene_id")}
}

// Write writes one row. An unresolved gene leaves the second field empty.
func (gw *GeneMapWriter) Write(t *transcript.Transcript) error {
	return gw.writeRow(t.ID, t.GeneID)
}

// RegionWriter writes one row per exon with its genomic coordinates.
type RegionWriter struct {
	*tabWriter
}

// NewRegionWriter creates a region writer.
func NewRegionWriter(w io.Writer) *RegionWriter {
	return &RegionWriter{newTabWriter(w, "chromosome", "start", "end", "strand", "transcript_id")}
}

// Write writes every exon of t in storage order.
func (rw *RegionWriter) Write(t *transcript.Transcript) error {
	strand := t.Strand.String()
	for _, e := range t.Exons {
		err := rw.writeRow(
			t.SeqID,
			strconv.FormatInt(e.Start, 10),
			strconv.FormatInt(e.End, 10),
			strand,
			t.ID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
