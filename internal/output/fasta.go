package output

import (
	"bufio"
	"io"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/inodb/txome/internal/transcript"
)

// DefaultLineWidth is the number of bases per FASTA sequence line.
const DefaultLineWidth = 60

// FASTAWriter writes extracted transcripts as FASTA records.
type FASTAWriter struct {
	buf        *bufio.Writer
	w          *fasta.Writer
	headerGene bool
}

// NewFASTAWriter creates a FASTA writer wrapping sequence lines at
// lineWidth bases. A non-positive width selects DefaultLineWidth. With
// headerGene set, the header line carries "gene=<gene_id>" after the ID.
func NewFASTAWriter(w io.Writer, lineWidth int, headerGene bool) *FASTAWriter {
	if lineWidth <= 0 {
		lineWidth = DefaultLineWidth
	}
	buf := bufio.NewWriter(w)
	return &FASTAWriter{
		buf:        buf,
		w:          fasta.NewWriter(buf, lineWidth),
		headerGene: headerGene,
	}
}

// Write writes one record for t with sequence seq.
func (fw *FASTAWriter) Write(t *transcript.Transcript, seq []byte) error {
	s := linear.NewSeq(t.ID, alphabet.BytesToLetters(seq), alphabet.DNAredundant)
	if fw.headerGene && t.GeneID != "" {
		s.Desc = "gene=" + t.GeneID
	}
	_, err := fw.w.Write(s)
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (fw *FASTAWriter) Flush() error {
	return fw.buf.Flush()
}
