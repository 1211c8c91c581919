// Package extract builds spliced transcript sequences from genome bases.
package extract

import (
	"fmt"

	"github.com/inodb/txome/internal/transcript"
)

// SequenceSource fetches 1-based inclusive genome regions.
type SequenceSource interface {
	Fetch(seqID string, start, end int64) ([]byte, error)
}

// Extract returns the mature sequence of t read 5' to 3'. Forward and
// unknown-strand transcripts concatenate exons in ascending order; reverse
// transcripts take exons in descending order and reverse-complement each.
// The first exon that cannot be fetched aborts the transcript.
func Extract(t *transcript.Transcript, g SequenceSource) ([]byte, error) {
	exons := t.BiologicalOrder()

	// Every exon is bounds-checked before anything is allocated, so the
	// output size comes from the genome, not from annotation coordinates.
	parts := make([][]byte, len(exons))
	var n int
	for i, e := range exons {
		bases, err := g.Fetch(t.SeqID, e.Start, e.End)
		if err != nil {
			return nil, fmt.Errorf("transcript %s exon %s:%d-%d: %w", t.ID, t.SeqID, e.Start, e.End, err)
		}
		parts[i] = bases
		n += len(bases)
	}

	seq := make([]byte, 0, n)
	for _, bases := range parts {
		if t.IsReverseStrand() {
			seq = appendReverseComplement(seq, bases)
		} else {
			seq = append(seq, bases...)
		}
	}
	return seq, nil
}
