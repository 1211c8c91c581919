// Package transcript groups annotation features into validated transcripts.
package transcript

import "github.com/inodb/txome/internal/annotation"

// Transcript is a validated group of exons sharing one sequence and strand.
type Transcript struct {
	ID     string                // Transcript ID (e.g., ENST00000311936)
	GeneID string                // Parent gene ID, empty if unresolved
	SeqID  string                // Chromosome or contig
	Strand annotation.Strand     // Shared by every exon
	Exons  []*annotation.Feature // Sorted by ascending genomic start
}

// IsReverseStrand returns true if the transcript is on the reverse strand.
func (t *Transcript) IsReverseStrand() bool {
	return t.Strand == annotation.Reverse
}

// Start returns the lowest exon start (1-based).
func (t *Transcript) Start() int64 {
	if len(t.Exons) == 0 {
		return 0
	}
	return t.Exons[0].Start
}

// End returns the highest exon end (1-based, inclusive).
func (t *Transcript) End() int64 {
	var end int64
	for _, e := range t.Exons {
		end = max(end, e.End)
	}
	return end
}

// Length returns the total number of exonic bases.
func (t *Transcript) Length() int64 {
	var n int64
	for _, e := range t.Exons {
		n += e.Len()
	}
	return n
}

// BiologicalOrder returns the exons in 5' to 3' order: ascending start on
// the forward (or unknown) strand, descending on the reverse strand.
// The stored order is left untouched.
func (t *Transcript) BiologicalOrder() []*annotation.Feature {
	out := make([]*annotation.Feature, len(t.Exons))
	if !t.IsReverseStrand() {
		copy(out, t.Exons)
		return out
	}
	for i, e := range t.Exons {
		out[len(out)-1-i] = e
	}
	return out
}
