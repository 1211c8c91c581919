package transcript

import (
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/txome/internal/annotation"
	"github.com/inodb/txome/internal/diag"
)

// DefaultShortExon is the exon length at or below which a warning is raised.
const DefaultShortExon = 3

// SequenceIndex answers whether a sequence exists in the genome.
type SequenceIndex interface {
	Has(seqID string) bool
}

// Assembler groups target features into transcripts.
type Assembler struct {
	seqs      SequenceIndex
	dc        *diag.Collector
	logger    *zap.Logger
	shortExon int64
}

// NewAssembler creates an assembler. seqs may be nil to skip the
// sequence-existence check.
func NewAssembler(seqs SequenceIndex, dc *diag.Collector) *Assembler {
	return &Assembler{
		seqs:      seqs,
		dc:        dc,
		logger:    zap.NewNop(),
		shortExon: DefaultShortExon,
	}
}

// SetLogger sets the logger for progress messages.
func (a *Assembler) SetLogger(l *zap.Logger) {
	a.logger = l
}

// SetShortExon sets the short-exon warning threshold; 0 disables it.
func (a *Assembler) SetShortExon(n int64) {
	a.shortExon = n
}

// Assembly is the result of grouping: transcripts in annotation order,
// indexed by ID.
type Assembly struct {
	transcripts []*Transcript
	byID        map[string]*Transcript
}

// Transcripts returns the transcripts in order of first appearance.
func (s *Assembly) Transcripts() []*Transcript {
	return s.transcripts
}

// Get returns a transcript by ID, or nil if it was not assembled.
func (s *Assembly) Get(id string) *Transcript {
	return s.byID[id]
}

// Len returns the number of assembled transcripts.
func (s *Assembly) Len() int {
	return len(s.transcripts)
}

// Assemble groups the target features by transcript, validates each group
// and returns the consistent ones. Non-target features are only used to
// resolve gene IDs through parent linkage.
func (a *Assembler) Assemble(features []*annotation.Feature) *Assembly {
	parents := make(map[string]*annotation.Feature)
	groups := make(map[string][]*annotation.Feature)
	var order []string

	for _, f := range features {
		if !f.IsTarget {
			if f.ID != "" {
				if _, ok := parents[f.ID]; !ok {
					parents[f.ID] = f
				}
			}
			continue
		}

		ids := f.TranscriptIDs()
		if len(ids) == 0 {
			a.dc.Error(diag.KindConsistency, "", f.Context(),
				"%s feature has no transcript_id or Parent attribute; excluded", f.Type)
			continue
		}
		for i, id := range ids {
			if containsBefore(ids, i) {
				continue
			}
			if _, seen := groups[id]; !seen {
				order = append(order, id)
			}
			groups[id] = append(groups[id], f)
		}
	}

	asm := &Assembly{byID: make(map[string]*Transcript, len(order))}
	for _, id := range order {
		t := a.build(id, groups[id], parents)
		if t == nil {
			continue
		}
		asm.transcripts = append(asm.transcripts, t)
		asm.byID[id] = t
	}

	a.logger.Info("assembled transcripts",
		zap.Int("candidates", len(order)),
		zap.Int("transcripts", asm.Len()),
		zap.Int("excluded", len(order)-asm.Len()))

	return asm
}

// containsBefore reports whether ids[i] already occurs in ids[:i].
func containsBefore(ids []string, i int) bool {
	for _, id := range ids[:i] {
		if id == ids[i] {
			return true
		}
	}
	return false
}

// build validates one group. It returns nil when the group is excluded.
func (a *Assembler) build(id string, members []*annotation.Feature, parents map[string]*annotation.Feature) *Transcript {
	first := members[0]
	for _, e := range members[1:] {
		if e.SeqID != first.SeqID {
			a.dc.Error(diag.KindConsistency, id, e.Context(),
				"transcript has exons on different sequences (%s and %s); excluded", first.SeqID, e.SeqID)
			return nil
		}
		if e.Strand != first.Strand {
			a.dc.Error(diag.KindConsistency, id, e.Context(),
				"transcript has exons on different strands (%s and %s); excluded", first.Strand, e.Strand)
			return nil
		}
	}

	if a.seqs != nil && !a.seqs.Has(first.SeqID) {
		a.dc.Error(diag.KindLookup, id, first.Context(),
			"sequence %q not found in genome; excluded", first.SeqID)
		return nil
	}

	exons := make([]*annotation.Feature, len(members))
	copy(exons, members)
	sort.SliceStable(exons, func(i, j int) bool {
		if exons[i].Start != exons[j].Start {
			return exons[i].Start < exons[j].Start
		}
		return exons[i].End < exons[j].End
	})

	for i := 0; i+1 < len(exons); i++ {
		if exons[i].End >= exons[i+1].Start {
			a.dc.Warn(diag.KindOverlap, id, exons[i+1].Context(),
				"exons %s and %s overlap", exons[i].Location(), exons[i+1].Location())
		}
	}

	if a.shortExon > 0 {
		for _, e := range exons {
			if e.Len() <= a.shortExon {
				a.dc.Warn(diag.KindShortExon, id, e.Context(),
					"suspicious exon of only %d bases", e.Len())
			}
		}
	}

	if first.Strand == annotation.Unknown {
		a.dc.Warn(diag.KindStrand, id, "",
			"transcript strand is unknown; extracting in forward orientation")
	}

	t := &Transcript{
		ID:     id,
		SeqID:  first.SeqID,
		Strand: first.Strand,
		Exons:  exons,
		GeneID: resolveGene(id, exons, parents),
	}
	if t.GeneID == "" {
		a.dc.Warn(diag.KindGene, id, "", "gene_id could not be resolved")
	}

	return t
}

// resolveGene prefers a gene_id attribute on the exons, then the parent
// transcript feature's gene_id or Parent. A transcript ID that names a gene
// feature directly is its own gene.
func resolveGene(id string, exons []*annotation.Feature, parents map[string]*annotation.Feature) string {
	for _, e := range exons {
		if e.GeneID != "" {
			return e.GeneID
		}
	}

	p, ok := parents[id]
	if !ok {
		return ""
	}
	switch {
	case p.GeneID != "":
		return p.GeneID
	case p.Type == "gene":
		return p.ID
	case len(p.Parents) > 0:
		return p.Parents[0]
	}
	return ""
}
