// Package annotation reads GFF3 annotation records.
package annotation

import "fmt"

// Strand is the orientation of a feature relative to the reference.
type Strand int8

const (
	Unknown Strand = 0
	Forward Strand = 1
	Reverse Strand = -1
)

// String returns the GFF3 strand character.
func (s Strand) String() string {
	switch s {
	case Forward:
		return "+"
	case Reverse:
		return "-"
	default:
		return "."
	}
}

// parseStrand converts a GFF3 strand column. '?' (relevant but unknown)
// is treated like '.'.
func parseStrand(s string) (Strand, bool) {
	switch s {
	case "+":
		return Forward, true
	case "-":
		return Reverse, true
	case ".", "?":
		return Unknown, true
	}
	return Unknown, false
}

// Feature is one parsed annotation line. It is not modified after parsing.
type Feature struct {
	SeqID  string
	Source string
	Type   string
	Start  int64 // 1-based
	End    int64 // 1-based, inclusive
	Score  string
	Strand Strand
	Phase  string

	ID           string   // ID attribute
	TranscriptID string   // transcript_id attribute, else first Parent
	Parents      []string // all Parent values
	GeneID       string   // gene_id attribute
	Attributes   map[string]string

	IsTarget bool // Type is one of the configured target feature types
	Line     int  // source line number
}

// Len returns the number of bases covered by the feature.
func (f *Feature) Len() int64 {
	return f.End - f.Start + 1
}

// TranscriptIDs returns every transcript this feature belongs to.
// An explicit transcript_id attribute wins over Parent linkage.
func (f *Feature) TranscriptIDs() []string {
	if id := f.Attributes["transcript_id"]; id != "" {
		return []string{id}
	}
	return f.Parents
}

// Location formats the feature as "seq:start-end(strand)".
func (f *Feature) Location() string {
	return fmt.Sprintf("%s:%d-%d(%s)", f.SeqID, f.Start, f.End, f.Strand)
}

// Context describes the feature for diagnostics.
func (f *Feature) Context() string {
	ctx := f.Location()
	if f.ID != "" {
		ctx = f.ID + " " + ctx
	}
	if f.Line > 0 {
		ctx += fmt.Sprintf(" line %d", f.Line)
	}
	return ctx
}
