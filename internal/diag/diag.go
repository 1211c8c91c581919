// Package diag collects warnings and errors raised while assembling and
// extracting transcripts.
package diag

import (
	"fmt"
	"strings"
)

// Severity of a diagnostic.
type Severity int

const (
	Warning Severity = iota + 1
	Error
)

// String returns the upper-case label used in the diagnostic log.
func (s Severity) String() string {
	switch s {
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Kind classifies what went wrong.
type Kind int

const (
	KindFormat      Kind = iota + 1 // malformed input line or record
	KindConsistency                 // transcript members disagree, or no transcript id
	KindLookup                      // unknown sequence or coordinates out of bounds
	KindOverlap                     // adjacent exons overlap
	KindGene                        // gene id could not be resolved
	KindStrand                      // strand unknown
	KindShortExon                   // suspiciously short exon
	KindFatal                       // run aborted
)

var kindNames = map[Kind]string{
	KindFormat:      "format",
	KindConsistency: "consistency",
	KindLookup:      "lookup",
	KindOverlap:     "overlap",
	KindGene:        "gene",
	KindStrand:      "strand",
	KindShortExon:   "short_exon",
	KindFatal:       "fatal",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Diagnostic is a single warning or error with optional transcript and
// feature context.
type Diagnostic struct {
	Severity     Severity
	Kind         Kind
	Message      string
	TranscriptID string
	Context      string // e.g. "chr1:11-15(+) line 7"
}

// String renders the diagnostic as "SEVERITY: message [context]".
func (d Diagnostic) String() string {
	var ctx []string
	if d.TranscriptID != "" {
		ctx = append(ctx, "transcript_id="+d.TranscriptID)
	}
	if d.Context != "" {
		ctx = append(ctx, d.Context)
	}
	if len(ctx) == 0 {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s [%s]", d.Severity, d.Message, strings.Join(ctx, "; "))
}

// IsError reports whether the diagnostic has Error severity.
func (d Diagnostic) IsError() bool {
	return d.Severity == Error
}
