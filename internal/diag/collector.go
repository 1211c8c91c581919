package diag

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// Collector is an append-only, concurrency-safe list of diagnostics.
// A nil *Collector discards everything, so stages can run without one.
type Collector struct {
	mu      sync.Mutex
	items   []Diagnostic
	drained int
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends d.
func (c *Collector) Add(d Diagnostic) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// Warn appends a Warning.
func (c *Collector) Warn(kind Kind, transcriptID, context, format string, args ...any) {
	c.Add(newDiagnostic(Warning, kind, transcriptID, context, format, args...))
}

// Error appends an Error.
func (c *Collector) Error(kind Kind, transcriptID, context, format string, args ...any) {
	c.Add(newDiagnostic(Error, kind, transcriptID, context, format, args...))
}

func newDiagnostic(sev Severity, kind Kind, transcriptID, context, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity:     sev,
		Kind:         kind,
		Message:      fmt.Sprintf(format, args...),
		TranscriptID: transcriptID,
		Context:      context,
	}
}

// Merge appends every diagnostic of b in order, atomically with respect to
// other appends.
func (c *Collector) Merge(b *Batch) {
	if c == nil || b.Len() == 0 {
		return
	}
	c.mu.Lock()
	c.items = append(c.items, b.items...)
	c.mu.Unlock()
}

// All returns a copy of every diagnostic collected so far.
func (c *Collector) All() []Diagnostic {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// Drain returns the diagnostics appended since the previous Drain.
// Nothing is removed from the collector.
func (c *Collector) Drain() []Diagnostic {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items)-c.drained)
	copy(out, c.items[c.drained:])
	c.drained = len(c.items)
	return out
}

// Warnings returns all Warning diagnostics in append order.
func (c *Collector) Warnings() []Diagnostic {
	warnings, _ := Partition(c.All())
	return warnings
}

// Errors returns all Error diagnostics in append order.
func (c *Collector) Errors() []Diagnostic {
	_, errs := Partition(c.All())
	return errs
}

// Count returns the number of warnings and errors collected.
func (c *Collector) Count() (warnings, errors int) {
	for _, d := range c.All() {
		if d.IsError() {
			errors++
		} else {
			warnings++
		}
	}
	return warnings, errors
}

// Partition splits diags into warnings and errors, keeping order.
func Partition(diags []Diagnostic) (warnings, errors []Diagnostic) {
	for _, d := range diags {
		if d.IsError() {
			errors = append(errors, d)
		} else {
			warnings = append(warnings, d)
		}
	}
	return warnings, errors
}

// Batch accumulates diagnostics for one unit of work so a concurrent stage
// can hand them to the Collector in a deterministic order.
type Batch struct {
	items []Diagnostic
}

// Add appends d to the batch.
func (b *Batch) Add(d Diagnostic) {
	b.items = append(b.items, d)
}

// Warn appends a Warning to the batch.
func (b *Batch) Warn(kind Kind, transcriptID, context, format string, args ...any) {
	b.Add(newDiagnostic(Warning, kind, transcriptID, context, format, args...))
}

// Error appends an Error to the batch.
func (b *Batch) Error(kind Kind, transcriptID, context, format string, args ...any) {
	b.Add(newDiagnostic(Error, kind, transcriptID, context, format, args...))
}

// Len returns the number of diagnostics in the batch.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// WriteLog writes one line per diagnostic to w.
func WriteLog(w io.Writer, diags []Diagnostic) error {
	bw := bufio.NewWriter(w)
	for _, d := range diags {
		if _, err := bw.WriteString(d.String() + "\n"); err != nil {
			return fmt.Errorf("write diagnostic: %w", err)
		}
	}
	return bw.Flush()
}
