package annotation

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/txome/internal/diag"
)

// GFF3 column indexes.
const (
	colSeqID = iota
	colSource
	colType
	colStart
	colEnd
	colScore
	colStrand
	colPhase
	colAttributes
	numColumns
)

// DefaultTargets is the target feature type set used when none is configured.
var DefaultTargets = []string{"exon"}

// Default GFF3 attribute separators.
const (
	DefaultFieldSep = ";"
	DefaultKVSep    = "="
)

// Options controls how annotation lines are interpreted.
type Options struct {
	// Targets lists the feature types grouped into transcripts.
	Targets []string
	// FieldSep separates attribute pairs (default ";").
	FieldSep string
	// KVSep separates an attribute key from its value (default "=").
	KVSep string
}

func (o Options) withDefaults() Options {
	if len(o.Targets) == 0 {
		o.Targets = DefaultTargets
	}
	if o.FieldSep == "" {
		o.FieldSep = DefaultFieldSep
	}
	if o.KVSep == "" {
		o.KVSep = DefaultKVSep
	}
	return o
}

// Reader yields Features from GFF3 text. It consumes the underlying stream
// and cannot be restarted.
type Reader struct {
	br         *bufio.Reader
	closers    []io.Closer
	opts       Options
	targets    map[string]bool
	dc         *diag.Collector
	lineNumber int
	done       bool
}

// NewReader creates a Reader over r. Malformed lines are reported to dc and
// skipped.
func NewReader(r io.Reader, opts Options, dc *diag.Collector) *Reader {
	opts = opts.withDefaults()

	targets := make(map[string]bool, len(opts.Targets))
	for _, t := range opts.Targets {
		targets[t] = true
	}

	// Lines are read whole, however long the attribute column gets.
	return &Reader{
		br:      bufio.NewReaderSize(r, 64*1024),
		opts:    opts,
		targets: targets,
		dc:      dc,
	}
}

// Open opens a GFF3 file, plain or gzipped.
func Open(path string, opts Options, dc *diag.Collector) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open annotation file: %w", err)
	}

	br := bufio.NewReader(f)
	closers := []io.Closer{f}
	var src io.Reader = br

	// Check for gzip magic number (0x1f, 0x8b)
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		closers = append([]io.Closer{gz}, closers...)
		src = gz
	}

	r := NewReader(src, opts, dc)
	r.closers = closers
	return r, nil
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}

// LineNumber returns the number of the last line read.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// Next returns the next feature. It returns nil, nil at the end of input.
// Only I/O failures are returned as errors.
func (r *Reader) Next() (*Feature, error) {
	for !r.done {
		raw, err := r.br.ReadString('\n')
		if err == io.EOF {
			r.done = true
		} else if err != nil {
			r.done = true
			return nil, fmt.Errorf("read annotation: %w", err)
		}
		if raw == "" {
			continue
		}
		r.lineNumber++
		line := strings.TrimRight(raw, "\r\n")

		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "##FASTA") {
			// Embedded sequences follow; no more features.
			r.done = true
			return nil, nil
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		feat, err := r.parseLine(line)
		if err != nil {
			r.dc.Error(diag.KindFormat, "", fmt.Sprintf("line %d", r.lineNumber), "skipping annotation line: %v", err)
			continue
		}
		return feat, nil
	}

	return nil, nil
}

// ReadAll reads every remaining feature.
func (r *Reader) ReadAll() ([]*Feature, error) {
	var features []*Feature
	for {
		f, err := r.Next()
		if err != nil {
			return nil, err
		}
		if f == nil {
			return features, nil
		}
		features = append(features, f)
	}
}

// parseLine parses a single GFF3 data line.
func (r *Reader) parseLine(line string) (*Feature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != numColumns {
		return nil, fmt.Errorf("expected %d fields, got %d", numColumns, len(fields))
	}

	start, err := strconv.ParseInt(strings.TrimSpace(fields[colStart]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start %q: %w", fields[colStart], err)
	}
	end, err := strconv.ParseInt(strings.TrimSpace(fields[colEnd]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end %q: %w", fields[colEnd], err)
	}
	if start < 1 {
		return nil, fmt.Errorf("start %d is not a 1-based coordinate", start)
	}
	if start > end {
		return nil, fmt.Errorf("start %d is after end %d", start, end)
	}

	strand, ok := parseStrand(fields[colStrand])
	if !ok {
		return nil, fmt.Errorf("invalid strand %q", fields[colStrand])
	}

	raw := parseAttributes(fields[colAttributes], r.opts.FieldSep, r.opts.KVSep)
	attrs := make(map[string]string, len(raw))
	for k, v := range raw {
		attrs[k] = unescape(v)
	}

	feat := &Feature{
		SeqID:      fields[colSeqID],
		Source:     fields[colSource],
		Type:       fields[colType],
		Start:      start,
		End:        end,
		Score:      fields[colScore],
		Strand:     strand,
		Phase:      fields[colPhase],
		ID:         attrs["ID"],
		Parents:    splitList(raw["Parent"]),
		GeneID:     attrs["gene_id"],
		Attributes: attrs,
		IsTarget:   r.targets[fields[colType]],
		Line:       r.lineNumber,
	}
	if ids := feat.TranscriptIDs(); len(ids) > 0 {
		feat.TranscriptID = ids[0]
	}

	return feat, nil
}

// parseAttributes parses the attribute column.
// Format: key=value;key=value;...
func parseAttributes(attrStr, fieldSep, kvSep string) map[string]string {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, fieldSep) {
		part = strings.TrimSpace(part)
		if part == "" || part == "." {
			continue
		}

		key, value, ok := strings.Cut(part, kvSep)
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"")
		if key == "" {
			continue
		}

		attrs[key] = value
	}

	return attrs
}

// splitList splits a multi-valued attribute such as Parent=tx1,tx2 and
// decodes GFF3 percent escapes in each value.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		v = unescape(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// unescape decodes GFF3 percent-encoding (%3B, %2C, ...). Invalid escapes
// are left as they are.
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
