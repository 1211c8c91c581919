// Package genome holds chromosome sequences in memory for extraction.
package genome

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/inodb/txome/internal/diag"
)

// LookupError reports a fetch against an unknown sequence or outside its
// bounds.
type LookupError struct {
	SeqID      string
	Start, End int64
	Length     int  // length of SeqID, 0 when unknown
	Known      bool // SeqID is present in the genome
}

func (e *LookupError) Error() string {
	if !e.Known {
		return fmt.Sprintf("sequence %q not found in genome", e.SeqID)
	}
	return fmt.Sprintf("region %s:%d-%d is outside sequence bounds (length %d)", e.SeqID, e.Start, e.End, e.Length)
}

// Genome maps sequence IDs to their bases. It is read-only after loading and
// safe for concurrent use.
type Genome struct {
	seqs  map[string][]byte
	names []string
}

// New builds a genome from already-loaded sequences. Names are sorted.
func New(seqs map[string][]byte) *Genome {
	g := &Genome{seqs: make(map[string][]byte, len(seqs))}
	for name, s := range seqs {
		g.seqs[name] = s
		g.names = append(g.names, name)
	}
	sort.Strings(g.names)
	return g
}

// LoadFile loads a FASTA file, plain or gzipped.
func LoadFile(path string, dc *diag.Collector) (*Genome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genome file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var reader io.Reader = br

	// Check for gzip magic number (0x1f, 0x8b)
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return Load(reader, dc)
}

// Load parses FASTA records from r. A repeated sequence ID is reported to dc
// and the first definition is kept.
func Load(r io.Reader, dc *diag.Collector) (*Genome, error) {
	g := &Genome{seqs: make(map[string][]byte)}

	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNAredundant)))
	record := 0
	for sc.Next() {
		record++
		s, ok := sc.Seq().(*linear.Seq)
		if !ok {
			return nil, fmt.Errorf("unexpected sequence type %T", sc.Seq())
		}

		id := s.Name()
		if id == "" {
			dc.Error(diag.KindFormat, "", fmt.Sprintf("record %d", record), "genome record has an empty sequence id; skipping")
			continue
		}
		if _, dup := g.seqs[id]; dup {
			dc.Error(diag.KindFormat, "", fmt.Sprintf("record %d", record), "duplicate sequence id %q in genome; keeping the first definition", id)
			continue
		}

		g.seqs[id] = alphabet.LettersToBytes(s.Seq)
		g.names = append(g.names, id)
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}

	return g, nil
}

// Has reports whether seqID is present.
func (g *Genome) Has(seqID string) bool {
	_, ok := g.seqs[seqID]
	return ok
}

// Len returns the length of seqID.
func (g *Genome) Len(seqID string) (int, bool) {
	s, ok := g.seqs[seqID]
	return len(s), ok
}

// Names returns sequence IDs in load order.
func (g *Genome) Names() []string {
	return append([]string(nil), g.names...)
}

// Count returns the number of loaded sequences.
func (g *Genome) Count() int {
	return len(g.seqs)
}

// Fetch returns bases start..end (1-based, inclusive) of seqID. The returned
// slice aliases genome memory and must not be modified.
func (g *Genome) Fetch(seqID string, start, end int64) ([]byte, error) {
	s, ok := g.seqs[seqID]
	if !ok {
		return nil, &LookupError{SeqID: seqID, Start: start, End: end}
	}
	if start < 1 || start > end || end > int64(len(s)) {
		return nil, &LookupError{SeqID: seqID, Start: start, End: end, Length: len(s), Known: true}
	}
	return s[start-1 : end : end], nil
}
