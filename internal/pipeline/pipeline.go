// Package pipeline runs a full extraction: read the genome and annotation,
// assemble transcripts, extract their sequences and write the outputs.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/inodb/txome/internal/annotation"
	"github.com/inodb/txome/internal/diag"
	"github.com/inodb/txome/internal/duckdb"
	"github.com/inodb/txome/internal/extract"
	"github.com/inodb/txome/internal/genome"
	"github.com/inodb/txome/internal/output"
	"github.com/inodb/txome/internal/transcript"
)

// ErrNoTranscripts is wrapped by the FatalIOError returned when no transcript
// could be written.
var ErrNoTranscripts = errors.New("no transcripts were written")

// FatalIOError aborts the run: a required input is missing or unreadable, an
// output cannot be written, or the transcriptome would be empty.
type FatalIOError struct {
	Op   string // e.g. "read genome", "create transcriptome"
	Path string
	Err  error
}

func (e *FatalIOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FatalIOError) Unwrap() error {
	return e.Err
}

// Config describes one run.
type Config struct {
	AnnotationPath    string // GFF3, plain or gzipped (required)
	GenomePath        string // FASTA, plain or gzipped (required)
	TranscriptomePath string // output FASTA (required)
	GeneMapPath       string // optional transcript_id/gene_id TSV
	RegionsPath       string // optional per-exon region TSV
	DBPath            string // optional DuckDB export

	Targets    []string // feature types treated as exons
	ShortExon  int64    // warn about exons this long or shorter, 0 = off
	LineWidth  int      // FASTA wrap width
	Workers    int      // extraction workers, 0 = all CPUs
	HeaderGene bool     // append gene=<id> to FASTA headers
	FieldSep   string   // attribute pair separator
	KVSep      string   // attribute key/value separator
}

// DefaultConfig returns a Config with the default targets, separators and
// line width.
func DefaultConfig() Config {
	return Config{
		Targets:   annotation.DefaultTargets,
		ShortExon: transcript.DefaultShortExon,
		LineWidth: output.DefaultLineWidth,
		FieldSep:  annotation.DefaultFieldSep,
		KVSep:     annotation.DefaultKVSep,
	}
}

// Validate checks that the required paths are set.
func (c Config) Validate() error {
	switch {
	case c.AnnotationPath == "":
		return errors.New("annotation path is required")
	case c.GenomePath == "":
		return errors.New("genome path is required")
	case c.TranscriptomePath == "":
		return errors.New("transcriptome path is required")
	case c.LineWidth < 0:
		return fmt.Errorf("invalid line width %d", c.LineWidth)
	case c.ShortExon < 0:
		return fmt.Errorf("invalid short exon length %d", c.ShortExon)
	}
	return nil
}

// Result summarizes a run.
type Result struct {
	Lines       int // annotation lines read
	Features    int // annotation records read
	Sequences   int // genome sequences loaded
	Transcripts int // transcripts that passed assembly
	Extracted   int // transcripts written to the transcriptome
	Failed      int // transcripts excluded during extraction

	Diagnostics []diag.Diagnostic
}

// Warnings returns the number of warning diagnostics.
func (r *Result) Warnings() int {
	w, _ := diag.Partition(r.Diagnostics)
	return len(w)
}

// Errors returns the number of error diagnostics.
func (r *Result) Errors() int {
	_, e := diag.Partition(r.Diagnostics)
	return len(e)
}

// Run executes cfg. The returned Result is never nil and carries every
// diagnostic, including the fatal one when Run fails with a *FatalIOError.
func Run(cfg Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dc := diag.NewCollector()
	res := &Result{}

	err := run(cfg, logger, dc, res)
	var fatal *FatalIOError
	if errors.As(err, &fatal) {
		dc.Error(diag.KindFatal, "", fatal.Path, "%s: %v", fatal.Op, fatal.Err)
	}

	res.Diagnostics = dc.Drain()
	warnings, errs := diag.Partition(res.Diagnostics)
	logger.Info("run finished",
		zap.Int("transcripts_written", res.Extracted),
		zap.Int("warnings", len(warnings)),
		zap.Int("errors", len(errs)))

	return res, err
}

func run(cfg Config, logger *zap.Logger, dc *diag.Collector, res *Result) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Info("loading genome", zap.String("path", cfg.GenomePath))
	g, err := genome.LoadFile(cfg.GenomePath, dc)
	if err != nil {
		return &FatalIOError{Op: "read genome", Path: cfg.GenomePath, Err: err}
	}
	res.Sequences = g.Count()
	logger.Info("loaded genome", zap.Int("sequences", g.Count()))

	features, lines, err := readAnnotation(cfg, dc)
	if err != nil {
		return err
	}
	res.Lines = lines
	res.Features = len(features)
	logger.Info("read annotation",
		zap.String("path", cfg.AnnotationPath),
		zap.Int("lines", lines),
		zap.Int("features", len(features)))

	asm := transcript.NewAssembler(g, dc)
	asm.SetLogger(logger)
	asm.SetShortExon(cfg.ShortExon)
	assembly := asm.Assemble(features)
	res.Transcripts = assembly.Len()

	if cfg.RegionsPath != "" {
		if err := writeRegions(cfg.RegionsPath, assembly.Transcripts()); err != nil {
			return err
		}
	}

	extracted, err := writeSequences(cfg, g, assembly.Transcripts(), logger, dc, res)
	if err != nil {
		return err
	}

	if cfg.DBPath != "" {
		if err := export(cfg, assembly.Transcripts(), extracted, dc); err != nil {
			return err
		}
		logger.Info("exported run", zap.String("path", cfg.DBPath))
	}

	return nil
}

// readAnnotation returns every feature and the number of lines consumed.
func readAnnotation(cfg Config, dc *diag.Collector) ([]*annotation.Feature, int, error) {
	opts := annotation.Options{
		Targets:  cfg.Targets,
		FieldSep: cfg.FieldSep,
		KVSep:    cfg.KVSep,
	}
	r, err := annotation.Open(cfg.AnnotationPath, opts, dc)
	if err != nil {
		return nil, 0, &FatalIOError{Op: "read annotation", Path: cfg.AnnotationPath, Err: err}
	}
	defer r.Close()

	features, err := r.ReadAll()
	if err != nil {
		return nil, 0, &FatalIOError{Op: "read annotation", Path: cfg.AnnotationPath, Err: err}
	}
	return features, r.LineNumber(), nil
}

func writeRegions(path string, transcripts []*transcript.Transcript) error {
	f, err := os.Create(path)
	if err != nil {
		return &FatalIOError{Op: "create regions", Path: path, Err: err}
	}
	defer f.Close()

	w := output.NewRegionWriter(f)
	if err := w.WriteHeader(); err != nil {
		return &FatalIOError{Op: "write regions", Path: path, Err: err}
	}
	for _, t := range transcripts {
		if err := w.Write(t); err != nil {
			return &FatalIOError{Op: "write regions", Path: path, Err: err}
		}
	}
	if err := w.Flush(); err != nil {
		return &FatalIOError{Op: "write regions", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &FatalIOError{Op: "write regions", Path: path, Err: err}
	}
	return nil
}

// writeSequences extracts every transcript and streams the FASTA and gene map
// in annotation order. It returns the IDs that were written.
func writeSequences(cfg Config, g *genome.Genome, transcripts []*transcript.Transcript, logger *zap.Logger, dc *diag.Collector, res *Result) (map[string]bool, error) {
	fastaFile, err := os.Create(cfg.TranscriptomePath)
	if err != nil {
		return nil, &FatalIOError{Op: "create transcriptome", Path: cfg.TranscriptomePath, Err: err}
	}
	defer fastaFile.Close()
	fw := output.NewFASTAWriter(fastaFile, cfg.LineWidth, cfg.HeaderGene)

	var gm *output.GeneMapWriter
	var gmFile io.WriteCloser
	if cfg.GeneMapPath != "" {
		f, err := os.Create(cfg.GeneMapPath)
		if err != nil {
			return nil, &FatalIOError{Op: "create gene map", Path: cfg.GeneMapPath, Err: err}
		}
		defer f.Close()
		gm = output.NewGeneMapWriter(f)
		gmFile = f
	}

	written := make(map[string]bool, len(transcripts))
	x := extract.NewExtractor(g, cfg.Workers)
	x.SetLogger(logger)
	extracted, failed, err := x.ExtractAll(transcripts, dc, func(t *transcript.Transcript, seq []byte) error {
		if err := fw.Write(t, seq); err != nil {
			return &FatalIOError{Op: "write transcriptome", Path: cfg.TranscriptomePath, Err: err}
		}
		if gm != nil {
			if err := gm.Write(t); err != nil {
				return &FatalIOError{Op: "write gene map", Path: cfg.GeneMapPath, Err: err}
			}
		}
		written[t.ID] = true
		return nil
	})
	res.Extracted, res.Failed = extracted, failed
	if err != nil {
		return nil, err
	}

	if err := fw.Flush(); err != nil {
		return nil, &FatalIOError{Op: "write transcriptome", Path: cfg.TranscriptomePath, Err: err}
	}
	if err := fastaFile.Close(); err != nil {
		return nil, &FatalIOError{Op: "write transcriptome", Path: cfg.TranscriptomePath, Err: err}
	}
	if gm != nil {
		if err := gm.Flush(); err != nil {
			return nil, &FatalIOError{Op: "write gene map", Path: cfg.GeneMapPath, Err: err}
		}
		if err := gmFile.Close(); err != nil {
			return nil, &FatalIOError{Op: "write gene map", Path: cfg.GeneMapPath, Err: err}
		}
	}

	if extracted == 0 {
		return nil, &FatalIOError{Op: "write transcriptome", Path: cfg.TranscriptomePath, Err: ErrNoTranscripts}
	}
	return written, nil
}

func export(cfg Config, transcripts []*transcript.Transcript, extracted map[string]bool, dc *diag.Collector) error {
	inputs, err := duckdb.StatInputs(map[string]string{
		"annotation":    cfg.AnnotationPath,
		"genome":        cfg.GenomePath,
		"transcriptome": cfg.TranscriptomePath,
		"genemap":       cfg.GeneMapPath,
		"regions":       cfg.RegionsPath,
	})
	if err != nil {
		return &FatalIOError{Op: "export run", Path: cfg.DBPath, Err: err}
	}

	store, err := duckdb.Open(cfg.DBPath)
	if err != nil {
		return &FatalIOError{Op: "export run", Path: cfg.DBPath, Err: err}
	}
	defer store.Close()

	run := &duckdb.Run{
		Transcripts: transcripts,
		Extracted:   extracted,
		Diagnostics: dc.All(),
		Inputs:      inputs,
	}
	if err := store.WriteRun(run); err != nil {
		return &FatalIOError{Op: "export run", Path: cfg.DBPath, Err: err}
	}
	return nil
}
