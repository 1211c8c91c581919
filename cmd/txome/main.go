// Package main provides the txome command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/txome/internal/diag"
	"github.com/inodb/txome/internal/pipeline"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// usageError marks errors caused by bad invocation rather than bad data.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", root.CommandPath())
		return ExitUsage
	}
	return ExitError
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "txome",
		Short: "Build a transcriptome FASTA from a genome and a GFF3 annotation",
		Long: `txome groups the exon features of a GFF3 annotation into transcripts,
extracts their spliced, strand-corrected sequences from a genome FASTA and
writes them as a transcriptome FASTA, optionally with a transcript-to-gene
map. Problems in the input are reported as warnings and errors in the
diagnostic log; a transcript with errors is left out, the rest are written.`,
		Example: `  txome -f annotation.gff3 -d genome.fa -t transcriptome.fa
  txome -f annotation.gff3.gz -d genome.fa.gz -t tx.fa -g genemap.tsv -l txome.log
  txome -f annotation.gff3 -d genome.fa -t tx.fa -e exon,CDS --db run.duckdb`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return &usageError{err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract()
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	f := cmd.Flags()
	f.StringP("gff3", "f", "", "GFF3 annotation file, plain or gzipped (required)")
	f.StringP("dna", "d", "", "genome FASTA file, plain or gzipped (required)")
	f.StringP("transcriptome", "t", "", "output transcriptome FASTA (required)")
	f.StringP("genemap", "g", "", "output transcript_id/gene_id table")
	f.StringP("features", "e", "exon", "comma-separated feature types grouped into transcripts")
	f.StringP("log", "l", "", "diagnostic log file (default: stdout)")
	f.String("regions", "", "output per-exon region table")
	f.String("db", "", "export the run to a DuckDB database")
	f.Int("line-width", 60, "FASTA sequence line width")
	f.Int64("short-exon", 3, "warn about exons of this many bases or fewer (0 = off)")
	f.IntP("threads", "j", 0, "extraction workers (0 = all CPUs)")
	f.Bool("header-gene", false, "append gene=<gene_id> to FASTA headers")
	f.String("field-sep", ";", "attribute pair separator")
	f.String("kv-sep", "=", "attribute key/value separator")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	for _, name := range []string{
		"gff3", "dna", "transcriptome", "genemap", "features", "log", "regions",
		"db", "line-width", "short-exon", "threads", "header-gene", "field-sep", "kv-sep",
	} {
		viper.BindPFlag(name, f.Lookup(name))
	}
	viper.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))

	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("txome version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// initConfig loads ~/.txome.yaml (if present) and TXOME_* environment
// variables.
func initConfig() error {
	viper.SetEnvPrefix("txome")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	viper.SetConfigFile(filepath.Join(home, ".txome.yaml"))
	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(viper.ConfigFileUsed()); statErr == nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// configFromViper builds the run configuration from flags, environment and
// config file, in that order of precedence.
func configFromViper() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.AnnotationPath = viper.GetString("gff3")
	cfg.GenomePath = viper.GetString("dna")
	cfg.TranscriptomePath = viper.GetString("transcriptome")
	cfg.GeneMapPath = viper.GetString("genemap")
	cfg.RegionsPath = viper.GetString("regions")
	cfg.DBPath = viper.GetString("db")
	cfg.LineWidth = viper.GetInt("line-width")
	cfg.ShortExon = viper.GetInt64("short-exon")
	cfg.Workers = viper.GetInt("threads")
	cfg.HeaderGene = viper.GetBool("header-gene")
	if s := viper.GetString("field-sep"); s != "" {
		cfg.FieldSep = s
	}
	if s := viper.GetString("kv-sep"); s != "" {
		cfg.KVSep = s
	}
	if targets := parseTargets(viper.GetString("features")); len(targets) > 0 {
		cfg.Targets = targets
	}
	return cfg
}

// parseTargets splits a comma-separated feature type list, dropping blanks.
func parseTargets(s string) []string {
	var targets []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}
	return targets
}

func runExtract() error {
	cfg := configFromViper()
	if err := cfg.Validate(); err != nil {
		return &usageError{err}
	}

	logger, err := newLogger(viper.GetBool("verbose"))
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	logger.Debug("starting run",
		zap.String("gff3", cfg.AnnotationPath),
		zap.String("dna", cfg.GenomePath),
		zap.Strings("features", cfg.Targets),
		zap.Int("threads", cfg.Workers))

	res, runErr := pipeline.Run(cfg, logger)

	if err := writeDiagnostics(viper.GetString("log"), res.Diagnostics); err != nil {
		if runErr != nil {
			return runErr
		}
		return err
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(os.Stderr, "Wrote %d transcripts to %s (%d warnings, %d errors)\n",
		res.Extracted, cfg.TranscriptomePath, res.Warnings(), res.Errors())
	return nil
}

// writeDiagnostics writes the diagnostic log to path, or stdout when path is
// empty.
func writeDiagnostics(path string, diags []diag.Diagnostic) error {
	if path == "" {
		return diag.WriteLog(os.Stdout, diags)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create log file: %w", err)
	}
	if err := diag.WriteLog(f, diags); err != nil {
		f.Close()
		return fmt.Errorf("write log file: %w", err)
	}
	return f.Close()
}
