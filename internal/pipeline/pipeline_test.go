package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/txome/internal/diag"
	"github.com/inodb/txome/internal/duckdb"
	"github.com/inodb/txome/internal/genome"
)

const testGFF3 = `##gff-version 3
chr1	src	gene	1	20	.	+	.	ID=g1
chr1	src	mRNA	1	20	.	+	.	ID=tx1;Parent=g1
chr1	src	exon	1	3	.	+	.	ID=ex1;Parent=tx1
chr1	src	exon	5	8	.	+	.	ID=ex2;Parent=tx1
chr1	src	gene	9	20	.	-	.	ID=g2
chr1	src	mRNA	9	20	.	-	.	ID=tx2;Parent=g2
chr1	src	exon	14	16	.	-	.	ID=ex3;Parent=tx2
chr1	src	exon	18	20	.	-	.	ID=ex4;Parent=tx2
chr2	src	gene	1	10	.	+	.	ID=g3
chr2	src	mRNA	1	10	.	+	.	ID=tx3;Parent=g3
chr2	src	exon	2	4	.	+	.	ID=ex5;Parent=tx3
`

const testGenome = `>chr1
AAACCCGGGTTTAAACCCGG
>chr2
GGTTAACCAA
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(t *testing.T, gff string) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.AnnotationPath = writeFile(t, dir, "test.gff3", gff)
	cfg.GenomePath = writeFile(t, dir, "genome.fa", testGenome)
	cfg.TranscriptomePath = filepath.Join(dir, "trans.fa")
	cfg.GeneMapPath = filepath.Join(dir, "genemap.tsv")
	cfg.Workers = 2
	return cfg
}

func readTranscriptome(t *testing.T, path string) *genome.Genome {
	t.Helper()
	g, err := genome.LoadFile(path, nil)
	require.NoError(t, err)
	return g
}

func sequence(t *testing.T, g *genome.Genome, id string) string {
	t.Helper()
	n, ok := g.Len(id)
	require.True(t, ok, "transcript %s missing", id)
	s, err := g.Fetch(id, 1, int64(n))
	require.NoError(t, err)
	return string(s)
}

func TestRun_MinimalExtraction(t *testing.T) {
	cfg := testConfig(t, testGFF3)

	res, err := Run(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, 11, res.Features)
	assert.Equal(t, 2, res.Sequences)
	assert.Equal(t, 3, res.Transcripts)
	assert.Equal(t, 3, res.Extracted)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 0, res.Errors())

	tx := readTranscriptome(t, cfg.TranscriptomePath)
	assert.Equal(t, []string{"tx1", "tx2", "tx3"}, tx.Names())
	assert.Equal(t, "AAACCGG", sequence(t, tx, "tx1"))
	assert.Equal(t, "CCGGTT", sequence(t, tx, "tx2"))
	assert.Equal(t, "GTT", sequence(t, tx, "tx3"))

	gm, err := os.ReadFile(cfg.GeneMapPath)
	require.NoError(t, err)
	assert.Equal(t, "tx1\tg1\ntx2\tg2\ntx3\tg3\n", string(gm))
}

func TestRun_ShortExonsAreWarnings(t *testing.T) {
	cfg := testConfig(t, testGFF3)

	res, err := Run(cfg, nil)
	require.NoError(t, err)

	// ex1, ex3, ex4 and ex5 are three bases long.
	var short int
	for _, d := range res.Diagnostics {
		if d.Kind == diag.KindShortExon {
			short++
			assert.Equal(t, diag.Warning, d.Severity)
		}
	}
	assert.Equal(t, 4, short)
	assert.Equal(t, 4, res.Warnings())
	assert.Equal(t, 12, res.Lines)

	cfg = testConfig(t, testGFF3)
	cfg.ShortExon = 0
	res, err = Run(cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, diagsOfKind(res, diag.KindShortExon))
	assert.Equal(t, 0, res.Warnings())
}

func TestRun_ExonPastChromosomeEnd(t *testing.T) {
	gff := testGFF3 + "chr2\tsrc\texon\t8\t12\t.\t+\t.\tID=ex6;Parent=tx4;gene_id=g4\n"
	cfg := testConfig(t, gff)

	res, err := Run(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Transcripts)
	assert.Equal(t, 3, res.Extracted)
	assert.Equal(t, 1, res.Failed)

	var lookups []diag.Diagnostic
	for _, d := range res.Diagnostics {
		if d.Kind == diag.KindLookup {
			lookups = append(lookups, d)
		}
	}
	require.Len(t, lookups, 1)
	assert.Equal(t, "tx4", lookups[0].TranscriptID)
	assert.Contains(t, lookups[0].Message, "chr2:8-12")

	tx := readTranscriptome(t, cfg.TranscriptomePath)
	assert.False(t, tx.Has("tx4"))
	assert.Equal(t, "GTT", sequence(t, tx, "tx3"))

	gm, err := os.ReadFile(cfg.GeneMapPath)
	require.NoError(t, err)
	assert.NotContains(t, string(gm), "tx4")
}

func TestRun_AbsurdExonEnd(t *testing.T) {
	gff := testGFF3 +
		"chr2\tsrc\texon\t1\t1000000000000000\t.\t+\t.\tID=ex7;Parent=txBig;gene_id=g5\n" +
		"chr1\tsrc\texon\t1\t30000000000\t.\t-\t.\tID=ex8;Parent=txHuge;gene_id=g6\n"
	cfg := testConfig(t, gff)
	cfg.Workers = 4

	res, err := Run(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Transcripts)
	assert.Equal(t, 3, res.Extracted)
	assert.Equal(t, 2, res.Failed)

	lookups := diagsOfKind(res, diag.KindLookup)
	require.Len(t, lookups, 2)
	assert.Equal(t, "txBig", lookups[0].TranscriptID)
	assert.Equal(t, "txHuge", lookups[1].TranscriptID)

	tx := readTranscriptome(t, cfg.TranscriptomePath)
	assert.Equal(t, []string{"tx1", "tx2", "tx3"}, tx.Names())
	assert.Equal(t, "AAACCGG", sequence(t, tx, "tx1"))
	assert.Equal(t, "CCGGTT", sequence(t, tx, "tx2"))
	assert.Equal(t, "GTT", sequence(t, tx, "tx3"))
}

func TestRun_MixedStrands(t *testing.T) {
	gff := "chr1\tsrc\texon\t1\t5\t.\t+\t.\tParent=T1;gene_id=G1\n" +
		"chr1\tsrc\texon\t11\t15\t.\t-\t.\tParent=T1;gene_id=G1\n" +
		"chr1\tsrc\texon\t1\t5\t.\t-\t.\tParent=T2;gene_id=G2\n"
	cfg := testConfig(t, gff)

	res, err := Run(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Extracted)

	errs := diagsOfKind(res, diag.KindConsistency)
	require.Len(t, errs, 1)
	assert.Equal(t, "T1", errs[0].TranscriptID)

	tx := readTranscriptome(t, cfg.TranscriptomePath)
	assert.False(t, tx.Has("T1"))
	// Reverse complement of AAACC.
	assert.Equal(t, "GGTTT", sequence(t, tx, "T2"))
}

func TestRun_StrandFlip(t *testing.T) {
	fwd := "chr1\tsrc\texon\t1\t5\t.\t+\t.\tParent=T1;gene_id=G\n" +
		"chr1\tsrc\texon\t11\t15\t.\t+\t.\tParent=T1;gene_id=G\n"
	rev := strings.ReplaceAll(fwd, "\t+\t", "\t-\t")

	cfg := testConfig(t, fwd)
	_, err := Run(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "AAACCTTAAA", sequence(t, readTranscriptome(t, cfg.TranscriptomePath), "T1"))

	cfg = testConfig(t, rev)
	_, err = Run(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "TTTAAGGTTT", sequence(t, readTranscriptome(t, cfg.TranscriptomePath), "T1"))
}

func TestRun_MalformedLinesAreSkipped(t *testing.T) {
	gff := testGFF3 +
		"chr1\tsrc\texon\tnotanumber\t5\t.\t+\t.\tParent=tx9\n" +
		"chr1\tsrc\texon\t5\n"
	cfg := testConfig(t, gff)

	res, err := Run(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Extracted)
	assert.Len(t, diagsOfKind(res, diag.KindFormat), 2)
}

func TestRun_FatalErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
		op     string
	}{
		{
			name:   "missing genome",
			mutate: func(cfg *Config) { cfg.GenomePath = filepath.Join(t.TempDir(), "nope.fa") },
			op:     "read genome",
		},
		{
			name:   "missing annotation",
			mutate: func(cfg *Config) { cfg.AnnotationPath = filepath.Join(t.TempDir(), "nope.gff3") },
			op:     "read annotation",
		},
		{
			name:   "unwritable transcriptome",
			mutate: func(cfg *Config) { cfg.TranscriptomePath = filepath.Join(t.TempDir(), "no", "such", "dir.fa") },
			op:     "create transcriptome",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, testGFF3)
			tt.mutate(&cfg)

			res, err := Run(cfg, nil)
			require.Error(t, err)

			var fatal *FatalIOError
			require.True(t, errors.As(err, &fatal))
			assert.Equal(t, tt.op, fatal.Op)

			require.NotNil(t, res)
			assert.Len(t, diagsOfKind(res, diag.KindFatal), 1)
		})
	}
}

func TestRun_NoTranscriptsIsFatal(t *testing.T) {
	cfg := testConfig(t, "##gff-version 3\nchr1\tsrc\tgene\t1\t20\t.\t+\t.\tID=g1\n")

	_, err := Run(cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoTranscripts)

	var fatal *FatalIOError
	assert.True(t, errors.As(err, &fatal))
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := Run(Config{}, nil)
	require.Error(t, err)

	var fatal *FatalIOError
	assert.False(t, errors.As(err, &fatal))
}

func TestRun_RegionsAndHeaderGene(t *testing.T) {
	cfg := testConfig(t, testGFF3)
	cfg.RegionsPath = filepath.Join(filepath.Dir(cfg.TranscriptomePath), "regions.tsv")
	cfg.HeaderGene = true

	_, err := Run(cfg, nil)
	require.NoError(t, err)

	regions, err := os.ReadFile(cfg.RegionsPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(regions)), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "chromosome\tstart\tend\tstrand\ttranscript_id", lines[0])
	assert.Equal(t, "chr1\t14\t16\t-\ttx2", lines[3])

	fa, err := os.ReadFile(cfg.TranscriptomePath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(fa), ">tx1 gene=g1\n"))
}

func TestRun_DuckDBExport(t *testing.T) {
	cfg := testConfig(t, testGFF3)
	cfg.DBPath = filepath.Join(filepath.Dir(cfg.TranscriptomePath), "run.duckdb")

	res, err := Run(cfg, nil)
	require.NoError(t, err)

	store, err := duckdb.Open(cfg.DBPath)
	require.NoError(t, err)
	defer store.Close()

	var n int
	require.NoError(t, store.DB().QueryRow(`SELECT count(*) FROM transcripts WHERE extracted`).Scan(&n))
	assert.Equal(t, 3, n)
	require.NoError(t, store.DB().QueryRow(`SELECT count(*) FROM exons`).Scan(&n))
	assert.Equal(t, 5, n)
	require.NoError(t, store.DB().QueryRow(`SELECT count(*) FROM diagnostics`).Scan(&n))
	assert.Equal(t, len(res.Diagnostics), n)
	require.NoError(t, store.DB().QueryRow(`SELECT count(*) FROM inputs`).Scan(&n))
	assert.Equal(t, 4, n)
}

func diagsOfKind(res *Result, kind diag.Kind) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range res.Diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
