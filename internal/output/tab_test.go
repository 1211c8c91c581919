package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/txome/internal/annotation"
	"github.com/inodb/txome/internal/transcript"
)

func sampleTranscripts() []*transcript.Transcript {
	return []*transcript.Transcript{
		{
			ID: "tx1", GeneID: "gene1", SeqID: "chr1", Strand: annotation.Forward,
			Exons: []*annotation.Feature{{Start: 1, End: 3}, {Start: 5, End: 8}},
		},
		{
			ID: "tx2", GeneID: "", SeqID: "chr1", Strand: annotation.Reverse,
			Exons: []*annotation.Feature{{Start: 14, End: 16}, {Start: 18, End: 20}},
		},
		{
			ID: "tx3", GeneID: "gene3", SeqID: "chr2", Strand: annotation.Unknown,
			Exons: []*annotation.Feature{{Start: 2, End: 4}},
		},
	}
}

func TestGeneMapWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewGeneMapWriter(&buf)
	for _, tx := range sampleTranscripts() {
		require.NoError(t, w.Write(tx))
	}
	require.NoError(t, w.Flush())

	assert.Equal(t, "tx1\tgene1\ntx2\t\ntx3\tgene3\n", buf.String())
}

func TestRegionWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewRegionWriter(&buf)
	require.NoError(t, w.WriteHeader())
	for _, tx := range sampleTranscripts() {
		require.NoError(t, w.Write(tx))
	}
	require.NoError(t, w.Flush())

	want := "chromosome\tstart\tend\tstrand\ttranscript_id\n" +
		"chr1\t1\t3\t+\ttx1\n" +
		"chr1\t5\t8\t+\ttx1\n" +
		"chr1\t14\t16\t-\ttx2\n" +
		"chr1\t18\t20\t-\ttx2\n" +
		"chr2\t2\t4\t.\ttx3\n"
	assert.Equal(t, want, buf.String())
}

func TestTabWriter_NothingBeforeFlush(t *testing.T) {
	var buf bytes.Buffer
	w := NewGeneMapWriter(&buf)
	require.NoError(t, w.Write(sampleTranscripts()[0]))
	assert.Empty(t, buf.String())
	require.NoError(t, w.Flush())
	assert.NotEmpty(t, buf.String())
}
