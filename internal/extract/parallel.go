package extract

import (
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/inodb/txome/internal/diag"
	"github.com/inodb/txome/internal/transcript"
)

// WorkItem holds a transcript ready for extraction.
type WorkItem struct {
	Seq        int
	Transcript *transcript.Transcript
}

// WorkResult holds the extracted sequence for a single transcript.
type WorkResult struct {
	Seq        int
	Transcript *transcript.Transcript
	Sequence   []byte
	Err        error
	Diags      *diag.Batch // diagnostics raised while extracting this transcript
}

// Extractor runs Extract over many transcripts with a pool of workers.
type Extractor struct {
	source  SequenceSource
	workers int
	logger  *zap.Logger
}

// NewExtractor creates an extractor reading from source. If workers is 0,
// runtime.NumCPU() is used.
func NewExtractor(source SequenceSource, workers int) *Extractor {
	return &Extractor{
		source:  source,
		workers: workers,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for progress messages.
func (x *Extractor) SetLogger(l *zap.Logger) {
	x.logger = l
}

// ParallelExtract extracts work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
func (x *Extractor) ParallelExtract(items <-chan WorkItem) <-chan WorkResult {
	workers := x.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for item := range items {
				seq, err := Extract(item.Transcript, x.source)
				var diags diag.Batch
				if err != nil {
					diags.Error(diag.KindLookup, item.Transcript.ID, "",
						"cannot extract sequence: %v; excluded", err)
				}
				results <- WorkResult{
					Seq:        item.Seq,
					Transcript: item.Transcript,
					Sequence:   seq,
					Err:        err,
					Diags:      &diags,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// ExtractAll extracts every transcript and calls fn with each successful
// result in input order. Each result's diagnostics are merged into dc in the
// same order, so a transcript that fails extraction is reported as a Lookup
// error and skipped. An error returned by fn stops the run.
func (x *Extractor) ExtractAll(transcripts []*transcript.Transcript, dc *diag.Collector, fn func(t *transcript.Transcript, seq []byte) error) (extracted, failed int, err error) {
	items := make(chan WorkItem, 2*max(x.workers, 1))
	go func() {
		defer close(items)
		for i, t := range transcripts {
			items <- WorkItem{Seq: i, Transcript: t}
		}
	}()

	err = OrderedCollect(x.ParallelExtract(items), func(r WorkResult) error {
		dc.Merge(r.Diags)
		if r.Err != nil {
			failed++
			return nil
		}
		extracted++
		return fn(r.Transcript, r.Sequence)
	})
	if err != nil {
		return extracted, failed, err
	}

	x.logger.Info("extracted transcript sequences",
		zap.Int("extracted", extracted),
		zap.Int("failed", failed))

	return extracted, failed, nil
}
