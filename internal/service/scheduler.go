package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/internal/translator"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize  = 10
	DefaultMaxWorkers = 5
)

// Batch is a contiguous run of lines; Offset is the position of its first line
// in the full sequence.
type Batch struct {
	Offset int
	Lines  []subtitle.Line
}

// Texts returns the content of every line in the batch.
func (b Batch) Texts() []string {
	texts := make([]string, len(b.Lines))
	for i, line := range b.Lines {
		texts[i] = line.Text
	}
	return texts
}

// Partition splits lines into ordered batches of at most size lines.
// A non-positive size falls back to DefaultBatchSize.
func Partition(lines []subtitle.Line, size int) []Batch {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([]Batch, 0, (len(lines)+size-1)/size)
	for offset := 0; offset < len(lines); offset += size {
		end := min(offset+size, len(lines))
		batches = append(batches, Batch{Offset: offset, Lines: lines[offset:end]})
	}
	return batches
}

// Scheduler translates a subtitle sequence in parallel batches.
type Scheduler struct {
	Translator translator.BatchTranslator
	BatchSize  int
	MaxWorkers int
}

type batchResult struct {
	batch        Batch
	translations []string
}

// Run translates lines and returns bilingual copies in source order. progress, when
// set, receives the completed percentage after every batch; calls are serialized
// and never decrease. A cancelled ctx stops further dispatch and yields
// ErrCancelled.
func (s *Scheduler) Run(ctx context.Context, lines []subtitle.Line, progress func(int)) ([]subtitle.Line, error) {
	if len(lines) == 0 {
		return []subtitle.Line{}, nil
	}

	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	workers := s.MaxWorkers
	if workers <= 0 {
		workers = DefaultMaxWorkers
	}

	batches := Partition(lines, batchSize)
	total := len(lines)
	log.Info("Translating %d lines in %d batches with %d workers", total, len(batches), workers)

	var (
		mu        sync.Mutex
		completed int
		results   = make([]batchResult, 0, len(batches))
	)

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			translations := fitLength(s.Translator.TranslateBatch(ctx, batch.Texts()), len(batch.Lines))

			mu.Lock()
			defer mu.Unlock()
			results = append(results, batchResult{batch: batch, translations: translations})
			completed += len(batch.Lines)
			log.Debug("Batch at offset %d done (%d/%d lines)", batch.Offset, completed, total)
			if progress != nil {
				progress(completed * 100 / total)
			}
			return nil
		})
	}
	// batches never fail; translation errors become placeholders
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].batch.Offset < results[j].batch.Offset
	})

	merged := make([]subtitle.Line, 0, total)
	for _, res := range results {
		for i, line := range res.batch.Lines {
			merged = append(merged, line.WithTranslation(res.translations[i]))
		}
	}
	return merged, nil
}

// fitLength guards against translators that break the length contract.
func fitLength(translations []string, n int) []string {
	if len(translations) == n {
		return translations
	}
	log.Warn("Translator returned %d lines for a batch of %d", len(translations), n)
	fitted := make([]string, n)
	for i := range fitted {
		if i < len(translations) {
			fitted[i] = translations[i]
			continue
		}
		fitted[i] = translator.MissingLine(i + 1)
	}
	return fitted
}
