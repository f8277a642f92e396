package translate

import (
	"context"
	"fmt"
	"io"
	"sort"

	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 3

// sends one API request for a batch of items
type batchFunc func(ctx context.Context, items []TranslationItem) ([]TranslationResult, error)

func splitBatches(items []TranslationItem, batchSize int) [][]TranslationItem {
	var batches [][]TranslationItem
	for i := 0; i < len(items); i += batchSize {
		end := min(i+batchSize, len(items))
		batches = append(batches, items[i:end])
	}
	return batches
}

// translateBatches splits items into batches of batchSize. Workers (up to
// concurrency) pull batches from a shared queue; the first failure cancels
// the rest. Results are sorted by item index.
func translateBatches(
	ctx context.Context,
	items []TranslationItem,
	batchSize int,
	concurrency int,
	translate batchFunc,
) ([]TranslationResult, error) {
	if len(items) == 0 {
		return []TranslationResult{}, nil
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	batches := splitBatches(items, batchSize)
	if len(batches) == 1 {
		return translate(ctx, batches[0])
	}

	batchResults := make([][]TranslationResult, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, batch := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results, err := translate(gctx, batch)
			if err != nil {
				return fmt.Errorf("batch %d failed: %w", i, err)
			}
			batchResults[i] = results
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var allResults []TranslationResult
	for _, results := range batchResults {
		allResults = append(allResults, results...)
	}

	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].Index < allResults[j].Index
	})

	return allResults, nil
}

// Run translates items with the translator's own worker pool when it has
// one and sequentially otherwise.
func Run(
	ctx context.Context,
	tr Translator,
	items []TranslationItem,
	concurrency int,
) ([]TranslationResult, error) {
	if ct, ok := tr.(ConcurrentTranslator); ok {
		return ct.TranslateWithConcurrency(ctx, items, concurrency)
	}
	return tr.Translate(ctx, items)
}

// Close releases the client held by tr, if any. Translators are built per
// run, so callers close them when the run ends.
func Close(tr Translator) error {
	if c, ok := tr.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
