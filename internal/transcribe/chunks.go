package transcribe

import (
	"context"
	"fmt"

	"github.com/legendai/legendai/internal/media"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 3

// TranscribeChunks transcribes chunks with at most concurrency requests in
// flight. The first failure cancels the rest. Results come back in chunk
// order with Offset set to each chunk's start.
func TranscribeChunks(
	ctx context.Context,
	t Transcriber,
	chunks []media.ChunkInfo,
	concurrency int,
) ([]*Result, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	results := make([]*Result, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result, err := t.Transcribe(gctx, chunk.Path)
			if err != nil {
				return fmt.Errorf("chunk %d failed: %w", chunk.Index, err)
			}
			if result == nil {
				result = &Result{}
			}

			result.Offset = chunk.StartTime.Seconds()
			if result.Duration <= 0 {
				result.Duration = chunk.Duration().Seconds()
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
