// Package batch splits a segment collection into ordered batches for
// consumption by size-limited external services (correction, translation),
// dispatches collaborator calls concurrently, and merges the per-batch
// results back in original order.
//
// The windowing contract: batches are contiguous and exhaustive —
// concatenating the core portions of all batches in order reproduces the
// input sequence exactly, with no gaps, duplicates, or reordering. Context
// segments around each core are read-only hints for the collaborator and are
// never re-emitted.
package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// Window splits col into batches of at most batchSize core segments, each
// carrying up to contextWindow leading and trailing context segments.
//
// The last batch may be shorter than batchSize; it is never padded. A
// batchSize below 1 or a negative contextWindow returns a
// *segment.ConfigurationError. An empty collection yields no batches.
func Window(col *segment.Collection, batchSize, contextWindow int) ([]segment.Batch, error) {
	if batchSize <= 0 {
		return nil, &segment.ConfigurationError{
			Param:  "batch_size",
			Reason: fmt.Sprintf("must be at least 1, got %d", batchSize),
		}
	}
	if contextWindow < 0 {
		return nil, &segment.ConfigurationError{
			Param:  "context_window",
			Reason: fmt.Sprintf("must not be negative, got %d", contextWindow),
		}
	}

	segs := col.Segments
	if len(segs) == 0 {
		return nil, nil
	}

	batches := make([]segment.Batch, 0, (len(segs)+batchSize-1)/batchSize)
	for off := 0; off < len(segs); off += batchSize {
		end := min(off+batchSize, len(segs))
		leadStart := max(off-contextWindow, 0)
		trailEnd := min(end+contextWindow, len(segs))

		batches = append(batches, segment.Batch{
			Index:    len(batches),
			Offset:   off,
			Core:     segs[off:end:end],
			Leading:  segs[leadStart:off:off],
			Trailing: segs[end:trailEnd:trailEnd],
		})
	}
	return batches, nil
}

// Dispatch runs fn over every batch with at most concurrency calls in
// flight, returning the per-batch results indexed by batch order regardless
// of completion order. The first error cancels the remaining calls;
// in-flight calls are left to finish or time out via their context.
//
// A concurrency below 1 is treated as 1.
func Dispatch(ctx context.Context, batches []segment.Batch, concurrency int, fn func(context.Context, segment.Batch) ([]string, error)) ([][]string, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([][]string, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, b := range batches {
		g.Go(func() error {
			out, err := fn(gctx, b)
			if err != nil {
				return fmt.Errorf("batch %d: %w", b.Index, err)
			}
			results[b.Index] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Merge applies per-batch collaborator results back onto a copy of col.
// results[i][j] is the replacement text for the j-th core segment of
// batches[i]; context segments receive no results by contract.
//
// Any count mismatch is a *segment.AlignmentError and aborts the merge —
// silently patching a short or reordered response would corrupt downstream
// timing. Timing, speakers, confidences, and metadata are preserved; only
// text changes.
func Merge(col *segment.Collection, batches []segment.Batch, results [][]string, stage string) (*segment.Collection, error) {
	if len(results) != len(batches) {
		return nil, &segment.AlignmentError{
			Stage:  stage,
			Want:   len(batches),
			Got:    len(results),
			Reason: "batch result count mismatch",
		}
	}

	out := col.Clone()
	covered := 0
	for i, b := range batches {
		if len(results[i]) != b.Size() {
			return nil, &segment.AlignmentError{
				Stage:  stage,
				Want:   b.Size(),
				Got:    len(results[i]),
				Reason: fmt.Sprintf("segment result count mismatch in batch %d", i),
			}
		}
		if b.Offset != covered {
			return nil, &segment.AlignmentError{
				Stage:  stage,
				Reason: fmt.Sprintf("batch %d offset %d is not contiguous with previous batches (%d segments covered)", i, b.Offset, covered),
			}
		}
		for j, text := range results[i] {
			out.Segments[b.Offset+j].Text = text
		}
		covered += b.Size()
	}
	if covered != out.Len() {
		return nil, &segment.AlignmentError{
			Stage:  stage,
			Want:   out.Len(),
			Got:    covered,
			Reason: "batches do not cover the collection",
		}
	}
	return out, nil
}
