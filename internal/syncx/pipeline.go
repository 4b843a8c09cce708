package syncx

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

const (
	// DefaultPrefetch is the default bound on in-flight fetches.
	DefaultPrefetch = 4

	// DefaultPageSize is the enumeration page size used by the pipeline.
	DefaultPageSize = 20
)

// Result is one pipeline output. Exactly one of Bytes or Err is meaningful:
// a fetch failure (common.ErrNotFound, transport trouble) is delivered
// in-line at the entry's position instead of aborting the stream, and the
// consumer decides whether to skip, retry or surface the gap.
type Result struct {
	Entry Entry
	Bytes []byte
	Err   error
}

// Pipeline walks a Source's listing and fetches full item bodies, keeping
// at most Prefetch fetches in flight ahead of the consumer while yielding
// results in the original entry order.
type Pipeline struct {
	fetcher  Fetcher
	prefetch int64
	pageSize int
}

// NewPipeline builds a pipeline over fetcher. prefetch <= 0 selects
// DefaultPrefetch.
func NewPipeline(fetcher Fetcher, prefetch int) *Pipeline {
	if prefetch <= 0 {
		prefetch = DefaultPrefetch
	}
	return &Pipeline{fetcher: fetcher, prefetch: int64(prefetch), pageSize: DefaultPageSize}
}

// Run starts enumerating src and returns the ordered result stream. The
// channel is closed when the stream is exhausted, when enumeration fails
// (the failure is delivered as a final Result), or when ctx is cancelled.
// On cancellation no new fetches are issued; fetches already in flight
// finish and are discarded.
func (p *Pipeline) Run(ctx context.Context, src Source) <-chan Result {
	out := make(chan Result)

	// pending preserves entry order: the producer appends one slot per
	// entry, each fetch goroutine fills its own slot, and the drain loop
	// waits on slots strictly in order.
	pending := make(chan chan Result, p.prefetch)
	sem := semaphore.NewWeighted(p.prefetch)

	go p.produce(ctx, src, pending, sem)

	go func() {
		defer close(out)
		for slot := range pending {
			var r Result
			select {
			case r = <-slot:
			case <-ctx.Done():
				return
			}
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (p *Pipeline) produce(ctx context.Context, src Source, pending chan chan Result, sem *semaphore.Weighted) {
	defer close(pending)

	cursor := Cursor("")
	for {
		page, err := src.NextPage(ctx, cursor, p.pageSize)
		if err != nil {
			slot := make(chan Result, 1)
			slot <- Result{Err: fmt.Errorf("enumerating: %w", err)}
			select {
			case pending <- slot:
			case <-ctx.Done():
			}
			return
		}

		// Terminal condition: empty page, unchanged cursor.
		if len(page.Entries) == 0 {
			return
		}

		for _, e := range page.Entries {
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			slot := make(chan Result, 1)
			select {
			case pending <- slot:
			case <-ctx.Done():
				sem.Release(1)
				return
			}
			go func(e Entry, slot chan<- Result) {
				defer sem.Release(1)
				b, err := p.fetcher.FetchItem(ctx, e.UserID, e.Signature)
				slot <- Result{Entry: e, Bytes: b, Err: err}
			}(e, slot)
		}

		if page.Next == cursor {
			return
		}
		cursor = page.Next
	}
}
