// Package workerpool partitions a file set into chunks and processes the
// chunks with bounded parallelism.
package workerpool

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docpipe/internal/logfields"
	"git.home.luguber.info/inful/docpipe/internal/recovery"
)

const (
	// DefaultThreshold is the item count at which work switches to the pool.
	DefaultThreshold = 128
	MinChunkSize     = 16
	MaxChunkSize     = 256
	chunksPerWorker  = 4
)

// Chunk is a contiguous slice of the input assigned to one task.
type Chunk[T any] struct {
	Index int
	Items []T
}

// Result is the outcome for one item.
type Result[T, R any] struct {
	Item  T
	Value R
	Err   error
	// Skipped is set for items never started because the run was canceled
	// or aborted.
	Skipped bool
}

// ChunkResult collects the item results of one chunk in item order.
type ChunkResult[T, R any] struct {
	Index   int
	Results []Result[T, R]
	Elapsed time.Duration
}

// Partition splits items into contiguous chunks of at most size items. Every
// item lands in exactly one chunk.
func Partition[T any](items []T, size int) []Chunk[T] {
	if len(items) == 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	chunks := make([]Chunk[T], 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, Chunk[T]{Index: len(chunks), Items: items[start:end]})
	}
	return chunks
}

// ChunkSize derives the chunk size for n items: about four chunks per
// worker, clamped to [MinChunkSize, MaxChunkSize].
func ChunkSize(n, workers int) int {
	if workers < 1 {
		workers = 1
	}
	per := workers * chunksPerWorker
	size := (n + per - 1) / per
	return min(max(size, MinChunkSize), MaxChunkSize)
}

// Options configure a Pool.
type Options struct {
	// Workers bounds concurrently running chunks (0 = GOMAXPROCS).
	Workers int
	// Threshold is the item count at which the pool is used (0 = DefaultThreshold).
	Threshold int
	// ChunkSize fixes the chunk size (0 = ChunkSize(n, Workers)).
	ChunkSize int
	Logger    *slog.Logger
	// OnActive is called with the number of running chunks whenever it changes.
	OnActive func(active int)
}

// Pool schedules chunk tasks.
type Pool struct {
	workers   int
	threshold int
	chunkSize int
	logger    *slog.Logger
	onActive  func(int)
	active    atomic.Int64
}

// New creates a pool.
func New(opts Options) *Pool {
	p := &Pool{
		workers:   opts.Workers,
		threshold: opts.Threshold,
		chunkSize: opts.ChunkSize,
		logger:    opts.Logger,
		onActive:  opts.OnActive,
	}
	if p.workers <= 0 {
		p.workers = runtime.GOMAXPROCS(0)
	}
	if p.threshold <= 0 {
		p.threshold = DefaultThreshold
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Workers returns the concurrency bound.
func (p *Pool) Workers() int { return p.workers }

// ShouldParallelize reports whether n items are enough to use the pool.
func (p *Pool) ShouldParallelize(n int) bool { return n >= p.threshold }

// ChunkSizeFor returns the chunk size used for n items.
func (p *Pool) ChunkSizeFor(n int) int {
	if p.chunkSize > 0 {
		return p.chunkSize
	}
	return ChunkSize(n, p.workers)
}

func (p *Pool) track(delta int64) {
	n := p.active.Add(delta)
	if p.onActive != nil {
		p.onActive(int(n))
	}
}

// Schedule runs task over every item of every chunk with at most Workers
// chunks in flight. Item errors are recorded in their Result and do not stop
// the chunk or its siblings; an abort-class error cancels the remaining work
// and is returned. Before each item the context is checked: once it is done
// the current item finishes and no further item or chunk starts. Results are
// returned in chunk order regardless of completion order.
func Schedule[T, R any](ctx context.Context, p *Pool, chunks []Chunk[T], task func(context.Context, T) (R, error)) ([]ChunkResult[T, R], error) {
	results := make([]ChunkResult[T, R], len(chunks))
	for i, ch := range chunks {
		results[i] = ChunkResult[T, R]{Index: ch.Index, Results: make([]Result[T, R], len(ch.Items))}
		for j, item := range ch.Items {
			results[i].Results[j] = Result[T, R]{Item: item, Skipped: true}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			p.track(1)
			defer p.track(-1)

			start := time.Now()
			res := &results[i]
			for j, item := range chunks[i].Items {
				if gctx.Err() != nil {
					break
				}
				v, err := task(gctx, item)
				res.Results[j] = Result[T, R]{Item: item, Value: v, Err: err}
				if err != nil && recovery.IsAbort(err) {
					res.Elapsed = time.Since(start)
					return err
				}
			}
			res.Elapsed = time.Since(start)
			p.logger.Debug("Chunk processed",
				logfields.Chunk(chunks[i].Index),
				logfields.Files(len(chunks[i].Items)),
				logfields.Duration(res.Elapsed))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// Run processes items sequentially below the threshold and through Schedule
// at or above it. Results come back flattened in input order.
func Run[T, R any](ctx context.Context, p *Pool, items []T, task func(context.Context, T) (R, error)) ([]Result[T, R], error) {
	if !p.ShouldParallelize(len(items)) {
		return runSequential(ctx, items, task)
	}
	size := p.ChunkSizeFor(len(items))
	chunks := Partition(items, size)
	p.logger.Debug("Processing in parallel",
		logfields.Files(len(items)),
		logfields.Workers(p.workers),
		slog.Int("chunks", len(chunks)),
		slog.Int("chunk_size", size))

	chunkResults, err := Schedule(ctx, p, chunks, task)
	out := make([]Result[T, R], 0, len(items))
	for _, cr := range chunkResults {
		out = append(out, cr.Results...)
	}
	return out, err
}

func runSequential[T, R any](ctx context.Context, items []T, task func(context.Context, T) (R, error)) ([]Result[T, R], error) {
	out := make([]Result[T, R], len(items))
	for i, item := range items {
		out[i] = Result[T, R]{Item: item, Skipped: true}
	}
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		v, err := task(ctx, item)
		out[i] = Result[T, R]{Item: item, Value: v, Err: err}
		if err != nil && recovery.IsAbort(err) {
			return out, err
		}
	}
	return out, nil
}
