// Package pipeline drives the chunked, parallel building-attribute runs
// shared by all three estimators: bucket features into chunks, process each
// chunk with a bounded worker pool, flush the chunk to its own CSV file, then
// concatenate every chunk CSV into the final output once the run completes.
// Chunks are processed strictly in sequence; only the buildings within a
// single chunk run concurrently, bounding peak memory to one chunk's worth
// of features and results at a time.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"

	"github.com/alitto/pond"
	"github.com/samber/lo"
)

// Row is one CSV record a worker produces for a single building.
type Row interface {
	// Header returns the CSV column names, identical for every Row of a
	// given estimator.
	Header() []string
	// Record returns the column values in Header order.
	Record() []string
}

// Options configures a pipeline run.
type Options struct {
	// ChunkSize buckets the input slice into chunks of this many buildings.
	// Defaults to 100000 if zero.
	ChunkSize int
	// Workers bounds the per-chunk worker pool. Defaults to
	// min(runtime.NumCPU()-1, 8) if zero.
	Workers int
	// OutputStem is the output path without its .csv extension; chunk files
	// are written as "<stem>_chunk_NNNN.csv" and the merged result as
	// "<stem>.csv".
	OutputStem string
	// KeepChunks, if true, leaves the per-chunk CSV files on disk after the
	// final merge instead of deleting them.
	KeepChunks bool
}

func (o Options) chunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return 100000
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	n := runtime.NumCPU() - 1
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Run processes items in chunks, calling process for each item from a pool
// of opts.workers() goroutines, flushing one CSV file per chunk, and merging
// all chunk files into opts.OutputStem+".csv" at the end. It returns the
// path to the merged CSV.
func Run[T any](ctx context.Context, items []T, opts Options, process func(context.Context, T) Row) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("no buildings to process")
	}

	chunks := lo.Chunk(items, opts.chunkSize())
	ReportMemory(fmt.Sprintf("starting run: %d buildings in %d chunks", len(items), len(chunks)))

	var chunkPaths []string
	for chunkNum, chunk := range chunks {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		rows, err := runChunk(ctx, chunk, opts.workers(), process)
		if err != nil {
			return "", fmt.Errorf("chunk %d: %w", chunkNum, err)
		}

		path := chunkPath(opts.OutputStem, chunkNum)
		if err := writeCSV(path, rows); err != nil {
			return "", fmt.Errorf("writing chunk %d: %w", chunkNum, err)
		}
		log.Printf("chunk %d: %d buildings processed, saved to %s", chunkNum, len(rows), path)
		chunkPaths = append(chunkPaths, path)

		ReportMemory(fmt.Sprintf("finished chunk %d/%d", chunkNum+1, len(chunks)))
	}

	finalPath := opts.OutputStem + ".csv"
	if err := mergeCSV(chunkPaths, finalPath); err != nil {
		return "", fmt.Errorf("merging chunk results: %w", err)
	}
	log.Printf("merged %d chunks into %s", len(chunkPaths), finalPath)

	if !opts.KeepChunks {
		for _, p := range chunkPaths {
			if err := os.Remove(p); err != nil {
				log.Printf("warning: could not delete %s: %v", p, err)
			}
		}
	}

	return finalPath, nil
}

// runChunk processes one chunk's items through a fixed-size pond pool,
// preserving input order in the returned rows regardless of completion
// order.
func runChunk[T any](ctx context.Context, chunk []T, workers int, process func(context.Context, T) Row) ([]Row, error) {
	pool := pond.New(workers, 0, pond.MinWorkers(workers), pond.Context(ctx))
	defer pool.StopAndWait()

	rows := make([]Row, len(chunk))
	var mu sync.Mutex
	var processed int

	for i, item := range chunk {
		i, item := i, item
		pool.Submit(func() {
			row := process(ctx, item)
			mu.Lock()
			rows[i] = row
			processed++
			n := processed
			mu.Unlock()
			if n%1000 == 0 {
				log.Printf("processed %d/%d buildings in current chunk", n, len(chunk))
			}
		})
	}

	return rows, nil
}

func chunkPath(stem string, chunkNum int) string {
	return fmt.Sprintf("%s_chunk_%04d.csv", stem, chunkNum)
}
