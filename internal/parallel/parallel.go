// Package parallel provides row-parallel execution helpers for host kernels.
package parallel

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
	LockThreads  bool // Pin each worker goroutine to its own OS thread.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 16, // Rows per goroutine.
	}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		// Sequential fallback.
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var (
		wg        sync.WaitGroup
		panicOnce sync.Once
		panicked  any
	)
	for start, end := range chunks(n, cfg) {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicOnce.Do(func() { panicked = r })
				}
			}()
			if cfg.LockThreads {
				runtime.LockOSThread()
				defer runtime.UnlockOSThread()
			}
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()

	// Re-raise a worker panic on the calling goroutine.
	if panicked != nil {
		panic(panicked)
	}
}

// ForChunks executes f over consecutive [start, end) chunks covering
// [0, n) and returns the first error. Chunks not yet started when a chunk
// fails are skipped. A panic in a worker is returned as its error: an error
// value as is, any other value wrapped in a PanicError.
func ForChunks(n int, f func(start, end int) error, cfg Config) error {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		if n == 0 {
			return nil
		}
		return f(0, n)
	}

	var g errgroup.Group
	g.SetLimit(max(cfg.NumWorkers, 1))

	var mu sync.Mutex
	var failed bool
	for start, end := range chunks(n, cfg) {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = asError(r)
					mu.Lock()
					failed = true
					mu.Unlock()
				}
			}()
			mu.Lock()
			skip := failed
			mu.Unlock()
			if skip {
				return nil
			}
			if cfg.LockThreads {
				runtime.LockOSThread()
				defer runtime.UnlockOSThread()
			}
			if err := f(start, end); err != nil {
				mu.Lock()
				failed = true
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// PanicError carries a non-error value recovered from a panicking worker.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("panic in parallel worker: %v", e.Value)
}

func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return PanicError{Value: r}
}

// chunks yields the [start, end) ranges used to split n items.
func chunks(n int, cfg Config) func(yield func(int, int) bool) {
	chunkSize := max((n+cfg.NumWorkers-1)/max(cfg.NumWorkers, 1), cfg.MinChunkSize, 1)
	return func(yield func(int, int) bool) {
		for start := 0; start < n; start += chunkSize {
			if !yield(start, min(start+chunkSize, n)) {
				return
			}
		}
	}
}
