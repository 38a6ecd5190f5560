// Package parallel provides chunked parallel loops for CPU kernels.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 16,
	}
}

// Sequential returns a config that always runs on the calling goroutine.
func Sequential() Config {
	return Config{}
}

// ForRows runs f over row ranges [start, end) of a rows×cols problem.
// Problems below 2*MinChunkSize*64 elements, or with fewer than two rows,
// run inline. Larger ones are split into NumWorkers contiguous row ranges
// of near-equal size.
func ForRows(rows, cols int, f func(start, end int), cfg Config) {
	work := rows * max(cols, 1)
	if !cfg.Enabled || cfg.NumWorkers < 2 || rows < 2 || work < 2*max(cfg.MinChunkSize, 1)*64 {
		f(0, rows)
		return
	}

	var wg sync.WaitGroup
	chunk := (rows + cfg.NumWorkers - 1) / cfg.NumWorkers
	for start := 0; start < rows; start += chunk {
		end := min(start+chunk, rows)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			f(s, e)
		}(start, end)
	}
	wg.Wait()
}
