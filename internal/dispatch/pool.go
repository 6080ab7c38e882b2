// Package dispatch distributes per-image descriptor jobs across a fixed
// worker pool. A single shared atomic counter is the only coordination
// primitive: each worker claims the next unclaimed input index with a
// fetch-and-increment and writes its result into that exact slot, so the
// shared result slice needs no locking.
package dispatch

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/hyperjump/miru/internal/models"
)

// fallbackWorkers is used when the CPU count is unavailable.
const fallbackWorkers = 4

// Workers resolves a configured worker count: values above zero are used
// as-is, otherwise the CPU count (or fallbackWorkers when that reports zero).
func Workers(configured int) int {
	if configured > 0 {
		return configured
	}
	n := runtime.NumCPU()
	if n <= 0 {
		n = fallbackWorkers
	}
	return n
}

// Run executes job for every path using workers goroutines and returns one
// JobResult per input index, where result[i] corresponds to paths[i]
// regardless of which worker computed it. Per-job failures (including
// panics inside job) are recorded in the result, never retried, and never
// abort other jobs. Run blocks until every worker has finished.
func Run(paths []string, workers int, job func(path string) ([]float32, error)) []models.JobResult {
	results := make([]models.JobResult, len(paths))
	if len(paths) == 0 {
		return results
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < Workers(workers); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := next.Add(1) - 1
				if idx >= int64(len(paths)) {
					return
				}
				results[idx] = runJob(paths[idx], job)
			}
		}()
	}
	wg.Wait()
	return results
}

// runJob invokes job for one path, converting a panic into a failed result
// so a bad image cannot take down the worker.
func runJob(path string, job func(path string) ([]float32, error)) (res models.JobResult) {
	res.Path = path
	defer func() {
		if r := recover(); r != nil {
			res.OK = false
			res.Descriptor = nil
			res.Err = fmt.Errorf("descriptor job panic: %v", r)
		}
	}()

	desc, err := job(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Descriptor = desc
	res.OK = true
	return res
}
