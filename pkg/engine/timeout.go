package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// evalResult passes evaluation output through channels.
type evalResult struct {
	result *EvalResult
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// if the evaluation exceeds timeout. It uses a generation counter to
// discard stale results from previous evaluations.
//
// On timeout the evaluation context is cancelled; split and merge stop at
// their next checkpoint and the goroutine's result is dropped.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	timeout time.Duration,
	cancel context.CancelFunc,
) (*EvalResult, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		cancel()
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, fmt.Errorf("evaluation superseded by newer request")
		}
		return res.result, res.errors, res.err

	case <-timer.C:
		cancel()
		return nil, nil, fmt.Errorf("evaluation timed out after %s", timeout)
	}
}
