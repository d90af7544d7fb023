package codec

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type loadOutcome int

const (
	loadSucceeded loadOutcome = iota
	loadFailed
	loadTimedOut
	// loadAbandoned means the caller gave up before the backend answered.
	loadAbandoned
)

// attemptLoad runs c.Load with a deadline. A load that outlives the deadline is
// reported as timed out and its eventual result is discarded. settled runs once
// the backend Load call has returned, before the result is delivered.
func attemptLoad(ctx context.Context, c Codec, timeout time.Duration, settled func()) (loadOutcome, error) {
	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var err error
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("%w: load panicked: %v", ErrRuntimeUnavailable, rec)
			}
			settled()
			done <- err
		}()
		err = c.Load(loadCtx)
	}()

	select {
	case err := <-done:
		if err == nil {
			return loadSucceeded, nil
		}
		return classify(ctx, loadCtx, timeout, err)
	case <-loadCtx.Done():
		return classify(ctx, loadCtx, timeout, loadCtx.Err())
	}
}

func classify(caller, loadCtx context.Context, timeout time.Duration, err error) (loadOutcome, error) {
	if caller.Err() != nil {
		return loadAbandoned, caller.Err()
	}
	if errors.Is(loadCtx.Err(), context.DeadlineExceeded) {
		return loadTimedOut, fmt.Errorf("load timed out after %s", timeout)
	}
	return loadFailed, err
}
