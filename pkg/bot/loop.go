package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// runLoop calls fn until ctx is cancelled, waiting interval after a clean
// iteration and errorDelay after a failed or panicking one.
func (b *Bot) runLoop(ctx context.Context, name string, interval, errorDelay time.Duration, fn func(context.Context) error) error {
	logger := b.logger.WithField("loop", name)
	logger.Info("Loop started")

	for {
		delay := interval
		if err := safeCall(ctx, fn); err != nil {
			if ctx.Err() != nil {
				break
			}
			b.metrics.LoopErrors.WithLabelValues(name).Inc()
			logger.WithError(err).WithField("retry_in", errorDelay.String()).Error("Loop iteration failed")
			delay = errorDelay
		}
		if !sleep(ctx, delay) {
			break
		}
	}

	logger.Info("Loop stopped")
	return nil
}

func safeCall(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx)
}
