package utils

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang-news-slate/pkg/logger"
)

// GoSafe runs fn in a new goroutine and logs any recovered panic to log.
func GoSafe(log *logger.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Recovered panic in goroutine",
					logger.Field("panic", r),
					logger.StringField("stack", string(debug.Stack())),
				)
			}
		}()
		fn()
	}()
}

// Recover converts a panic in the current goroutine into an error stored in errp.
func Recover(errp *error) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("panic: %v", r)
	}
}

// ShouldContinue reports whether ctx is still live, logging when it is not.
func ShouldContinue(ctx context.Context, log *logger.Logger) bool {
	select {
	case <-ctx.Done():
		log.Warn("Context done, stopping work", logger.ErrorField(ctx.Err()))
		return false
	default:
		return true
	}
}
