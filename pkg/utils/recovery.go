package utils

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/Valbows/NewDomo-sub006/pkg/logger"
)

// RecoverFn handles a recovered panic.
type RecoverFn func(r interface{}, stack []byte)

// logPanic reports a recovered panic through the given logger, falling back
// to stderr before the logger is initialized.
func logPanic(log *zap.Logger, message string, r interface{}, stack []byte) {
	if log != nil {
		log.Error(message, zap.Any("panic", r), zap.ByteString("stack", stack))
		return
	}
	fmt.Fprintf(os.Stderr, "[PANIC] %s: %v\n%s\n", message, r, stack)
}

// SafeGo runs fn in a goroutine with panic recovery. A nil onPanic logs the
// panic and lets the process continue; long-lived components pass a handler
// that escalates instead.
func SafeGo(fn func(), onPanic RecoverFn) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				if onPanic != nil {
					onPanic(r, stack)
					return
				}
				logPanic(logger.Log, "Recovered from panic in goroutine", r, stack)
			}
		}()
		fn()
	}()
}

// RecoverWithLog is a deferred guard for operations that must not take the
// caller down with them.
func RecoverWithLog(ctx context.Context, operation string) {
	if r := recover(); r != nil {
		stack := debug.Stack()
		log := logger.FromContext(ctx)
		if log == nil {
			log = logger.Log
		}
		logPanic(log, fmt.Sprintf("Recovered from panic during %s", operation), r, stack)
	}
}

// WrapWithRecovery converts a panic in fn into a returned error.
func WrapWithRecovery(fn func() error) func() (err error) {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(logger.Log, "Recovered from panic", r, debug.Stack())
				err = fmt.Errorf("panic recovered: %v", r)
			}
		}()
		return fn()
	}
}
