// Package panichandler turns panics into log records so a misbehaving subscriber
// or background task cannot take the whole application down.
package panichandler

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/pandatales/pandatales/app/paniclogger"
)

// PanicHandler recovers a panic without extra context.
// Usage: defer panichandler.PanicHandler()
func PanicHandler() {
	if r := recover(); r != nil {
		report("unknown context", r, nil)
	}
}

// Recover recovers a panic and logs it with a stack trace.
// Usage: defer panichandler.Recover("watcher callback")
func Recover(context string) {
	if r := recover(); r != nil {
		report(context, r, nil)
	}
}

// RecoverWithCallback recovers a panic, logs it and runs callback afterwards.
func RecoverWithCallback(context string, callback func()) {
	if r := recover(); r != nil {
		report(context, r, callback)
	}
}

// SafeGo starts fn on a new goroutine. A panic inside fn is logged and swallowed.
func SafeGo(context string, fn func()) {
	go func() {
		defer RecoverWithCallback(fmt.Sprintf("goroutine: %s", context), nil)
		fn()
	}()
}

func report(context string, r any, callback func()) {
	stackTrace := string(debug.Stack())

	paniclogger.LogPanic(context, r, stackTrace)

	slog.Error("caught panic",
		slog.String("context", context),
		slog.Any("error", r),
		slog.String("stack", stackTrace),
	)

	if callback == nil {
		return
	}
	defer func() {
		if r2 := recover(); r2 != nil {
			slog.Error("panic in panic callback",
				slog.String("original_context", context),
				slog.Any("callback_error", r2),
			)
		}
	}()
	callback()
}
