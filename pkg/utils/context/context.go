// Package context re-exports the standard context package under shorter
// names so call sites across the relay don't repeat "context.Context" at
// every function signature.
package context

import (
	"context"
	"time"
)

type (
	// T is context.Context.
	T = context.Context
	// F is context.CancelFunc.
	F = context.CancelFunc
	// C is context.CancelCauseFunc.
	C = context.CancelCauseFunc
)

var (
	// Bg is context.Background.
	Bg = context.Background
	// Cancel is context.WithCancel.
	Cancel = context.WithCancel
	// Timeout is context.WithTimeout.
	Timeout = context.WithTimeout
	// TimeoutCause is context.WithTimeoutCause.
	TimeoutCause = context.WithTimeoutCause
	// TODO is context.TODO.
	TODO = context.TODO
	// Value is context.WithValue.
	Value = context.WithValue
	// Cause is context.WithCancelCause.
	Cause = context.WithCancelCause
	// GetCause is context.Cause.
	GetCause = context.Cause
	// Canceled is context.Canceled.
	Canceled = context.Canceled
	// DeadlineExceeded is context.DeadlineExceeded.
	DeadlineExceeded = context.DeadlineExceeded
)

// Deadline returns a context bounded by d from now, alongside its cancel
// function. Broadcast fan-out and other bounded I/O boundaries use this
// instead of spelling out context.WithTimeout(context.Bg(), d) everywhere.
func Deadline(parent T, d time.Duration) (T, F) {
	return context.WithTimeout(parent, d)
}
