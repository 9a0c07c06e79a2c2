// Package chk provides the small error-checking helpers used throughout the
// relay. The idiom is:
//
//	if err = doThing(); chk.E(err) {
//	    return
//	}
//
// chk.E logs the error at error level and reports whether it was non-nil;
// chk.T does the same at trace level, for errors that are expected often
// enough on the happy path (e.g. "not found") that error-level would be
// noise; chk.D logs at debug level for the same reason at a slightly
// higher severity than trace.
package chk

import (
	"runtime"

	"meshrelay.dev/pkg/utils/log"
)

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "?"
	}
	return shortFile(file) + ":" + itoa(line)
}

func shortFile(f string) string {
	slash := -1
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '/' {
			slash = i
			break
		}
	}
	if slash == -1 {
		return f
	}
	return f[slash+1:]
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [12]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// E reports err at error level, including the call site, and returns true
// iff err is non-nil.
func E(err error) bool {
	if err == nil {
		return false
	}
	log.E.F("%s: %v", caller(2), err)
	return true
}

// T reports err at trace level and returns true iff err is non-nil.
func T(err error) bool {
	if err == nil {
		return false
	}
	log.T.F("%s: %v", caller(2), err)
	return true
}

// D reports err at debug level and returns true iff err is non-nil.
func D(err error) bool {
	if err == nil {
		return false
	}
	log.D.F("%s: %v", caller(2), err)
	return true
}
