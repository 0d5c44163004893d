// Package gid recovers the numeric id of the calling goroutine.
//
// Go deliberately exposes no goroutine-local storage. This package exists
// for exactly one reason: Self() must be callable with no arguments from
// arbitrary code nested arbitrarily deep inside a thread's entry function,
// just like the original implementation's global uthread_self(). The
// technique (parse the id out of the header line of a runtime.Stack dump)
// is the same one signaled by the presence of a (stub) goroutineid module
// in the reference corpus; it is a well-known, allocation-light trick with
// no unsafe or linkname dependency.
package gid

import (
	"runtime"
	"strconv"
)

// Current returns an identifier for the calling goroutine. It is stable for
// the lifetime of that goroutine and unique among currently live goroutines,
// but carries no further guarantees (ids are reused after a goroutine
// exits).
func Current() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	const prefix = "goroutine "
	if len(b) <= len(prefix) || string(b[:len(prefix)]) != prefix {
		return 0
	}
	b = b[len(prefix):]

	i := 0
	for i < len(b) && b[i] != ' ' {
		i++
	}

	id, err := strconv.ParseUint(string(b[:i]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
