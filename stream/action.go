package stream

// ReadAction is the 4-valued result an on_read handler (or a queued
// ReadItem dispatch) may return from flush_one_read:
//   - Keep: truthy, non-closure — keep the head and stop, unless the
//     buffer grew or EOF arrived, in which case flushing continues.
//   - Pop: falsy — pop the head and continue if the queue is non-empty.
//   - KeepIfData: a sentinel meaning "behave like Keep only while there
//     is buffered data; otherwise Pop" — used by default handlers.
//   - Replace: a closure result — replaces the head and continues.
type ReadAction struct {
	kind    actionKind
	replace ReadHandler
}

type actionKind int

const (
	actionKeep actionKind = iota
	actionPop
	actionKeepIfData
	actionReplace
)

// Keep returns an action that retains the current handler and stops
// flushing, unless more data arrives or EOF.
func Keep() ReadAction { return ReadAction{kind: actionKeep} }

// Pop returns an action that removes the current handler and continues
// flushing if more work remains.
func Pop() ReadAction { return ReadAction{kind: actionPop} }

// KeepIfData returns an action equivalent to Keep while buffered data
// remains, Pop otherwise.
func KeepIfData() ReadAction { return ReadAction{kind: actionKeepIfData} }

// Replace returns an action that substitutes cb as the new handler and
// continues flushing.
func Replace(cb ReadHandler) ReadAction { return ReadAction{kind: actionReplace, replace: cb} }

// ReadHandler receives the buffered raw bytes (with an encoder
// configured, the bytes not yet decoded; decoded values are reached via
// PopDecoded/DecodedQueue) and reports what should happen next.
type ReadHandler func(s *Stream, buf []byte, eof bool) ReadAction
