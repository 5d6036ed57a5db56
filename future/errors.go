package future

import "github.com/pkg/errors"

var (
	// ErrCancelled is returned by Await when the Future was cancelled
	// before settling.
	ErrCancelled = errors.New("future: cancelled")

	// ErrTimeout is returned by Await when the deadline elapses before
	// the Future settles.
	ErrTimeout = errors.New("future: await timeout")
)
