package channel

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger type used for Channel's sync-path
// diagnostics (send byte counts, recv errno), matching loop.Logger's
// stumpy-backed shape.
type Logger = logiface.Logger[*stumpy.Event]

var defaultLogger = stumpy.L.New()
