package pool

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger matches loop.Logger's stumpy-backed shape.
type Logger = logiface.Logger[*stumpy.Event]

var defaultLogger = stumpy.L.New()
