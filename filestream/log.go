package filestream

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

type Logger = logiface.Logger[*stumpy.Event]

var defaultLogger = stumpy.L.New()
