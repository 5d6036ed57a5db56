package notifier

import "github.com/joeycumines/go-asyncipc/asyncipcerr"

// Unspecified, NotifierIDNotUnique, and EventUnknown are surfaced
// directly from asyncipcerr; this file exists so callers of this
// package don't need to import asyncipcerr themselves for the common
// cases.
var (
	ErrEventUnknown     = asyncipcerr.ErrEventUnknown
	NewNotifierIDNotUnique = asyncipcerr.NewNotifierIDNotUnique
	NewUnspecified         = asyncipcerr.NewUnspecified
)
