package asyncipcerr

import (
	"errors"

	"golang.org/x/sys/unix"
)

var (
	errEAGAIN      error = unix.EAGAIN
	errEWOULDBLOCK error = unix.EWOULDBLOCK
	errEINTR       error = unix.EINTR
)

// IsEPIPE reports whether err is (or wraps) EPIPE, the fatal write-side
// condition spec'd for Stream.do_write: set write_eof, fire on_write_eof,
// then on_write_error.
func IsEPIPE(err error) bool {
	return errors.Is(err, unix.EPIPE)
}
