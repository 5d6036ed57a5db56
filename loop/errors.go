package loop

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
)

// Standard errors returned by Loop operations.
var (
	// ErrAlreadyRunning is returned by Run/RunAsync when the Loop is already
	// being driven by another call.
	ErrAlreadyRunning = errors.New("loop: already running")

	// ErrFDOutOfRange is returned when a file descriptor exceeds the range
	// this Loop's poller can track.
	ErrFDOutOfRange = errors.New("loop: fd out of range")

	// ErrFDAlreadyWatched is returned when a direction is already watched
	// for a given fd.
	ErrFDAlreadyWatched = errors.New("loop: fd direction already watched")

	// ErrFDNotWatched is returned when unwatching a direction that was
	// never registered.
	ErrFDNotWatched = errors.New("loop: fd direction not watched")

	// ErrClosed is returned by any operation attempted on a closed Loop.
	ErrClosed = errors.New("loop: closed")

	// ErrDuplicateTimerID is returned by WatchTime when id is already in use.
	ErrDuplicateTimerID = errors.New("loop: timer id already in use")
)

func (l *Loop) newErrDuplicateTimer(id uint64) error {
	return errors.Wrapf(ErrDuplicateTimerID, "id=%d", id)
}

func errNotifierIDNotUnique(kind string, id int) error {
	return asyncipcerr.NewNotifierIDNotUnique(kind, strconv.Itoa(id))
}
