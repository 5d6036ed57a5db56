package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
)

// fileLock is a Lock backed by the presence/absence of a plain file
// under dir, one per key. Unlike memoryLock, its state lives in the
// filesystem rather than the Go heap, so it is the Lock implementation
// that actually works across a Routine's parent/re-exec'd-child
// boundary: Semaphore.Raise (parent) and the Semaphore worker's on_recv
// handler (child) must observe the same held/released state despite
// being separate OS processes with no shared memory, coordinated
// through this external lock. A flock(2)-based lock would need the
// holding fd itself passed across the exec boundary to be releasable by
// the child; plain file existence needs no such plumbing.
type fileLock struct {
	dir string
}

// NewFileLock constructs a Lock that stores one marker file per key
// under dir. dir must already exist.
func NewFileLock(dir string) Lock {
	return &fileLock{dir: dir}
}

func (l *fileLock) path(key string) string {
	return filepath.Join(l.dir, "lock-"+key)
}

func (l *fileLock) Set(_ context.Context, key string, _ bool) (bool, error) {
	f, err := os.OpenFile(l.path(key), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, asyncipcerr.NewIOError("filelock_create", err)
	}
	defer f.Close()
	return true, nil
}

func (l *fileLock) Reset(_ context.Context, key string, pid int) error {
	err := os.Remove(l.path(key))
	if err != nil && !os.IsNotExist(err) {
		return asyncipcerr.NewIOError(fmt.Sprintf("filelock_remove(pid=%d)", pid), err)
	}
	return nil
}
