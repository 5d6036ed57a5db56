//go:build linux

package filewatcher

import (
	"golang.org/x/sys/unix"

	"github.com/joeycumines/go-asyncipc/handle"
)

// setupNative installs an inotify watch on Config.Path, wired into the
// shared Loop via a handle.Handle read-readiness callback (no extra
// goroutine, per the single-threaded cooperative model). Every event
// just re-runs check: the stat diff, not inotify's event mask, is what
// decides which fields actually changed, so decoding the event payload
// buys nothing.
func setupNative(w *FileWatcher) (func(), bool) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK)
	if err != nil {
		defaultLogger.Err().Err(err).Log("inotify_init1 failed, falling back to poll-only")
		return nil, false
	}

	wd, err := unix.InotifyAddWatch(fd, w.cfg.Path, unix.IN_ALL_EVENTS)
	if err != nil {
		unix.Close(fd)
		defaultLogger.Err().Str("path", w.cfg.Path).Err(err).Log("inotify_add_watch failed, falling back to poll-only")
		return nil, false
	}

	buf := make([]byte, 64*unix.SizeofInotifyEvent)
	drain := func() {
		for {
			n, err := unix.Read(fd, buf)
			if n <= 0 || err != nil {
				return
			}
			w.check()
			if n < len(buf) {
				return
			}
		}
	}

	h, err := handle.New(w.l, handle.Config{
		Name:        w.cfg.Name + ".inotify",
		ReadFD:      fd,
		OnReadReady: drain,
	})
	if err != nil {
		unix.InotifyRmWatch(fd, uint32(wd))
		unix.Close(fd)
		return nil, false
	}
	if err := h.SetWantReadReady(true); err != nil {
		h.Close()
		return nil, false
	}

	return func() {
		unix.InotifyRmWatch(fd, uint32(wd))
		h.Close()
	}, true
}
