package loop

import (
	"sort"
	"syscall"
)

// ChildExitFunc is invoked with the exit status (raw wait status) of a
// reaped child.
type ChildExitFunc func(status int)

type childWatcher struct {
	done chan int // buffered 1; receives the wait status exactly once
	cb   ChildExitFunc
}

// WatchChild installs a reaper for pid: on exit, cb runs with the exit
// status and the watcher is released. Returns an error if pid is
// already watched.
func (l *Loop) WatchChild(pid int, cb ChildExitFunc) error {
	if _, exists := l.children[pid]; exists {
		return errNotifierIDNotUnique("child", pid)
	}
	w := &childWatcher{done: make(chan int, 1), cb: cb}
	l.children[pid] = w
	go func() {
		var status syscall.WaitStatus
		_, err := syscall.Wait4(pid, &status, 0, nil)
		if err != nil {
			w.done <- -1
			return
		}
		w.done <- int(status)
	}()
	return nil
}

// WaitChildren synchronously drains every currently-watched child, in
// ascending pid order, invoking each one's registered callback as its
// exit status arrives, then unwatching it. With pids == nil every
// watched child is drained; otherwise only the given subset is.
func (l *Loop) WaitChildren(pids []int) {
	var target []int
	if pids == nil {
		for p := range l.children {
			target = append(target, p)
		}
	} else {
		target = append([]int(nil), pids...)
	}
	sort.Ints(target)

	for _, p := range target {
		w, ok := l.children[p]
		if !ok {
			continue
		}
		status := <-w.done
		delete(l.children, p)
		if w.cb != nil {
			w.cb(status)
		}
	}
}

// runChildExits delivers any child-exit notifications that have already
// arrived, without blocking. Called once per Once() cycle.
func (l *Loop) runChildExits() {
	for pid, w := range l.children {
		select {
		case status := <-w.done:
			delete(l.children, pid)
			cb := w.cb
			l.invokeCallback(func() {
				if cb != nil {
					cb(status)
				}
			})
		default:
		}
	}
}
