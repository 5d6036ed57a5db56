package routine

import (
	"os"
	"strconv"
	"syscall"

	"github.com/joeycumines/go-asyncipc/channel"
	"github.com/joeycumines/go-asyncipc/loop"
)

// childConfig is the data runChild needs, captured by the closure
// process.Register stores: everything a re-exec'd child requires to
// rebuild its side of the Routine without any shared memory with the
// parent (Go's self-reexec has none, unlike a real fork — see
// package process's doc comment).
type childConfig struct {
	handlers []Handler
	returns  bool
	maxCalls int
	before   func()
	after    func()
	async    bool
}

// callChildFD returns the ExtraFiles fd for call channel i in the
// child, matching the order Routine.New appends files in.
func callChildFD(i int, returns bool) int {
	if returns {
		return 3 + i*2
	}
	return 3 + i
}

func returnChildFD(i int, _ bool) int {
	return 3 + i*2 + 1
}

// runChild is the re-exec'd child entrypoint, registered under
// "routine:<name>" by Routine.New. It dispatches to the sync or async
// variant.
func runChild(cfg childConfig) {
	if cfg.async {
		runChildAsync(cfg)
		return
	}
	runChildSync(cfg)
}

// runChildSync is the sync child entrypoint: a blocking
// recv-compute-reply loop over call channel 0, replying on every
// return channel, until the call channel closes or max_calls is
// reached.
func runChildSync(cfg childConfig) {
	l, err := loop.New()
	if err != nil {
		os.Exit(1)
	}
	defer l.Close()

	callFD := callChildFD(0, cfg.returns)
	callCh, err := channel.New(l, channel.Config{Name: "child.call.0", FD: callFD})
	if err != nil {
		os.Exit(1)
	}

	var retCh *channel.Channel
	if cfg.returns {
		retFD := returnChildFD(0, cfg.returns)
		retCh, err = channel.New(l, channel.Config{Name: "child.return.0", FD: retFD})
		if err != nil {
			os.Exit(1)
		}
	}

	if cfg.before != nil {
		cfg.before()
	}

	calls := 0
	for {
		rec, ok := callCh.RecvSync()
		if !ok {
			break
		}
		rv, err := cfg.handlers[0](rec)
		if err == nil && retCh != nil && len(rec) > 0 {
			retCh.SendSync(channel.Record{rec[0], rv})
		}
		calls++
		if cfg.maxCalls > 0 && calls >= cfg.maxCalls {
			break
		}
	}

	if cfg.after != nil {
		cfg.after()
	}
}

// runChildAsync is the async child entrypoint: a fresh nested Loop, one
// async call-channel receiver per handler (each with its own
// max_calls throttle), optional before/after hooks, a SIGTERM->Stop
// watcher, then a final blocking reap of any grandchildren once the
// loop exits.
func runChildAsync(cfg childConfig) {
	l, err := loop.New()
	if err != nil {
		os.Exit(1)
	}
	defer l.Close()

	counts := make([]int, len(cfg.handlers))

	for i, h := range cfg.handlers {
		var retCh *channel.Channel
		if cfg.returns {
			retFD := returnChildFD(i, cfg.returns)
			rc, err := channel.New(l, channel.Config{
				Name: "child.return." + strconv.Itoa(i), FD: retFD, WriteMode: channel.Async,
			})
			if err != nil {
				os.Exit(1)
			}
			retCh = rc
		}

		idx := i
		handler := h
		callFD := callChildFD(i, cfg.returns)
		_, err := channel.New(l, channel.Config{
			Name: "child.call." + strconv.Itoa(i), FD: callFD, ReadMode: channel.Async,
			OnRecv: func(rec channel.Record) {
				rv, err := handler(rec)
				if err == nil && retCh != nil && len(rec) > 0 {
					retCh.Send(channel.Record{rec[0], rv})
				}
				counts[idx]++
				if cfg.maxCalls > 0 && counts[idx] >= cfg.maxCalls {
					l.Stop()
				}
			},
			OnEOF: func() { l.Stop() },
		})
		if err != nil {
			os.Exit(1)
		}
	}

	term := l.WatchSignal(syscall.SIGTERM, func(os.Signal) { l.Stop() })
	defer l.UnwatchSignal(term)

	if cfg.before != nil {
		cfg.before()
	}
	if err := l.Run(); err != nil {
		defaultLogger.Err().Err(err).Log("routine child loop exited with error")
	}
	if cfg.after != nil {
		cfg.after()
	}

	l.WaitChildren(nil)
}
