package loop

import (
	"os"
	"os/signal"
)

// SignalFunc is invoked when a watched signal is delivered.
type SignalFunc func(sig os.Signal)

// SignalAttachment identifies one watch_signal registration. Attachments
// are compared by identity, not value, so two attachments for the same
// signal with identical callbacks remain independently unwatchable (an
// attachments are always distinguished by referential identity, never by
// comparing callback values).
type SignalAttachment struct {
	sig os.Signal
	cb  SignalFunc
}

type signalState struct {
	ch          chan os.Signal
	stop        chan struct{}
	attachments []*SignalAttachment
}

// WatchSignal arms cb to run whenever sig is delivered to the process.
// The OS handler for sig is installed only on the first attachment;
// subsequent attachments for the same signal share it. Attachments fire
// in the order they were installed.
func (l *Loop) WatchSignal(sig os.Signal, cb SignalFunc) *SignalAttachment {
	att := &SignalAttachment{sig: sig, cb: cb}

	st, ok := l.signals[sig]
	if !ok {
		st = &signalState{
			ch:   make(chan os.Signal, 16),
			stop: make(chan struct{}),
		}
		signal.Notify(st.ch, sig)
		l.signals[sig] = st
		l.startSignalPump(sig, st)
	}
	st.attachments = append(st.attachments, att)
	return att
}

// UnwatchSignal removes a single attachment installed by WatchSignal. The
// OS handler for its signal is removed once the last attachment for that
// signal is gone.
func (l *Loop) UnwatchSignal(att *SignalAttachment) bool {
	st, ok := l.signals[att.sig]
	if !ok {
		return false
	}
	for i, a := range st.attachments {
		if a == att {
			st.attachments = append(st.attachments[:i], st.attachments[i+1:]...)
			if len(st.attachments) == 0 {
				signal.Stop(st.ch)
				close(st.stop)
				delete(l.signals, att.sig)
			}
			return true
		}
	}
	return false
}

// UnwatchAllSignal removes every attachment for sig, and the OS handler
// along with them. This is the "id omitted" form of unwatch_signal.
func (l *Loop) UnwatchAllSignal(sig os.Signal) bool {
	st, ok := l.signals[sig]
	if !ok {
		return false
	}
	signal.Stop(st.ch)
	close(st.stop)
	delete(l.signals, sig)
	return true
}

// startSignalPump relays OS signal delivery into the loop's pending queue
// under a mutex, since signal.Notify delivers from a runtime-managed
// goroutine outside the loop's single driving goroutine.
func (l *Loop) startSignalPump(sig os.Signal, st *signalState) {
	go func() {
		for {
			select {
			case s := <-st.ch:
				l.pendingMu.Lock()
				l.pendingSignals = append(l.pendingSignals, pendingSignal{sig: s, state: st})
				l.pendingMu.Unlock()
			case <-st.stop:
				return
			}
		}
	}()
}

type pendingSignal struct {
	sig   os.Signal
	state *signalState
}

// runSignals delivers any signals that have arrived since the last
// cycle, invoking every attachment still installed at delivery time, in
// insertion order.
func (l *Loop) runSignals() {
	l.pendingMu.Lock()
	pending := l.pendingSignals
	l.pendingSignals = nil
	l.pendingMu.Unlock()

	for _, p := range pending {
		for _, att := range append([]*SignalAttachment(nil), p.state.attachments...) {
			cb := att.cb
			sig := p.sig
			l.invokeCallback(func() { cb(sig) })
		}
	}
}
