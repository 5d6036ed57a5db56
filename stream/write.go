package stream

import "syscall"

func (s *Stream) doWrite() {
	for len(s.writeQueue) > 0 {
		head := s.writeQueue[0]

		if closer, ok := head.Data.(WriteCloser); ok {
			chunk, more := closer()
			if !more {
				if head.OnFlush != nil {
					head.OnFlush()
				}
				s.popWrite()
				continue
			}
			// the chunk goes ahead of the closure, which stays queued to
			// be called again once the chunk is written.
			head = &WriteItem{Data: chunk}
			s.writeQueue = append([]*WriteItem{head}, s.writeQueue...)
		}

		buf, ok := head.Data.([]byte)
		if !ok {
			// a Future payload not yet substituted with bytes: caller must
			// resolve it via settleFutureWrite before doWrite can proceed.
			if !s.settleFutureWrite(head) {
				return
			}
			buf, _ = head.Data.([]byte)
		}

		s.reduceWriteQueue()
		buf, _ = head.Data.([]byte)

		n, err := syscall.Write(s.h.WriteFD(), buf)
		if n > 0 {
			head.Data = buf[n:]
			head.written += n
			if head.OnWrite != nil {
				head.OnWrite(n)
			}
		}

		if err != nil {
			if isNonFatalWrite(err) {
				if s.writeable {
					s.writeable = false
					if s.onWriteableStop != nil {
						s.onWriteableStop()
					}
				}
				return
			}
			if isEPIPE(err) {
				s.writeEOF = true
				if s.onWriteEOF != nil {
					s.onWriteEOF()
				}
				if head.OnError != nil {
					head.OnError(err)
				} else if s.onWriteError != nil {
					s.onWriteError(err)
				} else {
					s.CloseNow()
				}
				return
			}
			if head.OnError != nil {
				head.OnError(err)
			} else if s.onWriteError != nil {
				s.onWriteError(err)
			}
			s.popWrite()
			continue
		}

		if len(buf) == 0 {
			if head.OnFlush != nil {
				head.OnFlush()
			}
			s.popWrite()
		}

		if !s.writeAll {
			break
		}
	}

	if len(s.writeQueue) == 0 {
		s.SetWantWritereadyForWrite(false)
		if s.onOutgoingEmpty != nil {
			s.onOutgoingEmpty()
		}
		if s.streamClosing {
			s.h.Close()
		}
	}

	if !s.writeable {
		s.writeable = true
		if s.onWriteableStart != nil {
			s.onWriteableStart()
		}
	}
}

func (s *Stream) popWrite() {
	if len(s.writeQueue) == 0 {
		return
	}
	s.writeQueue = s.writeQueue[1:]
}

// settleFutureWrite handles a WriteItem whose Data is a *future.Future:
// if not yet ready, installs a one-shot OnReady continuation and
// reports false (stop processing for now); if ready, substitutes the
// resolved value and reports true.
func (s *Stream) settleFutureWrite(head *WriteItem) bool {
	f, ok := head.Data.(interface {
		OnReady(func(values ...any))
		Values() []any
	})
	if !ok {
		return true
	}
	if head.watching {
		return false
	}
	values := f.Values()
	if values != nil {
		if len(values) > 0 {
			if b, ok := values[0].([]byte); ok {
				head.Data = b
			}
		}
		return true
	}
	head.watching = true
	f.OnReady(func(values ...any) {
		head.watching = false
		if len(values) > 0 {
			if b, ok := values[0].([]byte); ok {
				head.Data = b
			}
		}
		s.doWrite()
	})
	return false
}

// reduceWriteQueue collapses consecutive plain-[]byte items with no
// OnWrite/OnFlush into a single buffer, to minimise syscalls.
func (s *Stream) reduceWriteQueue() {
	if len(s.writeQueue) < 2 {
		return
	}
	head := s.writeQueue[0]
	headBuf, ok := head.Data.([]byte)
	if !ok || head.OnWrite != nil || head.OnFlush != nil {
		return
	}
	merged := append([]byte(nil), headBuf...)
	i := 1
	for i < len(s.writeQueue) {
		next := s.writeQueue[i]
		nextBuf, ok := next.Data.([]byte)
		if !ok || next.OnWrite != nil || next.OnFlush != nil || next.OnError != nil {
			break
		}
		merged = append(merged, nextBuf...)
		i++
	}
	if i == 1 {
		return
	}
	head.Data = merged
	s.writeQueue = append(s.writeQueue[:1], s.writeQueue[i:]...)
}

func isNonFatalWrite(err error) bool {
	return err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || err == syscall.EINTR
}

func isEPIPE(err error) bool {
	return err == syscall.EPIPE
}
