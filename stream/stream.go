// Package stream implements a buffered, encoded, framed-or-unframed
// read/write layer over a Handle — the hardest component in the
// system: four independent want-readiness flags, a read queue of
// satisfiable predicates, a write queue with closures and Future-backed
// items, and watermark-driven flow control.
package stream

import (
	"io"
	"regexp"
	"syscall"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
	"github.com/joeycumines/go-asyncipc/future"
	"github.com/joeycumines/go-asyncipc/handle"
	"github.com/joeycumines/go-asyncipc/loop"
)

const defaultReadLen = 8192

// WriteItem is a queued write request: Data is []byte, *future.Future,
// or a WriteCloser closure yielding further chunks until it signals
// done.
type WriteItem struct {
	Data     any
	WriteLen int

	OnWrite func(n int)
	OnFlush func()
	OnError func(error)

	watching bool
	written  int
}

// WriteCloser yields the next chunk to write, or ok=false once done
// producing ("closure terminates by returning none").
type WriteCloser func() (chunk []byte, ok bool)

// Config supplies Stream's construction-time fields.
type Config struct {
	Handle *handle.Handle

	Encoder Encoder
	ReadLen int

	ReadAll        bool
	CloseOnReadEOF bool
	OnRead         ReadHandler
	OnReadEOF      func()

	ReadHighWatermark   int
	ReadLowWatermark    int
	OnReadHighWatermark func()
	OnReadLowWatermark  func()

	WriteAll  bool
	Autoflush bool

	OnOutgoingEmpty  func()
	OnWriteableStart func()
	OnWriteableStop  func()
	OnWriteEOF       func()
	OnWriteError     func(error)
}

// Stream layers buffered, framed-or-unframed I/O over a Handle.
type Stream struct {
	h *handle.Handle
	l *loop.Loop

	encoder Encoder
	readLen int

	readBuf      []byte
	decodedQueue []any
	readQueue    []*ReadItem
	flushingRead bool

	readAll        bool
	closeOnReadEOF bool
	onRead         ReadHandler
	onReadEOF      func()

	readHighWatermark   int
	readLowWatermark    int
	atHighWatermark     bool
	onReadHighWatermark func()
	onReadLowWatermark  func()

	writeQueue []*WriteItem
	writeAll   bool
	autoflush  bool
	writeable  bool
	writeEOF   bool

	streamClosing bool

	onOutgoingEmpty  func()
	onWriteableStart func()
	onWriteableStop  func()
	onWriteEOF       func()
	onWriteError     func(error)

	wantReadreadyForRead   bool
	wantReadreadyForWrite  bool
	wantWritereadyForRead  bool
	wantWritereadyForWrite bool
}

// New constructs a Stream over an already-constructed Handle.
func New(l *loop.Loop, cfg Config) *Stream {
	readLen := cfg.ReadLen
	if readLen <= 0 {
		readLen = defaultReadLen
	}
	s := &Stream{
		h:                   cfg.Handle,
		l:                   l,
		encoder:             cfg.Encoder,
		readLen:             readLen,
		readAll:             cfg.ReadAll,
		closeOnReadEOF:      cfg.CloseOnReadEOF,
		onRead:              cfg.OnRead,
		onReadEOF:           cfg.OnReadEOF,
		readHighWatermark:   cfg.ReadHighWatermark,
		readLowWatermark:    cfg.ReadLowWatermark,
		onReadHighWatermark: cfg.OnReadHighWatermark,
		onReadLowWatermark:  cfg.OnReadLowWatermark,
		writeAll:            cfg.WriteAll,
		autoflush:           cfg.Autoflush,
		onOutgoingEmpty:     cfg.OnOutgoingEmpty,
		onWriteableStart:    cfg.OnWriteableStart,
		onWriteableStop:     cfg.OnWriteableStop,
		onWriteEOF:          cfg.OnWriteEOF,
		onWriteError:        cfg.OnWriteError,
		writeable:           true,
	}
	if s.onReadHighWatermark == nil {
		s.onReadHighWatermark = func() { s.SetWantReadreadyForRead(false) }
	}
	if s.onReadLowWatermark == nil {
		s.onReadLowWatermark = func() { s.SetWantReadreadyForRead(true) }
	}
	return s
}

// SetWantReadreadyForRead arms or disarms read readiness requested by
// the read path, re-syncing the underlying Handle's actual watch.
func (s *Stream) SetWantReadreadyForRead(want bool) error {
	s.wantReadreadyForRead = want
	return s.syncReadready()
}

// SetWantReadreadyForWrite arms or disarms read readiness requested by
// the write path (e.g. to read an ack before a pipelined write can
// proceed).
func (s *Stream) SetWantReadreadyForWrite(want bool) error {
	s.wantReadreadyForWrite = want
	return s.syncReadready()
}

// SetWantWritereadyForRead arms or disarms write readiness requested by
// the read path.
func (s *Stream) SetWantWritereadyForRead(want bool) error {
	s.wantWritereadyForRead = want
	return s.syncWriteready()
}

// SetWantWritereadyForWrite arms or disarms write readiness requested by
// the write path.
func (s *Stream) SetWantWritereadyForWrite(want bool) error {
	s.wantWritereadyForWrite = want
	return s.syncWriteready()
}

func (s *Stream) syncReadready() error {
	return s.h.SetWantReadReady(s.wantReadreadyForRead || s.wantReadreadyForWrite)
}

func (s *Stream) syncWriteready() error {
	return s.h.SetWantWriteReady(s.wantWritereadyForRead || s.wantWritereadyForWrite)
}

// OnReadable is installed as the Handle's OnReadReady callback; it
// drives do_read.
func (s *Stream) OnReadable() { s.doRead() }

// OnWritable is installed as the Handle's OnWriteReady callback; it
// drives do_write.
func (s *Stream) OnWritable() { s.doWrite() }

func (s *Stream) doRead() {
	for {
		buf := make([]byte, s.readLen)
		n, err := syscall.Read(s.h.ReadFD(), buf)

		if err != nil {
			if asyncipcerr.IsNonFatal(err) {
				return
			}
			return
		}

		eof := n == 0
		if n > 0 {
			s.readBuf = append(s.readBuf, buf[:n]...)
		}

		if s.encoder != nil && len(s.readBuf) > 0 {
			consumed, values, decErr := s.encoder.Decode(s.readBuf)
			if decErr != nil && decErr != io.ErrUnexpectedEOF {
				return
			}
			s.readBuf = s.readBuf[consumed:]
			s.decodedQueue = append(s.decodedQueue, values...)
		}

		for s.flushOneRead(eof) {
		}

		s.checkWatermarks()

		if eof {
			if s.onReadEOF != nil {
				s.onReadEOF()
			}
			if s.closeOnReadEOF {
				s.CloseNow()
			}
			for _, item := range s.readQueue {
				remaining := append([]byte(nil), s.available()...)
				item.future.Done(remaining)
			}
			s.readQueue = nil
		}

		if !s.readAll || eof {
			return
		}
	}
}

func (s *Stream) checkWatermarks() {
	if s.readHighWatermark <= 0 {
		return
	}
	n := len(s.readBuf)
	if !s.atHighWatermark && n > s.readHighWatermark {
		s.atHighWatermark = true
		if s.onReadHighWatermark != nil {
			s.onReadHighWatermark()
		}
	} else if s.atHighWatermark && n < s.readLowWatermark {
		s.atHighWatermark = false
		if s.onReadLowWatermark != nil {
			s.onReadLowWatermark()
		}
	}
}

// flushOneRead dispatches to the head of the read queue if any,
// otherwise to onRead. Returns true if flushing should continue.
func (s *Stream) flushOneRead(eof bool) bool {
	if s.flushingRead {
		return false
	}
	s.flushingRead = true
	defer func() { s.flushingRead = false }()

	if len(s.readQueue) > 0 {
		item := s.readQueue[0]
		take, done := item.want(s.available(), eof)
		var taken []byte
		if take > 0 {
			taken = append([]byte(nil), s.available()[:take]...)
			s.consume(take)
		}
		if !done {
			return false
		}
		s.readQueue = s.readQueue[1:]
		item.future.Done(taken)
		return len(s.readQueue) > 0 || len(s.available()) > 0
	}

	if s.onRead == nil {
		return false
	}

	beforeLen := len(s.available())
	action := s.onRead(s, s.available(), eof)
	switch action.kind {
	case actionPop:
		return len(s.available()) > 0
	case actionReplace:
		s.onRead = action.replace
		return true
	case actionKeepIfData:
		if len(s.available()) > 0 {
			return len(s.available()) > beforeLen || eof
		}
		return false
	default: // actionKeep
		return len(s.available()) > beforeLen || eof
	}
}

// available returns the currently buffered, unconsumed raw bytes; with
// an encoder configured these are the bytes not yet decoded, since
// decoded values are held separately. Read predicates and on_read
// handlers that need typed access to decoded values should use
// DecodedQueue directly; available is used for the byte-oriented
// predicates (read_atmost/exactly/until/until_eof).
func (s *Stream) available() []byte {
	return s.readBuf
}

func (s *Stream) consume(n int) {
	s.readBuf = s.readBuf[n:]
}

// DecodedQueue returns the values decoded so far but not yet consumed
// by an on_read handler, when an Encoder is configured.
func (s *Stream) DecodedQueue() []any { return s.decodedQueue }

// PopDecoded removes and returns the first decoded value, if any.
func (s *Stream) PopDecoded() (any, bool) {
	if len(s.decodedQueue) == 0 {
		return nil, false
	}
	v := s.decodedQueue[0]
	s.decodedQueue = s.decodedQueue[1:]
	return v, true
}

// ReadAtmost enqueues a ReadItem satisfied by up to n bytes (or EOF).
// The returned Future resolves with a single []byte value holding
// whatever was taken (accessible via Values()[0].([]byte)).
func (s *Stream) ReadAtmost(n int) *future.Future {
	return s.enqueueRead(readAtmost(n))
}

// ReadExactly enqueues a ReadItem satisfied only once exactly n bytes
// are available, or at EOF. The returned Future resolves with a single
// []byte value: exactly n bytes, or (at EOF with fewer available)
// whatever remains.
func (s *Stream) ReadExactly(n int) *future.Future {
	return s.enqueueRead(readExactly(n))
}

// ReadUntil enqueues a ReadItem satisfied once pattern matches, taking
// up to and including the match (or, at EOF, whatever remains). The
// returned Future resolves with a single []byte value. pattern is
// compiled as a regexp, per the read_until contract.
func (s *Stream) ReadUntil(pattern string) *future.Future {
	return s.enqueueRead(readUntilRegexp(regexp.MustCompile(pattern)))
}

// ReadUntilEOF enqueues a ReadItem satisfied only at EOF. The returned
// Future resolves with a single []byte value holding everything
// buffered at EOF.
func (s *Stream) ReadUntilEOF() *future.Future {
	return s.enqueueRead(readUntilEOF())
}

func (s *Stream) enqueueRead(want readPredicate) *future.Future {
	f := future.New(s.l, nil)
	item := &ReadItem{want: want, future: f}
	f.OnCancel(func() {
		for i, it := range s.readQueue {
			if it == item {
				s.readQueue = append(s.readQueue[:i], s.readQueue[i+1:]...)
				break
			}
		}
	})
	s.readQueue = append(s.readQueue, item)
	s.SetWantReadreadyForRead(true)
	for s.flushOneRead(false) {
	}
	return f
}

// Write appends a WriteItem. data may be []byte, *future.Future, or a
// WriteCloser. If autoflush is set, a synchronous flush is attempted
// immediately; otherwise write readiness is armed.
func (s *Stream) Write(data any, onWrite func(int), onFlush func(), onError func(error)) *future.Future {
	item := &WriteItem{Data: data, OnWrite: onWrite, OnFlush: onFlush, OnError: onError}

	f := future.New(s.l, nil)
	wrapOnFlush := item.OnFlush
	item.OnFlush = func() {
		if wrapOnFlush != nil {
			wrapOnFlush()
		}
		f.Done()
	}
	wrapOnError := item.OnError
	item.OnError = func(err error) {
		if wrapOnError != nil {
			wrapOnError(err)
		}
		f.Fail(err)
	}

	s.writeQueue = append(s.writeQueue, item)

	if s.autoflush {
		s.doWrite()
	} else {
		s.SetWantWritereadyForWrite(true)
	}
	return f
}

// CloseNow aborts in-flight writes (firing their OnError with
// ErrStreamClosing), clears the queue, and closes the underlying
// Handle.
func (s *Stream) CloseNow() error {
	for _, item := range s.writeQueue {
		if item.OnError != nil {
			item.OnError(asyncipcerr.ErrStreamClosing)
		}
	}
	s.writeQueue = nil
	return s.h.Close()
}

// CloseWhenEmpty closes immediately if the write queue is empty;
// otherwise marks the stream closing so do_write closes once drained.
// Close is an alias for this.
func (s *Stream) CloseWhenEmpty() error {
	if len(s.writeQueue) == 0 {
		return s.h.Close()
	}
	s.streamClosing = true
	return nil
}

// Close is an alias for CloseWhenEmpty.
func (s *Stream) Close() error { return s.CloseWhenEmpty() }
