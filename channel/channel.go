// Package channel implements a framed duplex record transport: two
// connected UNIX-domain stream sockets (or, for a single endpoint, one
// fd of such a pair), each record wire-framed as a uint32 length
// followed by length bytes of codec-serialised payload.
// Either read or write direction may run sync (blocking syscalls) or
// async (layered over a stream.Stream), independently.
package channel

import (
	"io"
	"syscall"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
	"github.com/joeycumines/go-asyncipc/future"
	"github.com/joeycumines/go-asyncipc/handle"
	"github.com/joeycumines/go-asyncipc/loop"
	"github.com/joeycumines/go-asyncipc/notifier"
	"github.com/joeycumines/go-asyncipc/stream"
	"github.com/joeycumines/go-asyncipc/wireformat"
)

func init() {
	wireformat.RegisterType(Record(nil))
}

// Record is one decoded frame: an ordered tuple of values, matching the
// "args..." shape calls and replies carry throughout (Routine call/return
// frames, Process argv, etc).
type Record = []any

// Mode selects sync (blocking syscalls) or async (stream-backed)
// operation for one direction of a Channel.
type Mode int

const (
	// Sync uses blocking read/write syscalls directly on the fd.
	Sync Mode = iota
	// Async layers a stream.Stream over the fd.
	Async
)

// Config supplies Channel's construction-time fields.
type Config struct {
	Name string
	FD   int

	Codec wireformat.Codec // defaults to wireformat.Gob ("Storable")

	ReadMode  Mode
	WriteMode Mode

	OnRecv func(rec Record)
	OnEOF  func()
}

// pendingRecv is one queued async Recv() registration awaiting the next
// frame or EOF (the result_queue).
type pendingRecv struct {
	onRecv func(rec Record)
	onEOF  func()
	f      *future.Future
}

// Channel is the framed duplex transport.
type Channel struct {
	*notifier.Base

	l     *loop.Loop
	fd    int
	codec wireformat.Codec

	readMode  Mode
	writeMode Mode

	h *handle.Handle
	s *stream.Stream

	onRecv func(rec Record)
	onEOF  func()

	resultQueue []*pendingRecv

	eof    bool
	closed bool
}

// New constructs a Channel wrapping fd. When either ReadMode or
// WriteMode is Async, a Handle+Stream pair is installed over fd (shared
// between both directions, since a Channel's fd is a single duplex
// socket endpoint); Sync directions bypass the Stream and use fd
// directly with blocking syscalls.
func New(l *loop.Loop, cfg Config) (*Channel, error) {
	base, err := notifier.New(l, notifier.Config{Type: "channel", Name: cfg.Name})
	if err != nil {
		return nil, err
	}
	codec := cfg.Codec
	if codec == nil {
		codec = wireformat.Gob
	}
	c := &Channel{
		Base:      base,
		l:         l,
		fd:        cfg.FD,
		codec:     codec,
		readMode:  cfg.ReadMode,
		writeMode: cfg.WriteMode,
		onRecv:    cfg.OnRecv,
		onEOF:     cfg.OnEOF,
	}

	if cfg.ReadMode == Async || cfg.WriteMode == Async {
		h, err := handle.New(l, handle.Config{Name: cfg.Name + ".handle", ReadFD: cfg.FD})
		if err != nil {
			return nil, err
		}
		c.h = h
		c.s = stream.New(l, stream.Config{
			Handle:  h,
			Encoder: &frameCodec{codec: codec},
			OnRead:  c.onStreamRead,
		})
		if cfg.ReadMode == Async {
			h.SetOnReadReady(c.s.OnReadable)
			if err := h.SetWantReadReady(true); err != nil {
				return nil, err
			}
		}
		if cfg.WriteMode == Async {
			h.SetOnWriteReady(c.s.OnWritable)
		}
	}

	return c, nil
}

// ShutdownWrite shuts down the write half of the socket, leaving it
// read-only. Routine uses this to turn a full-duplex socketpair end
// into a strict "reader" endpoint.
func (c *Channel) ShutdownWrite() error {
	if err := syscall.Shutdown(c.fd, syscall.SHUT_WR); err != nil {
		return asyncipcerr.NewIOError("shutdown_write", err)
	}
	return nil
}

// ShutdownRead shuts down the read half of the socket, leaving it
// write-only ("writer" endpoint).
func (c *Channel) ShutdownRead() error {
	if err := syscall.Shutdown(c.fd, syscall.SHUT_RD); err != nil {
		return asyncipcerr.NewIOError("shutdown_read", err)
	}
	return nil
}

// FD returns the underlying file descriptor.
func (c *Channel) FD() int { return c.fd }

// Recv enqueues a one-shot async receive handler: the next complete
// frame invokes onRecv (if set); reaching EOF first invokes onEOF
// instead. Returns a Future that resolves with the Record, or fails
// with io.EOF if the channel reaches EOF before one arrives — each
// recv(on_recv?, on_eof?) call enqueues a handler and returns a Future.
func (c *Channel) Recv(onRecv func(rec Record), onEOF func()) *future.Future {
	f := future.New(c.l, nil)
	if c.eof {
		if onEOF != nil {
			onEOF()
		}
		f.Fail(io.EOF)
		return f
	}
	c.resultQueue = append(c.resultQueue, &pendingRecv{onRecv: onRecv, onEOF: onEOF, f: f})
	return f
}

// Close closes the channel's transport: the Handle beneath the Stream
// (if any async direction is in use) or the raw fd.
func (c *Channel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.h != nil {
		return c.h.Close()
	}
	return syscall.Close(c.fd)
}
