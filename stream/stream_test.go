package stream

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-asyncipc/handle"
	"github.com/joeycumines/go-asyncipc/loop"
)

func newLoop(t *testing.T) *loop.Loop {
	t.Helper()
	l, err := loop.New()
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func pipe(t *testing.T) (r, w *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(); w.Close() })
	return r, w
}

// newPipeStream builds a Stream over a fresh pipe, wiring the Handle's
// readiness callbacks the way package channel does.
func newPipeStream(t *testing.T, l *loop.Loop, cfg Config) (*Stream, *os.File, *os.File) {
	t.Helper()
	r, w := pipe(t)
	h, err := handle.New(l, handle.Config{Name: t.Name() + ".handle", ReadFD: int(r.Fd()), WriteFD: int(w.Fd())})
	require.NoError(t, err)
	cfg.Handle = h
	s := New(l, cfg)
	h.SetOnReadReady(s.OnReadable)
	h.SetOnWriteReady(s.OnWritable)
	return s, r, w
}

func TestReadAtmost_ResolvesWithTakenBytes(t *testing.T) {
	l := newLoop(t)
	s, _, w := newPipeStream(t, l, Config{})

	f := s.ReadAtmost(5)
	_, err := w.Write([]byte("hello world"))
	require.NoError(t, err)

	values, err := f.Await(time.Second)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, []byte("hello"), values[0])
}

func TestReadExactly_ResolvesWithExactBytes(t *testing.T) {
	l := newLoop(t)
	s, _, w := newPipeStream(t, l, Config{})

	f := s.ReadExactly(7)
	_, err := w.Write([]byte("ab"))
	require.NoError(t, err)
	_, err = w.Write([]byte("cdefg"))
	require.NoError(t, err)

	values, err := f.Await(time.Second)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, []byte("abcdefg"), values[0])
}

func TestReadExactly_ResolvesWithRemainderAtEOF(t *testing.T) {
	l := newLoop(t)
	s, _, w := newPipeStream(t, l, Config{})

	f := s.ReadExactly(100)
	_, err := w.Write([]byte("short"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	values, err := f.Await(time.Second)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, []byte("short"), values[0])
}

func TestReadUntil_ResolvesWithMatchIncluded(t *testing.T) {
	l := newLoop(t)
	s, _, w := newPipeStream(t, l, Config{})

	f := s.ReadUntil(`\n`)
	_, err := w.Write([]byte("first line\nsecond line"))
	require.NoError(t, err)

	values, err := f.Await(time.Second)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, []byte("first line\n"), values[0])

	// the remainder stays buffered for the next read.
	f2 := s.ReadAtmost(100)
	values2, err := f2.Await(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("second line"), values2[0])
}

func TestReadUntilEOF_ResolvesWithEverythingRemaining(t *testing.T) {
	l := newLoop(t)
	s, _, w := newPipeStream(t, l, Config{})

	f := s.ReadUntilEOF()
	_, err := w.Write([]byte("all of this"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	values, err := f.Await(time.Second)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, []byte("all of this"), values[0])
}

func TestReadQueue_EOFDrainsEachQueuedItemWithRemainingBytes(t *testing.T) {
	l := newLoop(t)
	s, _, w := newPipeStream(t, l, Config{})

	f1 := s.ReadExactly(1000)
	f2 := s.ReadAtmost(1000)
	_, err := w.Write([]byte("leftover"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	values1, err := f1.Await(time.Second)
	require.NoError(t, err)
	require.Len(t, values1, 1)
	assert.Equal(t, []byte("leftover"), values1[0])

	values2, err := f2.Await(time.Second)
	require.NoError(t, err)
	require.Len(t, values2, 1)
	assert.Equal(t, []byte(nil), values2[0])
}

func TestReduceWriteQueue_CoalescesConsecutivePlainBytes(t *testing.T) {
	flushed := false
	s := &Stream{writeQueue: []*WriteItem{
		{Data: []byte("ab")},
		{Data: []byte("cd")},
		{Data: []byte("ef"), OnFlush: func() { flushed = true }},
	}}

	s.reduceWriteQueue()

	require.Len(t, s.writeQueue, 2)
	assert.Equal(t, []byte("abcd"), s.writeQueue[0].Data)
	assert.Equal(t, []byte("ef"), s.writeQueue[1].Data)
	assert.False(t, flushed, "reduceWriteQueue must not itself invoke callbacks")
}

func TestReduceWriteQueue_NoopOnSingleItem(t *testing.T) {
	s := &Stream{writeQueue: []*WriteItem{{Data: []byte("solo")}}}
	s.reduceWriteQueue()
	require.Len(t, s.writeQueue, 1)
	assert.Equal(t, []byte("solo"), s.writeQueue[0].Data)
}

func TestDoWrite_FlushesEachWriteCallInOrder(t *testing.T) {
	l := newLoop(t)
	s, r, _ := newPipeStream(t, l, Config{Autoflush: true})

	var flushes int
	s.Write([]byte("foo"), nil, func() { flushes++ }, nil)
	s.Write([]byte("bar"), nil, func() { flushes++ }, nil)

	buf := make([]byte, 6)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "foobar", string(buf[:n]))
	assert.Equal(t, 2, flushes)
}

func TestDoWrite_EAGAINStopsWriteable(t *testing.T) {
	l := newLoop(t)
	r, w := pipe(t)
	require.NoError(t, syscall.SetNonblock(int(w.Fd()), true))

	filler := make([]byte, 4096)
	for {
		if _, err := syscall.Write(int(w.Fd()), filler); err != nil {
			break
		}
	}

	h, err := handle.New(l, handle.Config{Name: "eagain.handle", ReadFD: int(r.Fd()), WriteFD: int(w.Fd())})
	require.NoError(t, err)

	var stopped bool
	s := New(l, Config{Handle: h, Autoflush: true, OnWriteableStop: func() { stopped = true }})
	h.SetOnWriteReady(s.OnWritable)

	s.Write([]byte("more data than the pipe can currently take"), nil, nil, nil)

	assert.True(t, stopped)
	assert.False(t, s.writeable)
}

func TestDoWrite_EPIPETriggersOnWriteEOF(t *testing.T) {
	l := newLoop(t)
	r, w := pipe(t)
	require.NoError(t, r.Close())

	h, err := handle.New(l, handle.Config{Name: "epipe.handle", ReadFD: int(r.Fd()), WriteFD: int(w.Fd())})
	require.NoError(t, err)

	var eofFired bool
	var gotErr error
	s := New(l, Config{Handle: h, Autoflush: true, OnWriteEOF: func() { eofFired = true }})
	h.SetOnWriteReady(s.OnWritable)

	s.Write([]byte("x"), nil, nil, func(err error) { gotErr = err })

	assert.True(t, eofFired)
	assert.ErrorIs(t, gotErr, syscall.EPIPE)
}

func TestCheckWatermarks_Hysteresis(t *testing.T) {
	var highCount, lowCount int
	s := New(nil, Config{
		ReadHighWatermark:   10,
		ReadLowWatermark:    4,
		OnReadHighWatermark: func() { highCount++ },
		OnReadLowWatermark:  func() { lowCount++ },
	})

	s.readBuf = make([]byte, 11)
	s.checkWatermarks()
	assert.Equal(t, 1, highCount)
	assert.True(t, s.atHighWatermark)

	s.readBuf = make([]byte, 6)
	s.checkWatermarks()
	assert.Equal(t, 1, highCount, "between watermarks must not re-fire high")
	assert.Equal(t, 0, lowCount)
	assert.True(t, s.atHighWatermark)

	s.readBuf = make([]byte, 3)
	s.checkWatermarks()
	assert.Equal(t, 1, lowCount)
	assert.False(t, s.atHighWatermark)
}

func TestCheckWatermarks_DisabledWhenHighIsZero(t *testing.T) {
	var fired bool
	s := New(nil, Config{OnReadHighWatermark: func() { fired = true }})
	s.readBuf = make([]byte, 1<<20)
	s.checkWatermarks()
	assert.False(t, fired)
}
