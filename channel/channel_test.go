package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-asyncipc/loop"
	"github.com/joeycumines/go-asyncipc/wireformat"
)

func newLoop(t *testing.T) *loop.Loop {
	t.Helper()
	l, err := loop.New()
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func pumpUntil(t *testing.T, l *loop.Loop, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		require.NoError(t, l.Once(10*time.Millisecond))
	}
	t.Fatal("timed out waiting for condition")
}

func TestSyncSendRecv_Gob(t *testing.T) {
	l := newLoop(t)
	a, b, err := NewPair(l, "a", "b", Config{})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(); b.Close() })

	require.NoError(t, a.Send(Record{"hello", 42}))
	rec, ok := b.RecvSync()
	require.True(t, ok)
	assert.Equal(t, "hello", rec[0])
	assert.Equal(t, 42, rec[1])
}

func TestSyncSendRecv_JSON(t *testing.T) {
	l := newLoop(t)
	a, b, err := NewPair(l, "a2", "b2", Config{Codec: wireformat.JSON})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(); b.Close() })

	require.NoError(t, a.Send(Record{"hi", 7.5}))
	rec, ok := b.RecvSync()
	require.True(t, ok)
	assert.Equal(t, "hi", rec[0])
	assert.Equal(t, 7.5, rec[1])
}

func TestAsyncRoundTrip(t *testing.T) {
	l := newLoop(t)
	a, b, err := NewPair(l, "a3", "b3", Config{ReadMode: Async, WriteMode: Async})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(); b.Close() })

	var got Record
	b.Recv(func(rec Record) { got = rec }, nil)

	require.NoError(t, a.Send(Record{"async", 1}))

	pumpUntil(t, l, func() bool { return got != nil })
	assert.Equal(t, "async", got[0])
}

func TestAsyncEOF(t *testing.T) {
	l := newLoop(t)
	a, b, err := NewPair(l, "a4", "b4", Config{ReadMode: Async, WriteMode: Async})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	eofHit := false
	b.Recv(nil, func() { eofHit = true })

	require.NoError(t, a.Close())

	pumpUntil(t, l, func() bool { return eofHit })
}

func TestSyncRecvPreservesOrder(t *testing.T) {
	l := newLoop(t)
	a, b, err := NewPair(l, "a5", "b5", Config{})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(); b.Close() })

	require.NoError(t, a.Send(Record{1}))
	require.NoError(t, a.Send(Record{2}))

	first, ok := b.RecvSync()
	require.True(t, ok)
	assert.Equal(t, 1, first[0])
	second, ok := b.RecvSync()
	require.True(t, ok)
	assert.Equal(t, 2, second[0])
}
