package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-asyncipc/future"
	"github.com/joeycumines/go-asyncipc/loop"
)

func newLoop(t *testing.T) *loop.Loop {
	t.Helper()
	l, err := loop.New()
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestNew_DuplicateNameFails(t *testing.T) {
	l := newLoop(t)

	b1, err := New(l, Config{Type: "timer", Name: "a"})
	require.NoError(t, err)
	defer b1.Destroy()

	_, err = New(l, Config{Type: "timer", Name: "a"})
	assert.Error(t, err)

	// distinct type with the same name is fine
	b2, err := New(l, Config{Type: "handle", Name: "a"})
	require.NoError(t, err)
	defer b2.Destroy()
}

func TestDestroy_FreesName(t *testing.T) {
	l := newLoop(t)

	b1, err := New(l, Config{Type: "timer", Name: "x"})
	require.NoError(t, err)
	b1.Destroy()

	b2, err := New(l, Config{Type: "timer", Name: "x"})
	require.NoError(t, err)
	defer b2.Destroy()
}

func TestCaptureWeakSelf_NoopAfterDestroy(t *testing.T) {
	l := newLoop(t)
	b, err := New(l, Config{Type: "t", Name: "n"})
	require.NoError(t, err)

	var called bool
	cb := b.CaptureWeakSelf(func(self *Base, args ...any) { called = true })

	b.Destroy()
	cb()
	assert.False(t, called)
}

func TestInvokeEvent_UnknownFails(t *testing.T) {
	l := newLoop(t)
	b, err := New(l, Config{Type: "t", Name: "n2"})
	require.NoError(t, err)
	defer b.Destroy()

	err = b.InvokeEvent("missing")
	assert.Error(t, err)
}

func TestInvokeEvent_Dispatches(t *testing.T) {
	l := newLoop(t)
	b, err := New(l, Config{Type: "t", Name: "n3"})
	require.NoError(t, err)
	defer b.Destroy()

	var got []any
	b.OnEvent("tick", func(args ...any) { got = args })
	require.NoError(t, b.InvokeEvent("tick", 1, 2))
	assert.Equal(t, []any{1, 2}, got)
}

func TestMaybeInvokeEvent_SkipsWhenAbsent(t *testing.T) {
	l := newLoop(t)
	b, err := New(l, Config{Type: "t", Name: "n4"})
	require.NoError(t, err)
	defer b.Destroy()

	assert.NotPanics(t, func() { b.MaybeInvokeEvent("missing") })
}

func TestInvokeError_NoHandlerFails(t *testing.T) {
	l := newLoop(t)
	b, err := New(l, Config{Type: "t", Name: "n5"})
	require.NoError(t, err)
	defer b.Destroy()

	err = b.InvokeError("boom", "generic")
	assert.Error(t, err)
}

func TestAdoptFuture_ReleasesOnSettleAndRoutesFailure(t *testing.T) {
	l := newLoop(t)

	var gotMsg, gotKind string
	b, err := New(l, Config{
		Type: "t", Name: "n6",
		OnError: func(msg, kind string, details ...any) {
			gotMsg, gotKind = msg, kind
		},
	})
	require.NoError(t, err)
	defer b.Destroy()

	f := future.New(l, nil)
	b.AdoptFuture("call-1", f)
	assert.Contains(t, b.Futures(), "call-1")

	f.Fail(assertErr)
	assert.NotContains(t, b.Futures(), "call-1")
	assert.Equal(t, "boom", gotMsg)
	assert.Equal(t, "future_failed", gotKind)
}

var assertErr = &testErr{"boom"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
