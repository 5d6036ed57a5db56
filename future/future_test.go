package future

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-asyncipc/loop"
)

func newLoop(t *testing.T) *loop.Loop {
	t.Helper()
	l, err := loop.New()
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestFuture_DoneSettlesAndNotifies(t *testing.T) {
	l := newLoop(t)
	f := New(l, nil)

	var got []any
	f.OnReady(func(values ...any) { got = values })

	f.Done(1, "two")
	assert.Equal(t, Done, f.State())
	assert.Equal(t, []any{1, "two"}, got)

	// second Done is a no-op
	f.Done(99)
	assert.Equal(t, []any{1, "two"}, f.Values())
}

func TestFuture_OnReadyAfterSettle(t *testing.T) {
	l := newLoop(t)
	f := New(l, nil)
	f.Done("x")

	var got []any
	f.OnReady(func(values ...any) { got = values })
	assert.Equal(t, []any{"x"}, got)
}

func TestFuture_Fail(t *testing.T) {
	l := newLoop(t)
	f := New(l, nil)

	f.Fail(assertErr, "detail1")
	assert.Equal(t, Failed, f.State())
	assert.Equal(t, assertErr, f.Err())
	assert.Equal(t, []any{"detail1"}, f.Details())
}

func TestFuture_Cancel(t *testing.T) {
	l := newLoop(t)
	var cbCalled bool
	f := New(l, func() { cbCalled = true })

	var cancelled bool
	f.OnCancel(func() { cancelled = true })

	f.Cancel()
	assert.Equal(t, Cancelled, f.State())
	assert.True(t, cbCalled)
	assert.True(t, cancelled)

	// cancel after settle is a no-op
	f.Cancel()
}

func TestFuture_Await(t *testing.T) {
	l := newLoop(t)
	f := New(l, nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Done(42)
	}()

	values, err := f.Await(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []any{42}, values)
}

func TestFuture_AwaitTimeout(t *testing.T) {
	l := newLoop(t)
	f := New(l, nil)

	_, err := f.Await(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestFuture_DoneLater(t *testing.T) {
	l := newLoop(t)
	f := New(l, nil)

	f.DoneLater(7)
	assert.Equal(t, Pending, f.State())

	values, err := f.Await(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []any{7}, values)
}

func TestFuture_FailLaterNilIsNoop(t *testing.T) {
	l := newLoop(t)
	f := New(l, nil)
	f.FailLater(nil)
	assert.Equal(t, Pending, f.State())
}

var assertErr = &testErr{"boom"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
