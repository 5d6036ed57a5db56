package loop

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnTrue(t *testing.T) *os.Process {
	t.Helper()
	cmd := exec.Command("/bin/true")
	require.NoError(t, cmd.Start())
	return cmd.Process
}

func TestWatchChild_AsyncDelivery(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	proc := spawnTrue(t)

	done := make(chan int, 1)
	require.NoError(t, l.WatchChild(proc.Pid, func(status int) { done <- status }))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		l.runChildExits()
		select {
		case <-done:
			return
		default:
			time.Sleep(time.Millisecond)
		}
	}
	t.Fatal("timed out waiting for child exit delivery")
}

func TestWatchChild_DuplicatePid(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	proc := spawnTrue(t)
	require.NoError(t, l.WatchChild(proc.Pid, func(int) {}))
	err = l.WatchChild(proc.Pid, func(int) {})
	assert.Error(t, err)

	l.WaitChildren(nil)
}

func TestWaitChildren_Synchronous(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	p1 := spawnTrue(t)
	p2 := spawnTrue(t)

	var order []int
	require.NoError(t, l.WatchChild(p1.Pid, func(int) { order = append(order, p1.Pid) }))
	require.NoError(t, l.WatchChild(p2.Pid, func(int) { order = append(order, p2.Pid) }))

	l.WaitChildren(nil)
	assert.Len(t, order, 2)
	assert.Empty(t, l.children)
}
