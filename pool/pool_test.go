package pool

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-asyncipc/loop"
	"github.com/joeycumines/go-asyncipc/process"
	"github.com/joeycumines/go-asyncipc/routine"
)

// TestMain gatekeeps the test binary, same as package routine's.
func TestMain(m *testing.M) {
	if process.MaybeReexec() {
		return
	}
	os.Exit(m.Run())
}

func init() {
	routine.RegisterWorker("pool-echo", routine.WorkerSpec{
		Handlers: []routine.Handler{
			func(args []any) (any, error) {
				return args[1], nil
			},
		},
		Returns: true,
	})
}

func newLoop(t *testing.T) *loop.Loop {
	t.Helper()
	l, err := loop.New()
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func pumpUntil(t *testing.T, l *loop.Loop, timeout time.Duration, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if done() {
			return
		}
		require.NoError(t, l.Once(10*time.Millisecond))
	}
	t.Fatal("timed out waiting for condition")
}

func TestPool_RoundRobinDispatch(t *testing.T) {
	l := newLoop(t)

	seen := make(chan int, 16)
	p, err := New(l, Config{
		Name:       "echo-pool",
		WorkerType: "pool-echo",
		MaxWorkers: 3,
		OnReturn:   func(workerIndex int, _ any, _ any) { seen <- workerIndex },
	})
	require.NoError(t, err)
	t.Cleanup(p.Close)

	for i := 0; i < 6; i++ {
		assert.True(t, p.Call(nil, i))
	}

	got := map[int]int{}
	pumpUntil(t, l, 5*time.Second, func() bool {
		for {
			select {
			case idx := <-seen:
				got[idx]++
			default:
				total := 0
				for _, n := range got {
					total += n
				}
				return total == 6
			}
		}
	})

	assert.Equal(t, 3, len(got), "all three slots should have been used round-robin")
	for _, n := range got {
		assert.Equal(t, 2, n)
	}
	assert.Equal(t, 3, p.Workers())
}

func TestNew_RejectsZeroMaxWorkers(t *testing.T) {
	l := newLoop(t)
	_, err := New(l, Config{Name: "bad-pool", WorkerType: "pool-echo", MaxWorkers: 0})
	assert.Error(t, err)
}
