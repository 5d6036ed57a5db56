package process

import (
	"fmt"
	"os"
	"sync"
)

// envWorkerKey is the environment variable a re-exec'd child inspects to
// find which registered closure to run (an env var rather than an argv
// flag, since ExtraFiles already claims the low fd numbers and a flag
// would collide with the parent program's own argv parsing).
const envWorkerKey = "GO_ASYNCIPC_WORKER"

var (
	registryMu sync.Mutex
	registry   = map[string]func(){}
)

// Register associates name with fn so a Process{Kind: CodeClosure,
// Closure: name} can run it in a re-exec'd child. Call this from an
// init() in any package that defines routine/worker entrypoints, before
// main() calls MaybeReexec.
func Register(name string, fn func()) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// MaybeReexec checks whether this process was launched as a registered
// worker (via Process.Start's CodeClosure path) and, if so, runs the
// matching closure and exits the process — never returning. If this
// process was not launched that way, it returns false immediately so
// the caller's normal main() proceeds.
//
// Every binary that constructs CodeClosure Processes must call this as
// the first statement in main(), before flag parsing or any other
// startup work: the re-exec'd child shares the parent's argv[0] but
// carries the worker selector in its environment instead.
func MaybeReexec() bool {
	name := os.Getenv(envWorkerKey)
	if name == "" {
		return false
	}

	registryMu.Lock()
	fn, ok := registry[name]
	registryMu.Unlock()

	if !ok {
		fmt.Fprintf(os.Stderr, "go-asyncipc: unknown worker closure %q\n", name)
		os.Exit(1)
	}

	fn()
	os.Exit(0)
	return true // unreachable; satisfies callers that check the return value
}
