// Package process implements the forked-child notifier. Go has no
// usable fork() once a program has more than one OS thread (every
// non-trivial Go binary), so this is a deliberate redesign (see
// DESIGN.md): instead of forking, Start re-executes the current binary
// (os.Executable()), a common Go substitute for fork-then-exec. Code
// that would have been a closure run post-fork is instead a name
// registered up front with Register; Start re-execs with that name in
// the environment, and the child's main() must call MaybeReexec before
// doing anything else.
package process

import (
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
	"github.com/joeycumines/go-asyncipc/loop"
	"github.com/joeycumines/go-asyncipc/notifier"
)

// CodeKind selects what Start runs: a closure, an argv, or a command
// string.
type CodeKind int

const (
	// CodeClosure re-execs this binary with a registered closure name
	// (see Register/MaybeReexec).
	CodeClosure CodeKind = iota
	// CodeArgv runs an external command given as argv.
	CodeArgv
	// CodeShell runs a shell command string via /bin/sh -c.
	CodeShell
)

// ExitFunc is invoked with the pid and decoded exit status once a
// started Process's child has been reaped.
type ExitFunc func(pid int, status int)

// Config supplies Process's construction-time fields.
type Config struct {
	Name string

	Kind    CodeKind
	Closure string   // CodeClosure: name registered via Register
	Argv    []string // CodeArgv: argv[0] is the command
	Shell   string    // CodeShell: passed to /bin/sh -c

	ExtraFiles []*os.File // fds visible to the child starting at fd 3
	Env        []string   // appended to the child's environment

	Debug   bool
	TempDir string // used for <tempdir>/<name>.err when Debug is set

	OnExit ExitFunc
}

// Process is the forked (here: re-exec'd) child notifier.
type Process struct {
	*notifier.Base

	l   *loop.Loop
	cfg Config

	cmd *exec.Cmd
	pid int

	errFile *os.File
}

// New constructs a Process bound to l. It does not start the child;
// call Start.
func New(l *loop.Loop, cfg Config) (*Process, error) {
	base, err := notifier.New(l, notifier.Config{Type: "process", Name: cfg.Name})
	if err != nil {
		return nil, err
	}
	return &Process{Base: base, l: l, cfg: cfg}, nil
}

// PID returns the OS pid, or 0 if Start hasn't been called yet.
func (p *Process) PID() int { return p.pid }

// IsRunning probes the OS with signal 0.
func (p *Process) IsRunning() bool {
	if p.pid == 0 {
		return false
	}
	return syscall.Kill(p.pid, 0) == nil
}

// Start builds the child command for cfg.Kind and launches it. Start is
// idempotent: calling it again once pid is set is a no-op.
func (p *Process) Start() error {
	if p.pid != 0 {
		return nil
	}

	var cmd *exec.Cmd
	switch p.cfg.Kind {
	case CodeArgv:
		if len(p.cfg.Argv) == 0 {
			return asyncipcerr.NewUnspecified("argv")
		}
		cmd = exec.Command(p.cfg.Argv[0], p.cfg.Argv[1:]...)
	case CodeShell:
		if p.cfg.Shell == "" {
			return asyncipcerr.NewUnspecified("shell")
		}
		cmd = exec.Command("/bin/sh", "-c", p.cfg.Shell)
	default: // CodeClosure
		if p.cfg.Closure == "" {
			return asyncipcerr.NewUnspecified("closure")
		}
		exe, err := os.Executable()
		if err != nil {
			return asyncipcerr.NewIOError("os.Executable", err)
		}
		cmd = exec.Command(exe)
		cmd.Env = append(os.Environ(), envWorkerKey+"="+p.cfg.Closure)
	}

	if cmd.Env == nil && len(p.cfg.Env) > 0 {
		cmd.Env = os.Environ()
	}
	cmd.Env = append(cmd.Env, p.cfg.Env...)
	cmd.ExtraFiles = p.cfg.ExtraFiles
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if p.cfg.Debug {
		dir := p.cfg.TempDir
		if dir == "" {
			dir = os.TempDir()
		}
		f, err := os.Create(filepath.Join(dir, p.Name()+".err"))
		if err != nil {
			return asyncipcerr.NewIOError("debug_errfile", err)
		}
		p.errFile = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		if p.errFile != nil {
			p.errFile.Close()
		}
		return asyncipcerr.NewIOError("start", err)
	}

	p.cmd = cmd
	p.pid = cmd.Process.Pid

	onExit := p.cfg.OnExit
	pid := p.pid
	return p.l.WatchChild(pid, func(status int) {
		rv := syscall.WaitStatus(status).ExitStatus()
		defaultLogger.Info().Int("pid", pid).Int("exit_status", rv).Log("process exited")
		if p.errFile != nil {
			p.errFile.Close()
		}
		if onExit != nil {
			onExit(pid, rv)
		}
	})
}

// Stop sends SIGTERM to the child.
func (p *Process) Stop() error {
	if p.pid == 0 {
		return nil
	}
	defaultLogger.Info().Int("pid", p.pid).Log("stopping process")
	return syscall.Kill(p.pid, syscall.SIGTERM)
}
