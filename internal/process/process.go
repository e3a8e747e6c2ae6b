package process

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// ErrNotStarted is returned by Wait when the process was never launched.
var ErrNotStarted = errors.New("process: not started")

// Process supervises exactly one launched OS process. The launch, liveness
// probe, and blocking wait are independent so callers can distinguish
// process-alive from service-ready.
type Process struct {
	spec      Spec
	mu        sync.Mutex
	cmd       *exec.Cmd
	status    Status
	waitDone  chan struct{} // closed by the reaper after cmd.Wait returns
	outCloser io.WriteCloser
	errCloser io.WriteCloser
}

func New(spec Spec) *Process { return &Process{spec: spec} }

func (p *Process) Spec() Spec { return p.spec }

// Start launches the process, writes its pidfile, and attaches a reaper
// goroutine that records the exit status. It is a one-shot operation.
func (p *Process) Start() error {
	p.mu.Lock()
	if p.cmd != nil {
		p.mu.Unlock()
		return fmt.Errorf("process %s: already started", p.spec.Name)
	}
	p.mu.Unlock()

	cmd := p.spec.BuildCommand()
	if p.spec.WorkDir != "" {
		cmd.Dir = p.spec.WorkDir
	}
	// Spec.Env is a complete environment, not a delta; an empty one means
	// inherit.
	if len(p.spec.Env) > 0 {
		cmd.Env = p.spec.Env
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	p.attachOutputs(cmd)

	if err := cmd.Start(); err != nil {
		p.closeWriters()
		return fmt.Errorf("start %s: %w", p.spec.Name, err)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.waitDone = make(chan struct{})
	p.status = Status{
		Name:      p.spec.Name,
		Running:   true,
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
	}
	p.mu.Unlock()

	p.writePIDFile()
	go p.reap(cmd)
	return nil
}

func (p *Process) attachOutputs(cmd *exec.Cmd) {
	if p.spec.Log.Dir != "" || p.spec.Log.StdoutPath != "" || p.spec.Log.StderrPath != "" {
		if p.spec.Log.Dir != "" {
			_ = os.MkdirAll(p.spec.Log.Dir, 0o750)
		}
		outW, errW, _ := p.spec.Log.Writers(p.spec.Name)
		p.mu.Lock()
		p.outCloser, p.errCloser = outW, errW
		p.mu.Unlock()
		if outW != nil {
			cmd.Stdout = outW
		}
		if errW != nil {
			cmd.Stderr = errW
		}
		return
	}
	null, _ := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	cmd.Stdout = null
	cmd.Stderr = null
}

// reap owns cmd.Wait for this run; Stop never calls Wait itself and instead
// blocks on waitDone to avoid racing the reaper.
func (p *Process) reap(cmd *exec.Cmd) {
	err := cmd.Wait()
	code := 0
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code = ee.ExitCode()
	} else if err != nil {
		code = -1
	}

	p.mu.Lock()
	p.status.Running = false
	p.status.StoppedAt = time.Now()
	p.status.ExitCode = code
	p.status.ExitErr = err
	wd := p.waitDone
	p.mu.Unlock()

	p.closeWriters()
	p.removePIDFile()
	if wd != nil {
		close(wd)
	}
}

// Alive reports whether the launched process is currently running. It is
// non-blocking and has no side effects. A zombie counts as not alive.
func (p *Process) Alive() bool {
	p.mu.Lock()
	cmd := p.cmd
	running := p.status.Running
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil || !running {
		return false
	}
	pid := cmd.Process.Pid
	if runtime.GOOS == "linux" && isZombieLinux(pid) {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// Wait blocks until the process exits and returns its exit error (nil for a
// zero exit status).
func (p *Process) Wait() error {
	p.mu.Lock()
	wd := p.waitDone
	p.mu.Unlock()
	if wd == nil {
		return ErrNotStarted
	}
	<-wd
	return p.Snapshot().ExitErr
}

// Stop terminates the process group with SIGTERM, escalating to SIGKILL
// after wait elapses. It returns once the reaper has recorded the exit.
func (p *Process) Stop(wait time.Duration) error {
	p.mu.Lock()
	cmd := p.cmd
	wd := p.waitDone
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil || wd == nil {
		return nil
	}
	if !p.Alive() {
		return p.Snapshot().ExitErr
	}
	pid := cmd.Process.Pid
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	select {
	case <-wd:
	case <-time.After(wait):
		_ = syscall.Kill(-pid, syscall.SIGKILL)
		select {
		case <-wd:
		case <-time.After(2 * time.Second):
			// best-effort
		}
	}
	return p.Snapshot().ExitErr
}

// Snapshot returns a copy of the current status.
func (p *Process) Snapshot() Status {
	p.mu.Lock()
	s := p.status
	p.mu.Unlock()
	return s
}

func (p *Process) closeWriters() {
	p.mu.Lock()
	out, errw := p.outCloser, p.errCloser
	p.outCloser, p.errCloser = nil, nil
	p.mu.Unlock()
	if out != nil {
		_ = out.Close()
	}
	if errw != nil {
		_ = errw.Close()
	}
}

func (p *Process) writePIDFile() {
	p.mu.Lock()
	pidFile := p.spec.PIDFile
	pid := 0
	if p.cmd != nil && p.cmd.Process != nil {
		pid = p.cmd.Process.Pid
	}
	p.mu.Unlock()
	if pidFile == "" || pid == 0 {
		return
	}
	_ = os.MkdirAll(filepath.Dir(pidFile), 0o750)
	_ = os.WriteFile(pidFile, []byte(strconv.Itoa(pid)), 0o600)
}

func (p *Process) removePIDFile() {
	if p.spec.PIDFile == "" {
		return
	}
	_ = os.Remove(p.spec.PIDFile)
}

// isZombieLinux reports a zombie state (Z) in /proc/<pid>/status.
func isZombieLinux(pid int) bool {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte("State:\tZ"))
}
