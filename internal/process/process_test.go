package process

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStartAliveStop(t *testing.T) {
	dir := t.TempDir()
	pidfile := filepath.Join(dir, "demo.pid")
	p := New(Spec{Name: "demo", Command: "sleep 5", PIDFile: pidfile})
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !p.Alive() {
		t.Fatalf("expected alive after start")
	}
	st := p.Snapshot()
	if !st.Running || st.PID <= 0 {
		t.Fatalf("unexpected status %+v", st)
	}
	data, err := os.ReadFile(pidfile)
	if err != nil || len(data) == 0 {
		t.Fatalf("pidfile not created: %v", err)
	}
	_ = p.Stop(2 * time.Second)
	if p.Alive() {
		t.Fatalf("expected stopped")
	}
	st2 := p.Snapshot()
	if st2.Running {
		t.Fatalf("status still running after stop: %+v", st2)
	}
	if _, err := os.Stat(pidfile); !os.IsNotExist(err) {
		t.Fatalf("pidfile not removed after exit")
	}
}

func TestWaitReturnsExitError(t *testing.T) {
	p := New(Spec{Name: "ec", Command: "sh -c 'exit 3'"})
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := p.Wait()
	if err == nil {
		t.Fatalf("expected non-nil exit error")
	}
	if st := p.Snapshot(); st.ExitCode != 3 {
		t.Fatalf("exit code want 3 got %d", st.ExitCode)
	}
}

func TestWaitBeforeStart(t *testing.T) {
	p := New(Spec{Name: "ns", Command: "sleep 1"})
	if err := p.Wait(); err != ErrNotStarted {
		t.Fatalf("want ErrNotStarted got %v", err)
	}
}

func TestAliveAfterExit(t *testing.T) {
	p := New(Spec{Name: "quick", Command: "/bin/true"})
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = p.Wait()
	if p.Alive() {
		t.Fatalf("expected not alive after exit")
	}
}

func TestDoubleStartRejected(t *testing.T) {
	p := New(Spec{Name: "dup", Command: "sleep 2"})
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = p.Stop(time.Second) }()
	if err := p.Start(); err == nil || !strings.Contains(err.Error(), "already started") {
		t.Fatalf("second start should fail, got %v", err)
	}
}

func TestBuildCommandShellForms(t *testing.T) {
	s := Spec{Command: "sh -c 'echo hi > /dev/null'"}
	c := s.BuildCommand()
	if c.Args[0] != "/bin/sh" || c.Args[1] != "-c" || !strings.Contains(c.Args[2], "echo hi") {
		t.Fatalf("explicit shell not honored: %v", c.Args)
	}
	s = Spec{Command: "echo plain"}
	c = s.BuildCommand()
	if filepath.Base(c.Args[0]) != "echo" || c.Args[1] != "plain" {
		t.Fatalf("plain command mis-parsed: %v", c.Args)
	}
	s = Spec{Command: "echo a | cat"}
	c = s.BuildCommand()
	if c.Args[0] != "/bin/sh" {
		t.Fatalf("metacharacters should use shell: %v", c.Args)
	}
}
