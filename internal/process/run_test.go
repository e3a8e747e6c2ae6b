package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestRunCapturesOutput(t *testing.T) {
	out, err := Run(context.Background(), "echo hello")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "hello" {
		t.Fatalf("want hello got %q", out)
	}
}

func TestRunFailureIncludesOutput(t *testing.T) {
	_, err := Run(context.Background(), "sh -c 'echo boom >&2; exit 1'")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := Run(ctx, "sleep 5")
	if err == nil {
		t.Fatalf("expected context error")
	}
}

func TestRunCancelKillsGrandchild(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "pid")
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	script := fmt.Sprintf("sh -c 'sleep 30 & echo $! > %s; wait'", pidFile)
	_, err := Run(ctx, script)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("parse pid: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if syscall.Kill(pid, 0) != nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("background child %d still alive after cancel", pid)
}
