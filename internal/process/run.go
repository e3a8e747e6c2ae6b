package process

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"syscall"
)

// Run executes a one-shot command line to completion and returns its
// trimmed combined output. It is used for setup steps delegated to
// external binaries, where the caller only needs the exit status and any
// printed value (an address, a token).
func Run(ctx context.Context, command string) (string, error) {
	spec := Spec{Command: command}
	cmd := spec.BuildCommand()
	// Own process group so a cancel can reach shell-spawned grandchildren.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("run %q: %w", command, err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		out := strings.TrimSpace(buf.String())
		if err != nil {
			return out, fmt.Errorf("run %q: %w (output: %s)", command, err, out)
		}
		return out, nil
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return strings.TrimSpace(buf.String()), ctx.Err()
	}
}
