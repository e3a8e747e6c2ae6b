package logger

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestWritersDefaultPaths(t *testing.T) {
	dir := t.TempDir()
	c := Config{Dir: dir}
	out, errW, err := c.Writers("validator")
	if err != nil {
		t.Fatalf("writers: %v", err)
	}
	if out == nil || errW == nil {
		t.Fatalf("expected both writers when dir is set")
	}
	if _, err := out.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write stdout: %v", err)
	}
	_ = out.Close()
	_ = errW.Close()
	if _, err := filepath.Glob(filepath.Join(dir, "validator.stdout.log")); err != nil {
		t.Fatalf("glob: %v", err)
	}
}

func TestWritersNoneConfigured(t *testing.T) {
	out, errW, err := Config{}.Writers("x")
	if err != nil {
		t.Fatalf("writers: %v", err)
	}
	if out != nil || errW != nil {
		t.Fatalf("expected nil writers without dir or explicit paths")
	}
}

func TestNewLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	lg := New(&buf, "warn")
	lg.Info("hidden")
	lg.Warn("shown")
	s := buf.String()
	if strings.Contains(s, "hidden") {
		t.Fatalf("info line leaked at warn level: %s", s)
	}
	if !strings.Contains(s, "shown") {
		t.Fatalf("warn line missing: %s", s)
	}
}
