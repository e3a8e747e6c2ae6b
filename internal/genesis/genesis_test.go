package genesis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/nodeward/devnetup/internal/config"
	"github.com/nodeward/devnetup/internal/tomlfile"
)

// fakeChainBinary returns a shell script standing in for the chain binary.
// "init" creates the home layout with genesis and config files; every other
// subcommand appends its name to a call log.
func fakeChainBinary(t *testing.T, dir, home string) string {
	t.Helper()
	script := filepath.Join(dir, "chaind")
	body := fmt.Sprintf(`#!/bin/sh
log=%s/calls.log
echo "$1" >> "$log"
case "$1" in
init)
  mkdir -p %s/config
  echo '{}' > %s/config/genesis.json
  printf 'moniker = "m"\n[rpc]\nladdr = "tcp://127.0.0.1:26657"\n[consensus]\ntimeout_commit = "5s"\n' > %s/config/config.toml
  printf 'minimum-gas-prices = ""\n[api]\nenable = false\n[grpc]\naddress = "localhost:9090"\n' > %s/config/app.toml
  ;;
keys)
  if [ "$2" = "show" ]; then echo cosmos1fakeaddress; fi
  ;;
esac
exit 0
`, dir, home, home, home, home)
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}
	return script
}

func testChain(t *testing.T) (config.ChainConfig, string) {
	dir := t.TempDir()
	home := filepath.Join(dir, "chain")
	c := config.Default().Chain
	c.Binary = fakeChainBinary(t, dir, home)
	c.Home = home
	return c, dir
}

func TestEnsureRunsFullSequenceAndPatches(t *testing.T) {
	c, dir := testChain(t)
	r := NewRunner(c, nil)
	if r.Initialized() {
		t.Fatalf("fresh home reported initialized")
	}
	if err := r.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	calls, err := os.ReadFile(filepath.Join(dir, "calls.log"))
	if err != nil {
		t.Fatalf("call log: %v", err)
	}
	want := "init\nkeys\nkeys\ngenesis\ngenesis\ngenesis\n"
	if string(calls) != want {
		t.Fatalf("call sequence:\n%s\nwant:\n%s", calls, want)
	}

	doc, err := tomlfile.Read(filepath.Join(c.Home, "config", "config.toml"))
	if err != nil {
		t.Fatalf("read config.toml: %v", err)
	}
	if v, _ := tomlfile.GetString(doc, "consensus", "timeout_commit"); v != "1s" {
		t.Fatalf("timeout_commit not patched: %q", v)
	}
	app, err := tomlfile.Read(filepath.Join(c.Home, "config", "app.toml"))
	if err != nil {
		t.Fatalf("read app.toml: %v", err)
	}
	if v, _ := tomlfile.GetString(app, "grpc", "address"); v != "0.0.0.0:9090" {
		t.Fatalf("grpc address not patched: %q", v)
	}
}

func TestEnsureSkipsInitializedHome(t *testing.T) {
	c, dir := testChain(t)
	if err := os.MkdirAll(filepath.Join(c.Home, "config"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(c.Home, "config", "genesis.json"), []byte("{}"), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	r := NewRunner(c, nil)
	if err := r.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "calls.log")); !os.IsNotExist(err) {
		t.Fatalf("binary should not run for initialized home")
	}
}

func TestEnsureFailsWhenStepFails(t *testing.T) {
	c, _ := testChain(t)
	c.Binary = "/bin/false"
	r := NewRunner(c, nil)
	if err := r.Ensure(context.Background()); err == nil {
		t.Fatalf("expected error when init step fails")
	}
}
