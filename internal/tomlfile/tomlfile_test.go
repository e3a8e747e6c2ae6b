package tomlfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPatchPreservesUnrelatedKeys(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.toml")
	orig := `
moniker = "node-0"

[rpc]
laddr = "tcp://127.0.0.1:26657"

[consensus]
timeout_commit = "5s"
`
	if err := os.WriteFile(p, []byte(orig), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := Patch(p, func(doc map[string]any) error {
		Set(doc, "1s", "consensus", "timeout_commit")
		Set(doc, []string{"*"}, "rpc", "cors_allowed_origins")
		return nil
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	doc, err := Read(p)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if v, _ := GetString(doc, "consensus", "timeout_commit"); v != "1s" {
		t.Fatalf("timeout_commit not patched: %q", v)
	}
	if v, _ := GetString(doc, "rpc", "laddr"); v != "tcp://127.0.0.1:26657" {
		t.Fatalf("unrelated key lost: %q", v)
	}
	if v, _ := GetString(doc, "moniker"); v != "node-0" {
		t.Fatalf("top-level key lost: %q", v)
	}
}

func TestSetCreatesNestedTables(t *testing.T) {
	doc := map[string]any{}
	Set(doc, "HASH", "Header", "TrustedHash")
	if v, ok := GetString(doc, "Header", "TrustedHash"); !ok || v != "HASH" {
		t.Fatalf("nested set failed: %v", doc)
	}
}

func TestGetStringMissing(t *testing.T) {
	doc := map[string]any{"a": map[string]any{"b": int64(1)}}
	if _, ok := GetString(doc, "a", "missing"); ok {
		t.Fatalf("missing key should not be found")
	}
	if _, ok := GetString(doc, "a", "b"); ok {
		t.Fatalf("non-string value should not be returned as string")
	}
}
