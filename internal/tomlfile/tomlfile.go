// Package tomlfile edits TOML configuration files by structural
// parse-modify-serialize rather than text substitution, so edits do not
// depend on the file's incidental formatting.
package tomlfile

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Read parses the file into a generic document tree.
func Read(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc := map[string]any{}
	if err := toml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// Write serializes the document tree back to the file.
func Write(path string, doc map[string]any) error {
	b, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Patch applies fn to the parsed document and writes the result back.
func Patch(path string, fn func(doc map[string]any) error) error {
	doc, err := Read(path)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return Write(path, doc)
}

// Set assigns value at the nested key path, creating intermediate tables
// as needed.
func Set(doc map[string]any, value any, keys ...string) {
	cur := doc
	for _, k := range keys[:len(keys)-1] {
		next, ok := cur[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[k] = next
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = value
}

// GetString reads a string at the nested key path.
func GetString(doc map[string]any, keys ...string) (string, bool) {
	cur := any(doc)
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[k]
		if !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}
