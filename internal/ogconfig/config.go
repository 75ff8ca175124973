// Package ogconfig parses the flat key=value configuration file the
// source reads at startup (spec.md §6 "Configuration file"). It is
// deliberately minimal: an external collaborator is expected to supply
// the database credentials and listen addresses; this package only
// turns text into a map the CLI entrypoint can read from.
package ogconfig

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// File is a parsed key=value configuration file.
type File map[string]string

// Load reads path and parses it as newline-separated key=value pairs.
// Blank lines and lines starting with '#' are ignored. Grounded on the
// teacher's lake/api/config loader's tolerance for comments/blank
// lines, though the source here is flat text, not YAML.
func Load(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	out := make(File)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("config %s:%d: missing '=' in %q", path, lineNo, line)
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return out, nil
}

// Get returns the value for key, or def if unset.
func (f File) Get(key, def string) string {
	if v, ok := f[key]; ok {
		return v
	}
	return def
}
