// Package store persists result lists under a per-target directory.
// Every write replaces the previous file; nothing is appended.
package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/waftester/vulnscan/pkg/jsonutil"
)

// Round-two and report file names.
const (
	TakeoverFile = "takeover_vulns.txt"
	BypassFile   = "forbidden_bypass_vulns.txt"
	SummaryFile  = "summary.json"
)

const (
	dirPerm  fs.FileMode = 0o755
	filePerm fs.FileMode = 0o644
)

// Store writes files into <root>/<target>.
type Store struct {
	dir string
}

// New returns a Store for target under root. Nothing is created until Ensure.
func New(root, target string) *Store {
	return &Store{dir: filepath.Join(root, target)}
}

// Dir returns the per-target directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the full path of a file in the store.
func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

// Ensure creates the per-target directory if it does not exist.
func (s *Store) Ensure() error {
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("%w: %v", ErrCreateDir, err)
	}
	return nil
}

// WriteList replaces name with one host per line.
func (s *Store) WriteList(name string, hosts []string) error {
	var buf bytes.Buffer
	for _, h := range hosts {
		buf.WriteString(h)
		buf.WriteByte('\n')
	}
	return s.write(name, buf.Bytes())
}

// ReadList returns the non-blank lines of name. A missing file reads as
// an empty list.
func (s *Store) ReadList(name string) ([]string, error) {
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := []string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

// WriteJSON replaces name with the indented JSON encoding of v.
func (s *Store) WriteJSON(name string, v any) error {
	data, err := jsonutil.MarshalIndent(v, "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, name, err)
	}
	return s.write(name, append(data, '\n'))
}

func (s *Store) write(name string, data []byte) error {
	if err := os.WriteFile(s.Path(name), data, filePerm); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, name, err)
	}
	return nil
}
