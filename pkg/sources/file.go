package sources

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/waftester/vulnscan/pkg/defaults"
)

// FileSource reads candidates from a local wordlist, one per line.
// Blank lines and lines starting with # are skipped. An entry that is not
// already under the target domain is treated as a label and prefixed to it,
// so "www" becomes "www.example.com".
type FileSource struct {
	path string
}

// NewFileSource creates a wordlist source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Name() string { return defaults.SourceFile }

func (f *FileSource) Discover(ctx context.Context, domain string) ([]string, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("wordlist: %w", err)
	}
	defer file.Close()

	var names []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lower := strings.ToLower(strings.TrimSuffix(line, "."))
		if lower != domain && !strings.HasSuffix(lower, "."+domain) {
			line = line + "." + domain
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("wordlist: %w", err)
	}
	return names, nil
}
