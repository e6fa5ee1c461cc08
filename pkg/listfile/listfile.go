package listfile

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"mvdan.cc/xurls/v2"
)

var (
	urlRe     *regexp.Regexp
	urlReErr  error
	urlReOnce sync.Once
)

func urlPattern() (*regexp.Regexp, error) {
	urlReOnce.Do(func() {
		urlRe, urlReErr = xurls.StrictMatchingScheme(`https?://`)
	})
	return urlRe, urlReErr
}

// Parse returns the entries of file when set, otherwise the comma-separated
// entries of arg. File entries are one per line; blank lines and lines
// starting with # are skipped.
func Parse(arg, file string) ([]string, error) {
	if file != "" {
		return ReadFile(file)
	}
	var out []string
	for _, part := range strings.Split(arg, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// ReadFile reads one entry per line from path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list file: %w", err)
	}
	return out, nil
}

// URLs parses a URL list and rejects entries that are not a single http(s) URL.
func URLs(arg, file string) ([]string, error) {
	entries, err := Parse(arg, file)
	if err != nil {
		return nil, err
	}
	re, err := urlPattern()
	if err != nil {
		return nil, fmt.Errorf("compile url pattern: %w", err)
	}
	for _, e := range entries {
		if re.FindString(e) != e {
			return nil, fmt.Errorf("invalid url %q", e)
		}
	}
	return entries, nil
}

// Models parses a model list and drops embedding models.
func Models(arg, file string) ([]string, error) {
	entries, err := Parse(arg, file)
	if err != nil {
		return nil, err
	}
	return FilterEmbedding(entries), nil
}

// FilterEmbedding drops model names containing "-embedding".
func FilterEmbedding(names []string) []string {
	out := names[:0:0]
	for _, n := range names {
		if !strings.Contains(n, "-embedding") {
			out = append(out, n)
		}
	}
	return out
}
