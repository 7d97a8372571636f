package batch

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"go-linkedin-scraper/internal/scraper"
)

// ParseURLs reads one URL per line. Blank lines and lines starting with # are skipped.
func ParseURLs(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line, ok := urlLine(sc.Text()); ok {
			urls = append(urls, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}

// urlLine trims line and reports whether it names a URL rather than a comment or blank.
func urlLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false
	}
	return line, true
}

// FilterURLs drops blank and comment lines from urls.
func FilterURLs(urls []string) []string {
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		if line, ok := urlLine(u); ok {
			kept = append(kept, line)
		}
	}
	return kept
}

// ReadURLFile is ParseURLs over a file.
func ReadURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()
	return ParseURLs(f)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", scraper.ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an http(s) url", scraper.ErrInvalidURL, raw)
	}
	return nil
}
