// Package urllist reads plain-text URL lists, one URL per line.
package urllist

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/timmy/recipebox/internal/source"
)

// Adapter implements the Source interface for a URL list file.
// Blank lines and lines starting with # are ignored; duplicates keep their first position.
type Adapter struct {
	path string

	once  sync.Once
	items []source.LinkItem
	err   error
}

// NewAdapter creates a new URL list adapter.
func NewAdapter(path string) *Adapter {
	return &Adapter{path: path}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return "urllist:" + filepath.Base(a.path)
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	return fmt.Sprintf("URL list (%s)", filepath.Base(a.path))
}

// FetchBatch returns links from the list file using an index cursor.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.LinkItem, string, error) {
	a.once.Do(func() {
		f, err := os.Open(a.path)
		if err != nil {
			a.err = fmt.Errorf("failed to open url list: %w", err)
			return
		}
		defer f.Close()
		a.items, a.err = ReadList(f)
	})
	if a.err != nil {
		return nil, "", a.err
	}
	return source.Page(a.items, cursor, limit)
}

// ReadList parses a URL list. Lines that are not absolute http(s) URLs are skipped.
func ReadList(r io.Reader) ([]source.LinkItem, error) {
	var items []source.LinkItem
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u, err := url.Parse(line)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		items = append(items, source.LinkItem{URL: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read url list: %w", err)
	}
	return items, nil
}
