package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/timmy/recipebox/internal/source"
)

// ErrNotBookmarks is returned when a file is not a recognizable bookmarks export.
var ErrNotBookmarks = errors.New("not a bookmarks export")

// Adapter implements the Source interface for an exported bookmarks file.
type Adapter struct {
	path string

	once  sync.Once
	items []source.LinkItem
	err   error
}

// NewAdapter creates a new bookmarks file adapter.
// Parameters:
//   - path: path to the exported bookmarks HTML file.
// Returns:
//   - *Adapter: adapter that loads the file on first fetch.
func NewAdapter(path string) *Adapter {
	return &Adapter{path: path}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return "bookmarks:" + filepath.Base(a.path)
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	return fmt.Sprintf("Bookmarks (%s)", filepath.Base(a.path))
}

// FetchBatch returns links from the bookmarks file.
// Parameters:
//   - ctx: context for cancellation (unused for local reads).
//   - cursor: pagination cursor as an index string.
//   - limit: maximum number of items to fetch.
// Returns:
//   - []source.LinkItem: batch of links.
//   - string: next cursor or empty if no more items.
//   - error: non-nil if the file cannot be read or is not a bookmarks export.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.LinkItem, string, error) {
	a.once.Do(a.load)
	if a.err != nil {
		return nil, "", a.err
	}
	return source.Page(a.items, cursor, limit)
}

func (a *Adapter) load() {
	data, err := os.ReadFile(a.path)
	if err != nil {
		a.err = fmt.Errorf("failed to read bookmarks file: %w", err)
		return
	}
	doc := string(data)
	if !IsBookmarksDocument(doc) {
		a.err = fmt.Errorf("%s: %w", a.path, ErrNotBookmarks)
		return
	}
	for _, link := range Parse(doc) {
		a.items = append(a.items, source.LinkItem{URL: link.URL, Title: link.Title})
	}
}
