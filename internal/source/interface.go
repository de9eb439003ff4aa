package source

import (
	"context"
	"fmt"
	"strconv"
)

// LinkItem is a candidate recipe URL produced by a source.
type LinkItem struct {
	URL   string // Absolute http(s) URL
	Title string // Optional human title captured alongside the URL
}

// Source defines the interface for recipe URL sources.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	// Parameters: none.
	// Returns:
	//   - string: stable source identifier.
	GetSourceID() string

	// GetDisplayName returns a human-readable name for this source.
	// Parameters: none.
	// Returns:
	//   - string: display-friendly source name.
	GetDisplayName() string

	// FetchBatch fetches a batch of links starting from the given cursor.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - cursor: pagination cursor or empty for first page.
	//   - limit: maximum number of items to fetch.
	// Returns:
	//   - items: batch of links.
	//   - nextCursor: cursor for the next batch or empty if done.
	//   - err: non-nil if fetching fails.
	FetchBatch(ctx context.Context, cursor string, limit int) (items []LinkItem, nextCursor string, err error)
}

// Page slices an in-memory item list using an index cursor.
// Parameters:
//   - items: full item list.
//   - cursor: index string or empty for the first page.
//   - limit: maximum number of items to return; non-positive returns the rest.
// Returns:
//   - []LinkItem: the requested page.
//   - string: next cursor or empty if no more items.
//   - error: non-nil if the cursor is malformed.
func Page(items []LinkItem, cursor string, limit int) ([]LinkItem, string, error) {
	start := 0
	if cursor != "" {
		var err error
		start, err = strconv.Atoi(cursor)
		if err != nil || start < 0 {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
	}
	if start >= len(items) {
		return []LinkItem{}, "", nil
	}

	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	next := ""
	if end < len(items) {
		next = strconv.Itoa(end)
	}
	return items[start:end], next, nil
}

// Drain reads every remaining item from src.
func Drain(ctx context.Context, src Source, batchSize int) ([]LinkItem, error) {
	var (
		all    []LinkItem
		cursor string
	)
	for {
		items, next, err := src.FetchBatch(ctx, cursor, batchSize)
		if err != nil {
			return nil, fmt.Errorf("fetch batch from %s: %w", src.GetSourceID(), err)
		}
		all = append(all, items...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}
