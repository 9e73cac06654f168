package source

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Key is the identity of an item across runs: the source adapter name plus
// the source-native identifier.
type Key struct {
	Source string
	ID     string
}

func (k Key) String() string {
	return k.Source + ":" + k.ID
}

// IsZero reports whether either part of the key is missing.
func (k Key) IsZero() bool {
	return strings.TrimSpace(k.Source) == "" || strings.TrimSpace(k.ID) == ""
}

// Item is one article pulled from a source. Items are immutable once fetched.
type Item struct {
	Source    string
	ID        string
	Title     string
	Body      string
	URL       string
	Category  string
	Published time.Time
}

// Key returns the item's identity.
func (i Item) Key() Key {
	return Key{Source: i.Source, ID: i.ID}
}

// Category identifies one stream to pull from a source.
type Category struct {
	// Name is the category label used for voice selection and filenames.
	Name string
	// Stream is the source-specific selector (a FreshRSS stream id; unused
	// by Wallabag).
	Stream string
}

// Listing is one entry returned by Source.Categories.
type Listing struct {
	Kind  string
	ID    string
	Label string
	URL   string
}

// Source is an external article collaborator.
type Source interface {
	Name() string
	// ListItems returns up to limit items for category. Implementations
	// return an error wrapped with services.ErrSourceUnavailable when the
	// remote cannot be reached or answers with garbage.
	ListItems(ctx context.Context, category Category, limit int) ([]Item, error)
	// Categories lists the labels and feeds the source exposes.
	Categories(ctx context.Context) ([]Listing, error)
}

// OldestFirst orders items by publication time ascending. Items without a
// publication time sort first; ties keep their source order.
func OldestFirst(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Published.Before(items[j].Published)
	})
}
