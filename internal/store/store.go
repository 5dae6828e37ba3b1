// Package store persists mapping schemes in a library catalogued by region, building type and name.
package store

import (
	"context"
	"time"
)

// Entry is one stored mapping scheme. Region, Type and Name form its key.
type Entry struct {
	ID        string    `json:"id"`
	Region    string    `json:"region"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Source    string    `json:"source,omitempty"`
	Quality   string    `json:"quality,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	XML       string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the persistence interface for the mapping scheme library.
type Store interface {
	// SaveEntry inserts e, replacing any entry with the same key.
	SaveEntry(ctx context.Context, e *Entry) error
	// GetEntry returns nil, nil when no entry has the key.
	GetEntry(ctx context.Context, region, typ, name string) (*Entry, error)
	ListRegions(ctx context.Context) ([]string, error)
	ListTypes(ctx context.Context, region string) ([]string, error)
	ListNames(ctx context.Context, region, typ string) ([]string, error)
	DeleteEntry(ctx context.Context, region, typ, name string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
