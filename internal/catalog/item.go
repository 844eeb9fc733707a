// Package catalog holds the launcher's searchable items, grouped by the
// source that produced them (installed apps, bookmarks, web searches and so
// on). Sources arrive as YAML files, HTTP uploads or Kafka updates and are
// replaced wholesale; the ranking engine only ever sees the flattened
// snapshot.
package catalog

import (
	"context"
	"time"
)

// Item is one launchable entry. ID must be unique across the whole catalog;
// Name is what the user sees and what queries are matched against.
type Item struct {
	ID       string            `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Source   string            `json:"source,omitempty" yaml:"source,omitempty"`
	Icon     string            `json:"icon,omitempty" yaml:"icon,omitempty"`
	Kind     string            `json:"kind,omitempty" yaml:"kind,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func (i Item) Key() string   { return i.ID }
func (i Item) Label() string { return i.Name }

// SourceUpdate replaces (or, with Deleted set, removes) every item of one
// source. It is the payload of the catalog-updates topic.
type SourceUpdate struct {
	Source    string    `json:"source"`
	Items     []Item    `json:"items,omitempty"`
	Deleted   bool      `json:"deleted,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SourceInfo describes one registered source.
type SourceInfo struct {
	ID        string    `json:"id"`
	Items     int       `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sink accepts source updates. Store implements it; the ingestion publisher
// implements it too when updates travel through Kafka.
type Sink interface {
	Apply(ctx context.Context, update SourceUpdate) error
}
