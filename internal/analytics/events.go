// Package analytics turns searches and selections into events, ships them
// through Kafka and aggregates them into launcher usage stats: how often the
// first result is the one picked, which queries find nothing, which items
// get launched most.
package analytics

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventSelection  EventType = "selection"
)

// Event is anything the collector can ship.
type Event interface {
	Kind() EventType
}

// SearchEvent is emitted for every evaluated query. Type is EventZeroResult
// when a non-empty query matched nothing.
type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Returned   int       `json:"returned"`
	Total      int       `json:"total"`
	LearnedTop bool      `json:"learned_top"`
	EmptyQuery bool      `json:"empty_query"`
	LatencyUs  int64     `json:"latency_us"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e SearchEvent) Kind() EventType { return e.Type }

// SelectionEvent is emitted when the user launches an item.
type SelectionEvent struct {
	Type         EventType `json:"type"`
	Query        string    `json:"query"`
	ItemID       string    `json:"item_id"`
	Rank         int       `json:"rank"`
	TopChanged   bool      `json:"top_changed"`
	LearnedCount int       `json:"learned_count"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}

func (e SelectionEvent) Kind() EventType { return e.Type }

// DecodeEvent reads the type field first and decodes value into the
// matching event struct.
func DecodeEvent(value []byte) (Event, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(value, &head); err != nil {
		return nil, fmt.Errorf("decoding event type: %w", err)
	}
	switch head.Type {
	case EventSearch, EventZeroResult:
		var e SearchEvent
		if err := json.Unmarshal(value, &e); err != nil {
			return nil, fmt.Errorf("decoding search event: %w", err)
		}
		return e, nil
	case EventSelection:
		var e SelectionEvent
		if err := json.Unmarshal(value, &e); err != nil {
			return nil, fmt.Errorf("decoding selection event: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", head.Type)
	}
}
