package model

import "time"

// EventWriter provides append-oriented writes for received clickstream events.
type EventWriter interface {
	InsertEventBatch(events []*TrackEvent) error
}

// EventReader provides the read-side queries used by the HTTP API.
type EventReader interface {
	TotalEvents() (int64, error)
	PageviewCounts(limit int) ([]PageviewCount, error)
	EventTypeCounts() (map[string]int64, error)
}

// SchemaQuerier runs guarded ad-hoc analytics queries.
type SchemaQuerier interface {
	ExecuteQuery(query string) ([]map[string]any, error)
	SchemaDescription() string
	TableRowCounts() (map[string]int64, error)
}

// EventStore is the full store contract.
type EventStore interface {
	EventWriter
	EventReader
	SchemaQuerier
	DeleteBefore(cutoff time.Time) (int64, error)
}
