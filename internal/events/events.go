// Package events is the in-process fan-out for server-sent events. The hub
// never blocks a publisher: subscribers that fall behind lose events.
package events

import (
	"encoding/json"
	"time"
)

// Event types published over /events.
const (
	TypeSearchStarted  = "search_started"
	TypeSourceFetched  = "source_fetched"
	TypeEnrichProgress = "enrich_progress"
	TypeSearchDone     = "search_done"
	TypeSearchError    = "search_error"
	TypeLookupDone     = "lookup_done"
	TypeConfigUpdated  = "config_updated"
	TypeShutdown       = "shutdown"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// SearchProgress is the payload for search lifecycle events. Counts are
// cumulative for the run.
type SearchProgress struct {
	Term    string `json:"term,omitempty"`
	Source  string `json:"source,omitempty"`
	Stage   string `json:"stage"`
	Found   int    `json:"found"`
	Fetched int    `json:"fetched"`
	Total   int    `json:"total"`
	Error   string `json:"error,omitempty"`
}

// LookupDone is the payload for a finished parcel/case lookup.
type LookupDone struct {
	Kind    string `json:"kind"`
	Query   string `json:"query"`
	Source  string `json:"source,omitempty"`
	Matched bool   `json:"matched"`
	Score   int    `json:"score,omitempty"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
