package views

import (
	"encoding/json"
	"time"

	"cdplend/core"
)

// Event event view, data is inlined as json
type Event struct {
	ID        int64           `json:"id"`
	TraceID   string          `json:"trace_id"`
	CDPID     uint64          `json:"cdp_id,omitempty"`
	Type      core.EventType  `json:"type"`
	Actor     string          `json:"actor,omitempty"`
	AssetID   string          `json:"asset_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent event view
func NewEvent(e *core.Event) *Event {
	v := &Event{
		ID:        e.ID,
		TraceID:   e.TraceID,
		CDPID:     e.CDPID,
		Type:      e.Type,
		Actor:     e.Actor,
		AssetID:   e.AssetID,
		CreatedAt: e.CreatedAt,
	}

	if json.Valid([]byte(e.Data)) {
		v.Data = json.RawMessage(e.Data)
	}

	return v
}

// Events pagination of events
type Events struct {
	Events []*Event `json:"events"`
	NextID int64    `json:"next_id,omitempty"`
}
