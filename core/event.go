package core

import (
	"context"
	"encoding/json"
	"time"
)

// EventType operation tag of an update event
type EventType string

const (
	EventCreateCDP        EventType = "create_cdp"
	EventUpdateMeta       EventType = "update_meta"
	EventLinkDelegatee    EventType = "link_delegatee"
	EventUnlinkDelegatee  EventType = "unlink_delegatee"
	EventAddCollateral    EventType = "add_collateral"
	EventRemoveCollateral EventType = "remove_collateral"
	EventBorrow           EventType = "borrow"
	EventRepay            EventType = "repay"
	EventLiquidate        EventType = "liquidate"
	EventRefinance        EventType = "refinance"
	EventFlashloan        EventType = "flashloan"
	EventContribute       EventType = "contribute"
	EventRedeem           EventType = "redeem"
	EventListPool         EventType = "list_pool"
	EventUpdatePool       EventType = "update_pool"
	EventUpdateMarket     EventType = "update_market"
	EventSweepReserve     EventType = "sweep_reserve"
)

// Event committed state change
type Event struct {
	ID        int64     `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
	TraceID   string    `sql:"size:36;unique_index:idx_cdp_events_trace_id" json:"trace_id,omitempty"`
	CDPID     uint64    `sql:"index:idx_cdp_events_cdp_id" json:"cdp_id"`
	Type      EventType `sql:"size:32" json:"type,omitempty"`
	Actor     string    `sql:"size:64" json:"actor,omitempty"`
	AssetID   string    `sql:"size:64" json:"asset_id,omitempty"`
	Data      string    `sql:"type:TEXT" json:"data,omitempty"`
	CreatedAt time.Time `sql:"default:CURRENT_TIMESTAMP;index:idx_cdp_events_created_at" json:"created_at,omitempty"`
}

// TableName gorm table name
func (Event) TableName() string {
	return "cdp_events"
}

// SetData json encode v into Data
func (e *Event) SetData(v interface{}) {
	bs, err := json.Marshal(v)
	if err != nil {
		bs = []byte("{}")
	}

	e.Data = string(bs)
}

// IEventStore event store interface
type IEventStore interface {
	Create(ctx context.Context, events []*Event) error
	ListByCDP(ctx context.Context, cdpID uint64, fromID int64, limit int) ([]*Event, error)
	List(ctx context.Context, fromID int64, limit int) ([]*Event, error)
	FindByTrace(ctx context.Context, traceID string) (*Event, error)
}
