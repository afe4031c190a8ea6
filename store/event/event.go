package event

import (
	"context"
	"fmt"

	"cdplend/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type eventStore struct {
	db *db.DB
}

// New new event store
func New(db *db.DB) core.IEventStore {
	return &eventStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Event{})
		if err := tx.AutoMigrate(core.Event{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *eventStore) Create(ctx context.Context, events []*core.Event) error {
	return s.db.Tx(func(tx *db.DB) error {
		for _, e := range events {
			if err := tx.Update().Where("trace_id=?", e.TraceID).FirstOrCreate(e).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *eventStore) ListByCDP(ctx context.Context, cdpID uint64, fromID int64, limit int) ([]*core.Event, error) {
	var events []*core.Event
	if err := s.db.View().Where("cdp_id=? and id>?", cdpID, fromID).Order("id").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (s *eventStore) List(ctx context.Context, fromID int64, limit int) ([]*core.Event, error) {
	var events []*core.Event
	if err := s.db.View().Where("id>?", fromID).Order("id").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (s *eventStore) FindByTrace(ctx context.Context, traceID string) (*core.Event, error) {
	var e core.Event
	if err := s.db.View().Where("trace_id=?", traceID).First(&e).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, fmt.Errorf("event %s: %w", traceID, core.ErrEventNotFound)
		}

		return nil, err
	}

	return &e, nil
}
