package market

import (
	"context"
	"errors"
	"sync"

	"cdplend/core"
	"cdplend/service/pool"

	"github.com/facebookgo/clock"
	"github.com/fox-one/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/yiplee/structs"
)

// Observer receives the events of every committed transaction
type Observer interface {
	Observe(ctx context.Context, events []*core.Event)
}

// Market orchestrates pools and cdps. Every state change runs inside
// Transact, one writer at a time.
type Market struct {
	mu        sync.Mutex
	pools     core.IPoolStore
	cdps      core.ICDPStore
	events    core.IEventStore
	engine    *pool.Engine
	clock     clock.Clock
	roles     core.Roles
	config    core.MarketConfig
	status    core.OperatingStatus
	lastID    uint64
	loaded    bool
	observers []Observer
}

// New new market
func New(
	pools core.IPoolStore,
	cdps core.ICDPStore,
	events core.IEventStore,
	engine *pool.Engine,
	clk clock.Clock,
	roles core.Roles,
	cfg core.MarketConfig,
) *Market {
	return &Market{
		pools:  pools,
		cdps:   cdps,
		events: events,
		engine: engine,
		clock:  clk,
		roles:  roles,
		config: cfg,
		status: core.OperatingStatus{},
	}
}

// AddObserver register an observer of committed events
func (m *Market) AddObserver(o Observer) {
	m.mu.Lock()
	m.observers = append(m.observers, o)
	m.mu.Unlock()
}

// Config market config
func (m *Market) Config() core.MarketConfig {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.config
}

// Status market operating status
func (m *Market) Status() core.OperatingStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.status.Clone()
}

// Transact run fn with exclusive access to the market. Everything fn changes
// is committed together when it returns nil, otherwise nothing is.
func (m *Market) Transact(ctx context.Context, fn func(s *Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := logger.FromContext(ctx).WithField("service", "market")

	if !m.loaded {
		id, err := m.cdps.LastID(ctx)
		if err != nil {
			return err
		}

		m.lastID = id
		m.loaded = true
	}

	s := newSession(m)
	if err := fn(s); err != nil {
		s.rollback()
		logError(log, err)
		return err
	}

	if err := s.finish(); err != nil {
		s.rollback()
		logError(log, err)
		return err
	}

	if err := s.commit(ctx); err != nil {
		s.rollback()
		log.WithError(err).Error("commit")
		return err
	}

	for _, e := range s.events {
		log.WithFields(logrus.Fields(structs.Map(e))).Info("cdp event")
	}

	for _, o := range m.observers {
		o.Observe(ctx, s.events)
	}

	return nil
}

func logError(log *logrus.Entry, err error) {
	var code core.ErrorCode
	if errors.As(err, &code) && code == core.ErrInvariantViolated {
		log.WithError(err).Error("invariant violated")
		return
	}

	log.WithError(err).WithField("code", code).Info("operation rejected")
}
