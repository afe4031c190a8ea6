package market

import (
	"context"
	"fmt"
	"time"

	"cdplend/core"
	"cdplend/service/position"

	"github.com/gofrs/uuid"
)

// Session view of the market inside one transaction. Pools and cdps are
// copied on first touch, pools are refreshed on first Pool call.
type Session struct {
	m   *Market
	now time.Time

	pools    map[string]*core.Pool
	newPools map[string]bool
	stale    map[string]bool
	restores []func()

	cdps    map[uint64]*core.CDP
	patches map[uint64]*core.CDPPatch
	created []uint64
	lastID  uint64

	config        core.MarketConfig
	status        core.OperatingStatus
	configChanged bool

	flashloans   map[uuid.UUID]*core.FlashloanReceipt
	liquidations map[uuid.UUID]*core.LiquidationReceipt
	seized       map[uuid.UUID][]core.Bucket
	burned       map[uuid.UUID]bool

	events []*core.Event
}

func newSession(m *Market) *Session {
	return &Session{
		m:            m,
		now:          m.clock.Now(),
		pools:        map[string]*core.Pool{},
		newPools:     map[string]bool{},
		stale:        map[string]bool{},
		cdps:         map[uint64]*core.CDP{},
		patches:      map[uint64]*core.CDPPatch{},
		lastID:       m.lastID,
		config:       m.config,
		status:       m.status.Clone(),
		flashloans:   map[uuid.UUID]*core.FlashloanReceipt{},
		liquidations: map[uuid.UUID]*core.LiquidationReceipt{},
		seized:       map[uuid.UUID][]core.Bucket{},
		burned:       map[uuid.UUID]bool{},
	}
}

// Now transaction time
func (s *Session) Now() time.Time {
	return s.now
}

// Config market config as seen by this transaction
func (s *Session) Config() core.MarketConfig {
	return s.config
}

func (s *Session) snapshot(l core.ILiquidityPool) {
	if snap, ok := l.(core.Snapshotter); ok {
		s.restores = append(s.restores, snap.Snapshot())
	}
}

// Pool refreshed copy of the pool of asset
func (s *Session) Pool(ctx context.Context, assetID string) (*core.Pool, error) {
	p, err := s.loadPool(ctx, assetID)
	if err != nil {
		return nil, err
	}

	if s.stale[assetID] {
		if err := s.m.engine.Refresh(ctx, p, false, false); err != nil {
			return nil, err
		}
		delete(s.stale, assetID)
	}

	return p, nil
}

// loadPool copy of the pool of asset without reading its price feed.
// A pool first touched here is refreshed by the next Pool call.
func (s *Session) loadPool(ctx context.Context, assetID string) (*core.Pool, error) {
	if p, ok := s.pools[assetID]; ok {
		return p, nil
	}

	stored, err := s.m.pools.Find(ctx, assetID)
	if err != nil {
		return nil, err
	}

	p := stored.Clone()
	s.snapshot(p.Liquidity)
	s.pools[assetID] = p
	s.stale[assetID] = true
	return p, nil
}

// AllPools refreshed copies of every listed pool
func (s *Session) AllPools(ctx context.Context) ([]*core.Pool, error) {
	stored, err := s.m.pools.All(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	pools := make([]*core.Pool, 0, len(stored)+len(s.newPools))
	for _, sp := range stored {
		p, err := s.Pool(ctx, sp.AssetID)
		if err != nil {
			return nil, err
		}

		seen[p.AssetID] = true
		pools = append(pools, p)
	}

	for asset := range s.newPools {
		if !seen[asset] {
			pools = append(pools, s.pools[asset])
		}
	}

	return pools, nil
}

func (s *Session) addPool(p *core.Pool) {
	s.snapshot(p.Liquidity)
	s.pools[p.AssetID] = p
	s.newPools[p.AssetID] = true
}

func (s *Session) findCDP(ctx context.Context, id uint64) (*core.CDP, error) {
	if c, ok := s.cdps[id]; ok {
		return c, nil
	}

	stored, err := s.m.cdps.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	c := stored.Clone()
	s.cdps[id] = c
	return c, nil
}

// Position editable copy of cdp id
func (s *Session) Position(ctx context.Context, id uint64) (*position.Position, error) {
	c, err := s.findCDP(ctx, id)
	if err != nil {
		return nil, err
	}

	return position.Wrap(c), nil
}

// AllCDPs every cdp as seen by this transaction
func (s *Session) AllCDPs(ctx context.Context) ([]*core.CDP, error) {
	stored, err := s.m.cdps.All(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[uint64]bool{}
	cdps := make([]*core.CDP, 0, len(stored)+len(s.created))
	for _, c := range stored {
		if local, ok := s.cdps[c.ID]; ok {
			c = local
		}

		seen[c.ID] = true
		cdps = append(cdps, c)
	}

	for _, id := range s.created {
		if !seen[id] {
			cdps = append(cdps, s.cdps[id])
		}
	}

	return cdps, nil
}

// Patch record changed cdp fields, implements position.Patcher
func (s *Session) Patch(ctx context.Context, id uint64, patch *core.CDPPatch) error {
	c, err := s.findCDP(ctx, id)
	if err != nil {
		return err
	}

	patch.Apply(c)
	if prev, ok := s.patches[id]; ok {
		prev.Merge(patch)
	} else {
		s.patches[id] = patch
	}

	return nil
}

func (s *Session) save(ctx context.Context, positions ...*position.Position) error {
	for _, p := range positions {
		if err := p.Save(ctx, s, s.now, s.config.MaxCDPPosition); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) newCDP(owner string, meta core.CDPMeta) *position.Position {
	s.lastID++
	c := &core.CDP{
		ID:        s.lastID,
		Owner:     owner,
		Type:      core.CDPTypeStandard,
		Meta:      meta,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}

	s.cdps[c.ID] = c
	s.created = append(s.created, c.ID)
	return position.Wrap(c)
}

func (s *Session) emit(typ core.EventType, cdpID uint64, actor, assetID string, data interface{}) {
	e := &core.Event{
		TraceID:   uuid.Must(uuid.NewV4()).String(),
		CDPID:     cdpID,
		Type:      typ,
		Actor:     actor,
		AssetID:   assetID,
		CreatedAt: s.now,
	}

	e.SetData(data)
	s.events = append(s.events, e)
}

// Events events buffered so far
func (s *Session) Events() []*core.Event {
	return s.events
}

func (s *Session) finish() error {
	if n := len(s.flashloans) + len(s.liquidations); n > 0 {
		return fmt.Errorf("%d receipts left open: %w", n, core.ErrReceiptOutstanding)
	}
	return nil
}

func (s *Session) commit(ctx context.Context) error {
	if len(s.events) > 0 {
		if err := s.m.events.Create(ctx, s.events); err != nil {
			return err
		}
	}

	for _, p := range s.pools {
		p.UpdatedAt = s.now
		if err := s.m.pools.Save(ctx, p); err != nil {
			return err
		}
	}

	isNew := map[uint64]bool{}
	for _, id := range s.created {
		isNew[id] = true
		if err := s.m.cdps.Create(ctx, s.cdps[id]); err != nil {
			return err
		}
	}

	for id, patch := range s.patches {
		if isNew[id] {
			continue
		}

		if err := s.m.cdps.Patch(ctx, id, patch); err != nil {
			return err
		}
	}

	s.m.lastID = s.lastID
	if s.configChanged {
		s.m.config = s.config
	}
	s.m.status = s.status
	return nil
}

func (s *Session) rollback() {
	for i := len(s.restores) - 1; i >= 0; i-- {
		s.restores[i]()
	}
	s.restores = nil
}

// CDP copy of cdp id as seen by this transaction
func (s *Session) CDP(ctx context.Context, id uint64) (*core.CDP, error) {
	c, err := s.findCDP(ctx, id)
	if err != nil {
		return nil, err
	}

	return c.Clone(), nil
}
