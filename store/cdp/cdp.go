package cdp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cdplend/core"
)

type cdpStore struct {
	mu     sync.RWMutex
	cdps   map[uint64]*core.CDP
	lastID uint64
}

// New new in-memory cdp store
func New() core.ICDPStore {
	return &cdpStore{cdps: map[uint64]*core.CDP{}}
}

func (s *cdpStore) Create(ctx context.Context, cdp *core.CDP) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cdps[cdp.ID]; ok || cdp.ID == 0 {
		return fmt.Errorf("create cdp %d: %w", cdp.ID, core.ErrInvalidArgument)
	}

	s.cdps[cdp.ID] = cdp.Clone()
	if cdp.ID > s.lastID {
		s.lastID = cdp.ID
	}

	return nil
}

func (s *cdpStore) Find(ctx context.Context, id uint64) (*core.CDP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cdps[id]
	if !ok {
		return nil, fmt.Errorf("cdp %d: %w", id, core.ErrCDPNotFound)
	}

	return c.Clone(), nil
}

func (s *cdpStore) Patch(ctx context.Context, id uint64, patch *core.CDPPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cdps[id]
	if !ok {
		return fmt.Errorf("cdp %d: %w", id, core.ErrCDPNotFound)
	}

	patch.Apply(c)
	return nil
}

func (s *cdpStore) All(ctx context.Context) ([]*core.CDP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cdps := make([]*core.CDP, 0, len(s.cdps))
	for _, c := range s.cdps {
		cdps = append(cdps, c.Clone())
	}

	sort.Slice(cdps, func(i, j int) bool {
		return cdps[i].ID < cdps[j].ID
	})

	return cdps, nil
}

func (s *cdpStore) LastID(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastID, nil
}
