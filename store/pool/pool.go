package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cdplend/core"
)

type poolStore struct {
	mu    sync.RWMutex
	pools map[string]*core.Pool
}

// New new in-memory pool store, pools are keyed by asset id
func New() core.IPoolStore {
	return &poolStore{pools: map[string]*core.Pool{}}
}

func (s *poolStore) Save(ctx context.Context, pool *core.Pool) error {
	if pool.AssetID == "" {
		return fmt.Errorf("save pool without asset id: %w", core.ErrInvalidArgument)
	}

	s.mu.Lock()
	s.pools[pool.AssetID] = pool.Clone()
	s.mu.Unlock()
	return nil
}

func (s *poolStore) Find(ctx context.Context, assetID string) (*core.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[assetID]
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", assetID, core.ErrPoolNotFound)
	}

	return p.Clone(), nil
}

func (s *poolStore) All(ctx context.Context) ([]*core.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pools := make([]*core.Pool, 0, len(s.pools))
	for _, p := range s.pools {
		pools = append(pools, p.Clone())
	}

	sort.Slice(pools, func(i, j int) bool {
		return pools[i].AssetID < pools[j].AssetID
	})

	return pools, nil
}
