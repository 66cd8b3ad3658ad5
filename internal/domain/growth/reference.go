package growth

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ReferenceLoader supplies raw WHO reference rows for one table.
type ReferenceLoader interface {
	LoadReference(ctx context.Context, g Gender, t MeasurementType) ([]ReferencePoint, error)
}

// ReferenceStore memoizes reference series for the life of the process.
// Concurrent first callers for a key share a single load, which keeps
// running when one of them goes away. Once a key is cached, reads do not
// take a lock. WHO tables are static, so entries are never invalidated.
type ReferenceStore struct {
	loader ReferenceLoader
	logger zerolog.Logger

	group  singleflight.Group
	mu     sync.Mutex // serializes writers of series
	series atomic.Pointer[map[SeriesKey]*ReferenceSeries]
}

func NewReferenceStore(loader ReferenceLoader, logger zerolog.Logger) *ReferenceStore {
	s := &ReferenceStore{
		loader: loader,
		logger: logger.With().Str("component", "reference_store").Logger(),
	}
	empty := make(map[SeriesKey]*ReferenceSeries)
	s.series.Store(&empty)
	return s
}

func (s *ReferenceStore) cached(key SeriesKey) (*ReferenceSeries, bool) {
	m := *s.series.Load()
	rs, ok := m[key]
	return rs, ok
}

// Series returns the reference series for g and t, loading it on first use.
func (s *ReferenceStore) Series(ctx context.Context, g Gender, t MeasurementType) (*ReferenceSeries, error) {
	key := SeriesKey{Gender: g, Type: t}
	if rs, ok := s.cached(key); ok {
		return rs, nil
	}

	// The shared load must outlive any single caller; each caller still
	// gives up when its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key.String(), func() (interface{}, error) {
		if rs, ok := s.cached(key); ok {
			return rs, nil
		}
		start := time.Now()
		points, err := s.loader.LoadReference(loadCtx, g, t)
		if err != nil {
			return nil, fmt.Errorf("load reference %s: %w", key, err)
		}
		rs, err := NewReferenceSeries(g, t, points)
		if err != nil {
			return nil, err
		}
		s.put(key, rs)

		evt := s.logger.Info()
		if rs.Len() == 0 {
			evt = s.logger.Warn()
		}
		evt.Str("key", key.String()).
			Int("rows", rs.Len()).
			Dur("duration", time.Since(start)).
			Msg("reference series loaded")
		return rs, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load reference %s: %w", key, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*ReferenceSeries), nil
	}
}

// All loads every (gender, measurement type) series.
func (s *ReferenceStore) All(ctx context.Context) (map[SeriesKey]*ReferenceSeries, error) {
	out := make(map[SeriesKey]*ReferenceSeries, 6)
	for _, key := range AllSeriesKeys() {
		rs, err := s.Series(ctx, key.Gender, key.Type)
		if err != nil {
			return nil, err
		}
		out[key] = rs
	}
	return out, nil
}

// Reset drops every cached series. Only tests should need this.
func (s *ReferenceStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	empty := make(map[SeriesKey]*ReferenceSeries)
	s.series.Store(&empty)
}

func (s *ReferenceStore) put(key SeriesKey, rs *ReferenceSeries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := *s.series.Load()
	next := make(map[SeriesKey]*ReferenceSeries, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[key] = rs
	s.series.Store(&next)
}
