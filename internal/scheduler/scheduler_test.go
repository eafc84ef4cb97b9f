package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mkorobovv/trade-mirror/internal/common/config"
	"github.com/mkorobovv/trade-mirror/internal/common/domain"
	"github.com/mkorobovv/trade-mirror/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerFunc func(ctx context.Context, symbol string) (*domain.Quote, error)

func (f providerFunc) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	return f(ctx, symbol)
}

type countingProvider struct {
	mu    sync.Mutex
	calls int
	fn    providerFunc
}

func (p *countingProvider) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	return p.fn(ctx, symbol)
}

func (p *countingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calls
}

type recordingPublisher struct {
	mu        sync.Mutex
	snapshots [][]domain.Quote
}

func (r *recordingPublisher) Publish(quotes []domain.Quote) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshots = append(r.snapshots, quotes)
}

func (r *recordingPublisher) last() []domain.Quote {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.snapshots) == 0 {
		return nil
	}

	return r.snapshots[len(r.snapshots)-1]
}

type recordingRepricer struct {
	mu    sync.Mutex
	calls []map[string]float64
}

func (r *recordingRepricer) Reprice(prices map[string]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, prices)
}

func (r *recordingRepricer) last() map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.calls) == 0 {
		return nil
	}

	return r.calls[len(r.calls)-1]
}

func testConfig() config.Scheduler {
	return config.Scheduler{
		SimulationThreshold: 5,
		StaleAfter:          10 * time.Second,
		StaggerDelay:        0,
		RetentionWindow:     72 * time.Hour,
	}
}

func testInstruments() []domain.Instrument {
	return []domain.Instrument{
		{Symbol: "RELIANCE", Name: "Reliance Industries", Sector: "Energy", Tier: 1},
		{Symbol: "TCS", Name: "Tata Consultancy Services", Sector: "IT", Tier: 1},
		{Symbol: "UPL", Name: "UPL", Sector: "Chemicals", Tier: 3},
	}
}

func newTestScheduler(provider domain.QuoteProvider) (*Scheduler, *recordingPublisher, *recordingRepricer) {
	publisher := &recordingPublisher{}
	repricer := &recordingRepricer{}

	quoteCache := cache.New[domain.Quote](100, time.Minute, 0)

	s := New(provider, quoteCache, publisher, repricer, testConfig())
	s.Init(testInstruments())

	return s, publisher, repricer
}

func TestTickFetchesBroadcastsAndReprices(t *testing.T) {
	provider := providerFunc(func(_ context.Context, symbol string) (*domain.Quote, error) {
		return &domain.Quote{Symbol: symbol, Price: 1000, Volume: 42}, nil
	})

	s, publisher, repricer := newTestScheduler(provider)

	s.tick(context.Background())

	for _, symbol := range []string{"RELIANCE", "TCS", "UPL"} {
		q, ok := s.GetQuote(symbol)
		require.True(t, ok)
		assert.Equal(t, 1000.0, q.Price)
		assert.False(t, q.LastUpdated.IsZero())
	}

	snapshot := publisher.last()
	require.Len(t, snapshot, 3)

	prices := repricer.last()
	require.Len(t, prices, 3)
	assert.Equal(t, 1000.0, prices["RELIANCE"])

	stats := s.Stats()
	assert.EqualValues(t, 3, stats.Successes)
	assert.EqualValues(t, 0, stats.Failures)
}

func TestSimulationFallbackAfterRepeatedFailures(t *testing.T) {
	provider := providerFunc(func(_ context.Context, _ string) (*domain.Quote, error) {
		return nil, errors.New("upstream down")
	})

	publisher := &recordingPublisher{}
	repricer := &recordingRepricer{}
	quoteCache := cache.New[domain.Quote](100, time.Minute, 0)

	s := New(provider, quoteCache, publisher, repricer, testConfig())
	s.Init([]domain.Instrument{{Symbol: "RELIANCE", Name: "Reliance Industries", Sector: "Energy", Tier: 1}})

	// Five failures accumulate; the sixth attempt crosses the threshold.
	for i := 0; i < 5; i++ {
		s.tick(context.Background())
		assert.Equal(t, i+1, s.store.consecutiveErrors("RELIANCE"))
		assert.False(t, s.store.isSimulated("RELIANCE"))
	}

	s.tick(context.Background())

	assert.True(t, s.store.isSimulated("RELIANCE"))
	assert.Equal(t, 0, s.store.consecutiveErrors("RELIANCE"))

	q, ok := s.GetQuote("RELIANCE")
	require.True(t, ok)
	assert.Greater(t, q.Price, 0.0)

	assert.EqualValues(t, 6, s.Stats().Failures)
	assert.Equal(t, 1, s.Stats().SimulatedSymbols)
}

func TestSimulatedPriceStaysBounded(t *testing.T) {
	s, _, _ := newTestScheduler(providerFunc(func(_ context.Context, symbol string) (*domain.Quote, error) {
		return &domain.Quote{Symbol: symbol, Price: 1400}, nil
	}))

	s.tick(context.Background())

	for i := 0; i < 50; i++ {
		before, _ := s.GetQuote("RELIANCE")
		s.store.simulate("RELIANCE", time.Now())
		after, _ := s.GetQuote("RELIANCE")

		assert.InDelta(t, before.Price, after.Price, before.Price*maxSimulationDrift+0.01)
		assert.Greater(t, after.Price, 0.0)
		assert.False(t, after.LastUpdated.Before(before.LastUpdated))
	}
}

func TestOverlappingTickSkipped(t *testing.T) {
	s, publisher, _ := newTestScheduler(providerFunc(func(_ context.Context, symbol string) (*domain.Quote, error) {
		return &domain.Quote{Symbol: symbol, Price: 1}, nil
	}))

	s.inFlight.Store(true)
	s.tick(context.Background())

	assert.EqualValues(t, 1, s.Stats().TicksSkipped)
	assert.Nil(t, publisher.last(), "skipped tick must not broadcast")

	s.inFlight.Store(false)
}

func TestCacheProbeAvoidsRefetch(t *testing.T) {
	provider := &countingProvider{fn: func(_ context.Context, symbol string) (*domain.Quote, error) {
		return &domain.Quote{Symbol: symbol, Price: 999}, nil
	}}

	publisher := &recordingPublisher{}
	repricer := &recordingRepricer{}
	quoteCache := cache.New[domain.Quote](100, time.Minute, 0)

	s := New(provider, quoteCache, publisher, repricer, testConfig())
	s.Init([]domain.Instrument{{Symbol: "RELIANCE", Name: "Reliance Industries", Sector: "Energy", Tier: 1}})

	quoteCache.Set("RELIANCE", domain.Quote{Symbol: "RELIANCE", Price: 1234, LastUpdated: time.Now()})

	s.tick(context.Background())

	assert.Equal(t, 0, provider.callCount(), "cached symbol must not hit the upstream")

	q, ok := s.GetQuote("RELIANCE")
	require.True(t, ok)
	assert.Equal(t, 1234.0, q.Price)

	assert.EqualValues(t, 1, s.Stats().CacheReuses)
}

func TestErrorIsolationWithinBatch(t *testing.T) {
	provider := providerFunc(func(_ context.Context, symbol string) (*domain.Quote, error) {
		if symbol == "TCS" {
			return nil, errors.New("rate limited")
		}
		return &domain.Quote{Symbol: symbol, Price: 500}, nil
	})

	s, publisher, _ := newTestScheduler(provider)

	s.tick(context.Background())

	q, ok := s.GetQuote("RELIANCE")
	require.True(t, ok)
	assert.Equal(t, 500.0, q.Price)

	assert.Equal(t, 1, s.store.consecutiveErrors("TCS"))
	assert.NotNil(t, publisher.last(), "batch must complete despite per-symbol failures")

	stats := s.Stats()
	assert.EqualValues(t, 2, stats.Successes)
	assert.EqualValues(t, 1, stats.Failures)
}

func TestPanickingProviderDoesNotKillTick(t *testing.T) {
	provider := providerFunc(func(_ context.Context, _ string) (*domain.Quote, error) {
		panic("boom")
	})

	s, _, _ := newTestScheduler(provider)

	assert.NotPanics(t, func() {
		s.tick(context.Background())
	})
	assert.False(t, s.inFlight.Load(), "busy flag must clear after a panic")
}

func TestStartStopIdempotent(t *testing.T) {
	s, _, _ := newTestScheduler(providerFunc(func(_ context.Context, symbol string) (*domain.Quote, error) {
		return &domain.Quote{Symbol: symbol, Price: 1}, nil
	}))

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSwitchUniverseResetsState(t *testing.T) {
	s, _, _ := newTestScheduler(providerFunc(func(_ context.Context, symbol string) (*domain.Quote, error) {
		return &domain.Quote{Symbol: symbol, Price: 100}, nil
	}))

	s.tick(context.Background())
	require.EqualValues(t, 3, s.Stats().Successes)

	s.SwitchUniverse([]domain.Instrument{
		{Symbol: "TRENT", Name: "Trent", Sector: "Consumer", Tier: 2},
		{Symbol: "DLF", Name: "DLF", Sector: "Realty", Tier: 2},
	})
	defer s.Stop()

	assert.Equal(t, 2, s.ActiveInstrumentCount())
	assert.EqualValues(t, 0, s.Stats().Successes)

	_, ok := s.GetQuote("RELIANCE")
	assert.False(t, ok, "old universe must be gone after a switch")
}

func TestForceSimulate(t *testing.T) {
	s, _, _ := newTestScheduler(providerFunc(func(_ context.Context, symbol string) (*domain.Quote, error) {
		return &domain.Quote{Symbol: symbol, Price: 100}, nil
	}))

	s.ForceSimulate("RELIANCE")

	assert.True(t, s.store.isSimulated("RELIANCE"))

	q, ok := s.GetQuote("RELIANCE")
	require.True(t, ok)
	assert.Greater(t, q.Price, 0.0)
}

func TestSweepInactive(t *testing.T) {
	s, _, _ := newTestScheduler(providerFunc(func(_ context.Context, symbol string) (*domain.Quote, error) {
		return &domain.Quote{Symbol: symbol, Price: 100}, nil
	}))

	old := time.Now().Add(-100 * time.Hour)
	s.store.applyFetched("RELIANCE", &domain.Quote{Price: 100, LastUpdated: old}, old)

	removed := s.SweepInactive(72 * time.Hour)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, s.ActiveInstrumentCount())

	_, ok := s.GetQuote("RELIANCE")
	assert.False(t, ok)
}

func TestLastUpdatedMonotone(t *testing.T) {
	s, _, _ := newTestScheduler(providerFunc(func(_ context.Context, symbol string) (*domain.Quote, error) {
		return &domain.Quote{Symbol: symbol, Price: 100}, nil
	}))

	now := time.Now()
	s.store.applyFetched("RELIANCE", &domain.Quote{Price: 100}, now)

	// A stale fetch result must not move the clock backwards.
	s.store.applyFetched("RELIANCE", &domain.Quote{Price: 101}, now.Add(-time.Minute))

	q, ok := s.GetQuote("RELIANCE")
	require.True(t, ok)
	assert.False(t, q.LastUpdated.Before(now))
	assert.Equal(t, 101.0, q.Price)
}
