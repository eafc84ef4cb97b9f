// Package scheduler keeps the quote store as fresh as the upstream allows.
// It polls in priority-ordered batches, reuses the shared cache, degrades
// into synthetic pricing per symbol after repeated failures, and broadcasts
// full snapshots after every batch.
package scheduler

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkorobovv/trade-mirror/internal/common/config"
	"github.com/mkorobovv/trade-mirror/internal/common/domain"
	"github.com/mkorobovv/trade-mirror/pkg/cache"
	"github.com/mkorobovv/trade-mirror/pkg/log"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Repricer receives the symbol→price map built from every completed batch.
type Repricer interface {
	Reprice(prices map[string]float64)
}

// SnapshotPublisher receives the full quote snapshot after every batch.
type SnapshotPublisher interface {
	Publish(quotes []domain.Quote)
}

// Stats aggregates scheduler performance counters.
type Stats struct {
	Successes         int64   `json:"successes"`
	Failures          int64   `json:"failures"`
	CacheReuses       int64   `json:"cache_reuses"`
	TicksSkipped      int64   `json:"ticks_skipped"`
	AvgLatencyMs      float64 `json:"avg_latency_ms"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	ActiveInstruments int     `json:"active_instruments"`
	SimulatedSymbols  int     `json:"simulated_symbols"`
}

type Scheduler struct {
	store      *quoteStore
	provider   domain.QuoteProvider
	quoteCache *cache.Cache[domain.Quote]
	publisher  SnapshotPublisher
	repricer   Repricer

	cfg  config.Scheduler
	tier tierConfig

	// inFlight is the no-overlap flag: a tick that would overlap the
	// previous one is skipped, never queued.
	inFlight atomic.Bool

	mu      sync.Mutex // guards Start/Stop/SwitchUniverse
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup

	statsMu        sync.Mutex
	successes      int64
	failures       int64
	cacheReuses    int64
	ticksSkipped   int64
	latencyRing    [latencyWindowSamples]float64
	latencyIdx     int
	latencySamples int

	now func() time.Time
}

func New(
	provider domain.QuoteProvider,
	quoteCache *cache.Cache[domain.Quote],
	publisher SnapshotPublisher,
	repricer Repricer,
	cfg config.Scheduler,
) *Scheduler {
	return &Scheduler{
		store:      newQuoteStore(),
		provider:   provider,
		quoteCache: quoteCache,
		publisher:  publisher,
		repricer:   repricer,
		cfg:        cfg,
		tier:       tierSmall,
		now:        time.Now,
	}
}

// Init seeds the store with placeholder quotes for the universe and selects
// the batch tier. Must be called before Start.
func (s *Scheduler) Init(instruments []domain.Instrument) {
	s.store.init(instruments)
	s.tier = tierFor(len(instruments))

	log.Info("scheduler initialized",
		zap.Int("instruments", len(instruments)),
		zap.String("tier", s.tier.Name),
	)
}

// Start launches the tick loop. Idempotent while running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.stop = make(chan struct{})
	s.running = true

	s.wg.Add(1)
	go s.run(s.stop)

	log.Info("scheduler started", zap.Duration("interval", s.tier.Interval))
}

// Stop cancels the tick loop and waits for any in-flight batch to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	close(s.stop)
	s.wg.Wait()
	s.running = false

	log.Info("scheduler stopped")
}

// SwitchUniverse is an explicit reset: stop, clear all scheduling state,
// reinitialize and restart. There is no incremental diffing.
func (s *Scheduler) SwitchUniverse(instruments []domain.Instrument) {
	s.Stop()

	s.store.clear()
	s.resetStats()
	s.Init(instruments)

	s.Start()
}

// ForceSimulate switches the given symbols into simulation mode immediately;
// intended for testing and demos.
func (s *Scheduler) ForceSimulate(symbols ...string) {
	now := s.now()
	for _, symbol := range symbols {
		s.store.simulate(symbol, now)
	}
}

// GetQuote is the external read path for one symbol.
func (s *Scheduler) GetQuote(symbol string) (domain.Quote, bool) {
	return s.store.get(symbol)
}

// ListQuotes returns all quotes, highest priority first.
func (s *Scheduler) ListQuotes() []domain.Quote {
	return s.store.list()
}

func (s *Scheduler) ActiveInstrumentCount() int {
	return s.store.count()
}

// SweepInactive removes quotes that have not moved within the retention
// window. Driven by a cron job in the composition root.
func (s *Scheduler) SweepInactive(window time.Duration) int {
	removed := s.store.removeInactive(s.now().Add(-window))
	if removed > 0 {
		log.Info("swept inactive quotes", zap.Int("removed", removed))
	}

	return removed
}

func (s *Scheduler) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	var avgLatency float64
	if s.latencySamples > 0 {
		n := s.latencySamples
		if n > latencyWindowSamples {
			n = latencyWindowSamples
		}
		var sum float64
		for i := 0; i < n; i++ {
			sum += s.latencyRing[i]
		}
		avgLatency = sum / float64(n)
	}

	return Stats{
		Successes:         s.successes,
		Failures:          s.failures,
		CacheReuses:       s.cacheReuses,
		TicksSkipped:      s.ticksSkipped,
		AvgLatencyMs:      avgLatency,
		CacheHitRate:      s.quoteCache.Stats().HitRate,
		ActiveInstruments: s.store.count(),
		SimulatedSymbols:  s.store.simulatedCount(),
	}
}

func (s *Scheduler) run(stop chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tier.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick(context.Background())
		}
	}
}

// tick runs one batch. Individual fetch failures are isolated per symbol;
// a panic anywhere in the batch is recovered so the loop never dies.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.statsMu.Lock()
		s.ticksSkipped++
		s.statsMu.Unlock()
		return
	}
	defer s.inFlight.Store(false)

	defer func() {
		if r := recover(); r != nil {
			log.Error("scheduler tick panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	now := s.now()

	candidates := s.store.dueCandidates(now, s.cfg.StaleAfter)
	if len(candidates) == 0 {
		return
	}
	if len(candidates) > s.tier.BatchSize {
		candidates = candidates[:s.tier.BatchSize]
	}

	// Probe the shared cache first; another path may have refreshed the
	// symbol already.
	misses := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if cached, ok := s.quoteCache.Get(c.symbol); ok {
			s.store.applyFetched(c.symbol, &cached, s.now())

			s.statsMu.Lock()
			s.cacheReuses++
			s.statsMu.Unlock()

			continue
		}
		misses = append(misses, c.symbol)
	}

	s.fetchAll(ctx, misses)

	snapshot := s.store.list()
	if s.publisher != nil {
		s.publisher.Publish(snapshot)
	}

	if s.repricer != nil {
		prices := make(map[string]float64, len(snapshot))
		for _, q := range snapshot {
			if q.Price > 0 {
				prices[q.Symbol] = q.Price
			}
		}
		s.repricer.Reprice(prices)
	}
}

// fetchAll refreshes symbols in chunks no larger than the tier's
// max-concurrency, awaited chunk by chunk, with a fixed stagger per item to
// avoid hammering the upstream all at once.
func (s *Scheduler) fetchAll(ctx context.Context, symbols []string) {
	for start := 0; start < len(symbols); start += s.tier.MaxConcurrent {
		end := start + s.tier.MaxConcurrent
		if end > len(symbols) {
			end = len(symbols)
		}

		g, gctx := errgroup.WithContext(ctx)

		for i, symbol := range symbols[start:end] {
			delay := time.Duration(i) * s.cfg.StaggerDelay
			symbol := symbol

			g.Go(func() error {
				if delay > 0 {
					select {
					case <-gctx.Done():
						return nil
					case <-time.After(delay):
					}
				}

				s.fetchOne(gctx, symbol)

				// Failures are handled per symbol and never abort the batch.
				return nil
			})
		}

		_ = g.Wait()
	}
}

func (s *Scheduler) fetchOne(ctx context.Context, symbol string) {
	started := s.now()

	quote, err := s.provider.FetchQuote(ctx, symbol)
	if err != nil {
		s.handleFetchError(symbol, err)
		return
	}

	latency := s.now().Sub(started)

	s.store.applyFetched(symbol, quote, s.now())
	if updated, ok := s.store.get(symbol); ok {
		s.quoteCache.Set(symbol, updated)
	}

	s.statsMu.Lock()
	s.successes++
	s.latencyRing[s.latencyIdx] = float64(latency.Milliseconds())
	s.latencyIdx = (s.latencyIdx + 1) % latencyWindowSamples
	s.latencySamples++
	s.statsMu.Unlock()
}

func (s *Scheduler) handleFetchError(symbol string, err error) {
	s.statsMu.Lock()
	s.failures++
	s.statsMu.Unlock()

	errCount := s.store.recordError(symbol)

	// The counter must cross the threshold: five recorded failures switch
	// the symbol over on the next failed attempt.
	if errCount > s.cfg.SimulationThreshold {
		s.store.simulate(symbol, s.now())

		log.Warn("symbol switched to simulated pricing",
			zap.String("symbol", symbol),
			zap.Int("consecutive_errors", errCount),
			zap.Error(err),
		)
		return
	}

	log.Debug("quote fetch failed",
		zap.String("symbol", symbol),
		zap.Int("consecutive_errors", errCount),
		zap.Error(err),
	)
}

func (s *Scheduler) resetStats() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	s.successes = 0
	s.failures = 0
	s.cacheReuses = 0
	s.ticksSkipped = 0
	s.latencyIdx = 0
	s.latencySamples = 0
}
