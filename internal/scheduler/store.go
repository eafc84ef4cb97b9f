package scheduler

import (
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/mkorobovv/trade-mirror/internal/common/domain"
)

// trackedQuote layers scheduling metadata over a quote. Created once per
// symbol at universe init, mutated only by the scheduler.
type trackedQuote struct {
	quote domain.Quote

	priority          int
	consecutiveErrors int
	simulated         bool
}

// quoteStore is the process-wide symbol map. The scheduler is its only
// writer; everything else reads copies through the Scheduler accessors.
type quoteStore struct {
	mu     sync.RWMutex
	quotes map[string]*trackedQuote
}

func newQuoteStore() *quoteStore {
	return &quoteStore{quotes: make(map[string]*trackedQuote)}
}

// init replaces all tracked state with placeholder quotes for the given
// universe. Placeholders carry price 0 and a zero LastUpdated so every
// symbol is due on the first tick.
func (st *quoteStore) init(instruments []domain.Instrument) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.quotes = make(map[string]*trackedQuote, len(instruments))
	total := len(instruments)

	for rank, instrument := range instruments {
		st.quotes[instrument.Symbol] = &trackedQuote{
			quote: domain.Quote{
				Symbol: instrument.Symbol,
				Name:   instrument.Name,
			},
			priority: priorityScore(rank, total, instrument),
		}
	}
}

func (st *quoteStore) get(symbol string) (domain.Quote, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	tq, ok := st.quotes[symbol]
	if !ok {
		return domain.Quote{}, false
	}

	return tq.quote, true
}

// list returns all quotes ordered by priority desc, then symbol.
func (st *quoteStore) list() []domain.Quote {
	st.mu.RLock()
	defer st.mu.RUnlock()

	type ranked struct {
		quote    domain.Quote
		priority int
	}

	out := make([]ranked, 0, len(st.quotes))
	for _, tq := range st.quotes {
		out = append(out, ranked{quote: tq.quote, priority: tq.priority})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority > out[j].priority
		}
		return out[i].quote.Symbol < out[j].quote.Symbol
	})

	quotes := make([]domain.Quote, len(out))
	for i, r := range out {
		quotes[i] = r.quote
	}

	return quotes
}

func (st *quoteStore) count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return len(st.quotes)
}

func (st *quoteStore) simulatedCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	n := 0
	for _, tq := range st.quotes {
		if tq.simulated {
			n++
		}
	}

	return n
}

type candidate struct {
	symbol    string
	priority  int
	staleness time.Duration
}

// dueCandidates selects symbols needing a refresh: anything with a pending
// error, or anything staler than the threshold. High-priority symbols use
// half the threshold, so they refresh up to twice as often.
func (st *quoteStore) dueCandidates(now time.Time, staleAfter time.Duration) []candidate {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]candidate, 0, len(st.quotes))

	for symbol, tq := range st.quotes {
		staleness := now.Sub(tq.quote.LastUpdated)

		threshold := staleAfter
		if tq.priority > highPriorityThreshold {
			threshold /= 2
		}

		if tq.consecutiveErrors > 0 || staleness > threshold {
			out = append(out, candidate{symbol: symbol, priority: tq.priority, staleness: staleness})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority > out[j].priority
		}
		return out[i].staleness > out[j].staleness
	})

	return out
}

// applyFetched merges a fetched quote into the store, falling back to the
// previous quote for any sub-field the upstream omitted. LastUpdated never
// moves backwards.
func (st *quoteStore) applyFetched(symbol string, fetched *domain.Quote, now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()

	tq, ok := st.quotes[symbol]
	if !ok {
		return
	}

	prev := tq.quote
	next := *fetched
	next.Symbol = symbol

	if next.Name == "" {
		next.Name = prev.Name
	}
	if next.Volume == 0 {
		next.Volume = prev.Volume
	}
	if next.MarketCap == 0 {
		next.MarketCap = prev.MarketCap
	}
	if next.Change == 0 && next.ChangePercent == 0 && prev.Price > 0 && next.Price != prev.Price {
		next.Change = next.Price - prev.Price
		next.ChangePercent = next.Change / prev.Price * 100
	}
	if next.LastUpdated.IsZero() || next.LastUpdated.Before(now) {
		next.LastUpdated = now
	}
	if next.LastUpdated.Before(prev.LastUpdated) {
		next.LastUpdated = prev.LastUpdated
	}

	tq.quote = next
	tq.consecutiveErrors = 0
	tq.simulated = false
}

// recordError bumps the symbol's consecutive-error count and returns the new
// value.
func (st *quoteStore) recordError(symbol string) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	tq, ok := st.quotes[symbol]
	if !ok {
		return 0
	}

	tq.consecutiveErrors++

	return tq.consecutiveErrors
}

func (st *quoteStore) consecutiveErrors(symbol string) int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if tq, ok := st.quotes[symbol]; ok {
		return tq.consecutiveErrors
	}

	return 0
}

func (st *quoteStore) isSimulated(symbol string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if tq, ok := st.quotes[symbol]; ok {
		return tq.simulated
	}

	return false
}

// simulate advances the symbol with a bounded random walk around the last
// known price and clears its error counter, so a dead upstream never shows
// as a frozen price. A symbol that never had a real price gets a synthetic
// base so the walk has something to move around.
func (st *quoteStore) simulate(symbol string, now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()

	tq, ok := st.quotes[symbol]
	if !ok {
		return
	}

	base := tq.quote.Price
	if base <= 0 {
		base = 50 + rand.Float64()*1950
	}

	drift := (rand.Float64()*2 - 1) * maxSimulationDrift
	price := math.Round(base*(1+drift)*100) / 100
	if price <= 0 {
		price = base
	}

	tq.quote.Price = price
	tq.quote.Change = price - base
	if base > 0 {
		tq.quote.ChangePercent = tq.quote.Change / base * 100
	}
	if !now.After(tq.quote.LastUpdated) {
		now = tq.quote.LastUpdated.Add(time.Millisecond)
	}
	tq.quote.LastUpdated = now

	tq.consecutiveErrors = 0
	tq.simulated = true
}

// removeInactive drops symbols whose quotes have not moved since cutoff.
// Simulated symbols keep moving, so only entries abandoned by a universe
// switch or a stopped scheduler age out.
func (st *quoteStore) removeInactive(cutoff time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for symbol, tq := range st.quotes {
		if !tq.quote.LastUpdated.IsZero() && tq.quote.LastUpdated.Before(cutoff) {
			delete(st.quotes, symbol)
			removed++
		}
	}

	return removed
}

func (st *quoteStore) clear() {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.quotes = make(map[string]*trackedQuote)
}
