// Package ledger is the only component allowed to mutate a portfolio. It
// enforces the trading invariants, applies scheduler price updates, and
// pushes the full user set to durable storage after every mutation.
package ledger

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mkorobovv/trade-mirror/internal/apperrs"
	"github.com/mkorobovv/trade-mirror/internal/common/domain"
	"github.com/mkorobovv/trade-mirror/pkg/errs"
	"github.com/mkorobovv/trade-mirror/pkg/log"
	"go.uber.org/zap"
)

// QuoteSource supplies the current market price for the sell-price
// precondition. Optional; without it the cap is not enforced.
type QuoteSource interface {
	GetQuote(symbol string) (domain.Quote, bool)
}

// TradeRequest describes one BUY or SELL order.
type TradeRequest struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Side     string  `json:"side"`
}

type userEntry struct {
	mu   sync.Mutex
	user *domain.User // replaced wholesale on mutation, never edited in place
}

type Ledger struct {
	repo   domain.UsersRepository
	quotes QuoteSource

	mu      sync.RWMutex
	users   map[string]*userEntry
	byEmail map[string]string

	now func() time.Time
}

func New(repo domain.UsersRepository) *Ledger {
	return &Ledger{
		repo:    repo,
		users:   make(map[string]*userEntry),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// SetQuoteSource wires the market-price lookup; called by the composition
// root once the scheduler exists.
func (l *Ledger) SetQuoteSource(quotes QuoteSource) {
	l.quotes = quotes
}

// Load populates the in-memory user set from storage. Call once at startup
// before serving.
func (l *Ledger) Load(ctx context.Context) error {
	users, err := l.repo.GetAllUsers(ctx)
	if err != nil {
		return errs.NewStack(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.users = make(map[string]*userEntry, len(users))
	l.byEmail = make(map[string]string, len(users))

	for _, user := range users {
		u := *user
		l.users[u.ID] = &userEntry{user: &u}
		l.byEmail[normalizeEmail(u.Email)] = u.ID
	}

	log.Info("ledger loaded", zap.Int("users", len(users)))

	return nil
}

// Register creates a user with the default starting cash.
func (l *Ledger) Register(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	email = normalizeEmail(email)

	l.mu.Lock()
	if _, taken := l.byEmail[email]; taken {
		l.mu.Unlock()
		return nil, apperrs.ErrEmailTaken
	}

	now := l.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Portfolio: domain.Portfolio{
			Cash:         domain.DefaultStartingCash,
			Holdings:     []domain.Holding{},
			Transactions: []domain.Transaction{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	user.Portfolio.TotalValue = user.Portfolio.Cash

	l.users[user.ID] = &userEntry{user: user}
	l.byEmail[email] = user.ID
	l.mu.Unlock()

	if err := l.repo.CreateUser(ctx, user); err != nil {
		l.mu.Lock()
		delete(l.users, user.ID)
		delete(l.byEmail, email)
		l.mu.Unlock()

		return nil, errs.NewStack(err)
	}

	return copyUser(user), nil
}

func (l *Ledger) GetUser(id string) (*domain.User, error) {
	entry, ok := l.entry(id)
	if !ok {
		return nil, apperrs.ErrUserNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return copyUser(entry.user), nil
}

func (l *Ledger) GetByEmail(email string) (*domain.User, error) {
	l.mu.RLock()
	id, ok := l.byEmail[normalizeEmail(email)]
	l.mu.RUnlock()

	if !ok {
		return nil, apperrs.ErrUserNotFound
	}

	return l.GetUser(id)
}

// GetPortfolio returns a deep copy with transactions newest first.
func (l *Ledger) GetPortfolio(userID string) (domain.Portfolio, error) {
	user, err := l.GetUser(userID)
	if err != nil {
		return domain.Portfolio{}, err
	}

	p := user.Portfolio
	sort.SliceStable(p.Transactions, func(i, j int) bool {
		return p.Transactions[i].Timestamp.After(p.Transactions[j].Timestamp)
	})

	return p, nil
}

// ExecuteTrade applies one order atomically for the user: either the whole
// effect (cash, holding, transaction record, totals) applies, or nothing
// does and a typed error explains why.
func (l *Ledger) ExecuteTrade(ctx context.Context, userID string, req TradeRequest) (domain.Transaction, error) {
	if req.Quantity <= 0 {
		return domain.Transaction{}, apperrs.ErrInvalidQuantity
	}
	if req.Price <= 0 {
		return domain.Transaction{}, apperrs.ErrInvalidPrice
	}
	if req.Side != domain.TransactionTypeBuy && req.Side != domain.TransactionTypeSell {
		return domain.Transaction{}, apperrs.ErrInvalidSide
	}

	// Sell price is capped at the current market quote so the cap cannot be
	// bypassed by callers.
	if req.Side == domain.TransactionTypeSell && l.quotes != nil {
		if quote, ok := l.quotes.GetQuote(req.Symbol); ok && quote.Price > 0 && req.Price > quote.Price {
			return domain.Transaction{}, apperrs.ErrPriceAboveMarket
		}
	}

	entry, ok := l.entry(userID)
	if !ok {
		return domain.Transaction{}, apperrs.ErrUserNotFound
	}

	entry.mu.Lock()

	prev := entry.user
	next := copyUser(prev)

	tx, err := applyTrade(&next.Portfolio, req, l.now())
	if err != nil {
		entry.mu.Unlock()
		return domain.Transaction{}, err
	}

	next.UpdatedAt = l.now()
	entry.user = next
	entry.mu.Unlock()

	if err := l.saveAll(ctx); err != nil {
		// A silently lost trade is unacceptable: undo and surface the error.
		entry.mu.Lock()
		if entry.user == next {
			entry.user = prev
		} else {
			log.Warn("trade rollback skipped, portfolio moved on",
				zap.String("user_id", userID))
		}
		entry.mu.Unlock()

		log.Error("trade persist failed", zap.String("user_id", userID), zap.Error(err))

		return domain.Transaction{}, err
	}

	return tx, nil
}

// Reprice applies a symbol→price map to every holder. Cost basis is never
// touched, and applying the same map twice is a no-op the second time. Runs
// without any global lock, so trades for unrelated users proceed freely.
func (l *Ledger) Reprice(prices map[string]float64) {
	if len(prices) == 0 {
		return
	}

	l.mu.RLock()
	entries := make([]*userEntry, 0, len(l.users))
	for _, entry := range l.users {
		entries = append(entries, entry)
	}
	l.mu.RUnlock()

	anyChanged := false

	for _, entry := range entries {
		entry.mu.Lock()

		changed := false
		for i := range entry.user.Portfolio.Holdings {
			h := &entry.user.Portfolio.Holdings[i]
			price, ok := prices[h.Symbol]
			if !ok || price <= 0 || price == h.CurrentPrice {
				continue
			}
			changed = true
			break
		}

		if changed {
			next := copyUser(entry.user)
			for i := range next.Portfolio.Holdings {
				h := &next.Portfolio.Holdings[i]
				if price, ok := prices[h.Symbol]; ok && price > 0 && price != h.CurrentPrice {
					h.CurrentPrice = price
					h.Recalculate()
				}
			}
			recomputeTotals(&next.Portfolio)
			entry.user = next
			anyChanged = true
		}

		entry.mu.Unlock()
	}

	if !anyChanged {
		return
	}

	if err := l.saveAll(context.Background()); err != nil {
		// Contained: repricing is idempotent and retried on the next batch.
		log.Error("reprice persist failed", zap.Error(err))
	}
}

func (l *Ledger) entry(userID string) (*userEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.users[userID]

	return entry, ok
}

// saveAll snapshots every user one lock at a time and hands the full set to
// storage. Never called while holding an entry lock.
func (l *Ledger) saveAll(ctx context.Context) error {
	l.mu.RLock()
	entries := make([]*userEntry, 0, len(l.users))
	for _, entry := range l.users {
		entries = append(entries, entry)
	}
	l.mu.RUnlock()

	users := make([]*domain.User, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		users = append(users, copyUser(entry.user))
		entry.mu.Unlock()
	}

	if err := l.repo.SaveAllUsers(ctx, users); err != nil {
		return errs.NewStack(err)
	}

	return nil
}

func applyTrade(p *domain.Portfolio, req TradeRequest, now time.Time) (domain.Transaction, error) {
	amount := req.Quantity * req.Price

	switch req.Side {
	case domain.TransactionTypeBuy:
		if p.Cash < amount {
			return domain.Transaction{}, apperrs.ErrInsufficientFunds
		}

		p.Cash -= amount
		p.TotalInvested += amount

		if i := holdingIndex(p, req.Symbol); i >= 0 {
			h := &p.Holdings[i]
			newQuantity := h.Quantity + req.Quantity
			h.AvgPrice = (h.Quantity*h.AvgPrice + amount) / newQuantity
			h.Quantity = newQuantity
			h.CurrentPrice = req.Price
			h.Recalculate()
		} else {
			h := domain.Holding{
				Symbol:       req.Symbol,
				Name:         req.Name,
				Quantity:     req.Quantity,
				AvgPrice:     req.Price,
				CurrentPrice: req.Price,
			}
			h.Recalculate()
			p.Holdings = append(p.Holdings, h)
		}

	case domain.TransactionTypeSell:
		i := holdingIndex(p, req.Symbol)
		if i < 0 || p.Holdings[i].Quantity < req.Quantity {
			return domain.Transaction{}, apperrs.ErrInsufficientShares
		}

		p.Cash += amount

		h := &p.Holdings[i]
		h.Quantity -= req.Quantity

		if h.Quantity <= 1e-9 {
			p.Holdings = append(p.Holdings[:i], p.Holdings[i+1:]...)
		} else {
			// A sell never changes the cost basis.
			h.CurrentPrice = req.Price
			h.Recalculate()
		}
	}

	tx := domain.Transaction{
		ID:        uuid.NewString(),
		Type:      req.Side,
		Symbol:    req.Symbol,
		Name:      req.Name,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Amount:    amount,
		Timestamp: now,
	}
	p.Transactions = append(p.Transactions, tx)

	recomputeTotals(p)

	return tx, nil
}

func recomputeTotals(p *domain.Portfolio) {
	total := p.Cash
	for i := range p.Holdings {
		total += p.Holdings[i].Value
	}

	p.TotalValue = math.Round(total*100) / 100
}

func holdingIndex(p *domain.Portfolio, symbol string) int {
	for i := range p.Holdings {
		if p.Holdings[i].Symbol == symbol {
			return i
		}
	}

	return -1
}

func copyUser(u *domain.User) *domain.User {
	out := *u

	out.Portfolio.Holdings = make([]domain.Holding, len(u.Portfolio.Holdings))
	copy(out.Portfolio.Holdings, u.Portfolio.Holdings)

	out.Portfolio.Transactions = make([]domain.Transaction, len(u.Portfolio.Transactions))
	copy(out.Portfolio.Transactions, u.Portfolio.Transactions)

	return &out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
