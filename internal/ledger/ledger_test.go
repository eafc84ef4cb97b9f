package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mkorobovv/trade-mirror/internal/apperrs"
	"github.com/mkorobovv/trade-mirror/internal/common/domain"
	"github.com/mkorobovv/trade-mirror/internal/common/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *domain.User) {
	t.Helper()

	l := New(memory.NewUsersRepository())

	user, err := l.Register(context.Background(), "trader@example.com", "hash")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultStartingCash, user.Portfolio.Cash)

	return l, user
}

func buy(symbol string, quantity, price float64) TradeRequest {
	return TradeRequest{Symbol: symbol, Name: symbol, Quantity: quantity, Price: price, Side: domain.TransactionTypeBuy}
}

func sell(symbol string, quantity, price float64) TradeRequest {
	return TradeRequest{Symbol: symbol, Name: symbol, Quantity: quantity, Price: price, Side: domain.TransactionTypeSell}
}

func TestBuyCreatesHolding(t *testing.T) {
	l, user := newTestLedger(t)

	tx, err := l.ExecuteTrade(context.Background(), user.ID, buy("RELIANCE", 50, 1400))
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionTypeBuy, tx.Type)
	assert.Equal(t, 70000.0, tx.Amount)

	p, err := l.GetPortfolio(user.ID)
	require.NoError(t, err)

	assert.Equal(t, 430000.0, p.Cash)
	require.Len(t, p.Holdings, 1)
	assert.Equal(t, 50.0, p.Holdings[0].Quantity)
	assert.Equal(t, 1400.0, p.Holdings[0].AvgPrice)
	assert.Equal(t, 70000.0, p.Holdings[0].Value)
	assert.Equal(t, 500000.0, p.TotalValue)
	assert.Equal(t, 70000.0, p.TotalInvested)
}

func TestBuyAveragesCostBasis(t *testing.T) {
	l, user := newTestLedger(t)
	ctx := context.Background()

	_, err := l.ExecuteTrade(ctx, user.ID, buy("RELIANCE", 50, 1400))
	require.NoError(t, err)
	_, err = l.ExecuteTrade(ctx, user.ID, buy("RELIANCE", 50, 1500))
	require.NoError(t, err)

	p, err := l.GetPortfolio(user.ID)
	require.NoError(t, err)

	require.Len(t, p.Holdings, 1)
	assert.InDelta(t, 1450.0, p.Holdings[0].AvgPrice, 1e-9)
	assert.Equal(t, 100.0, p.Holdings[0].Quantity)
	assert.Equal(t, 500000.0-70000.0-75000.0, p.Cash)
}

func TestSellExhaustsHolding(t *testing.T) {
	l, user := newTestLedger(t)
	ctx := context.Background()

	_, err := l.ExecuteTrade(ctx, user.ID, buy("RELIANCE", 50, 1400))
	require.NoError(t, err)
	_, err = l.ExecuteTrade(ctx, user.ID, buy("RELIANCE", 50, 1500))
	require.NoError(t, err)

	_, err = l.ExecuteTrade(ctx, user.ID, sell("RELIANCE", 100, 1600))
	require.NoError(t, err)

	p, err := l.GetPortfolio(user.ID)
	require.NoError(t, err)

	assert.Empty(t, p.Holdings)
	assert.Equal(t, 500000.0-70000.0-75000.0+160000.0, p.Cash)
	require.Len(t, p.Transactions, 3)
}

func TestSellNeverChangesCostBasis(t *testing.T) {
	l, user := newTestLedger(t)
	ctx := context.Background()

	_, err := l.ExecuteTrade(ctx, user.ID, buy("TCS", 100, 3000))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = l.ExecuteTrade(ctx, user.ID, sell("TCS", 10, 2900))
		require.NoError(t, err)

		p, err := l.GetPortfolio(user.ID)
		require.NoError(t, err)
		require.Len(t, p.Holdings, 1)
		assert.Equal(t, 3000.0, p.Holdings[0].AvgPrice)
	}
}

func TestOversellRejectedWithoutSideEffects(t *testing.T) {
	l, user := newTestLedger(t)
	ctx := context.Background()

	_, err := l.ExecuteTrade(ctx, user.ID, buy("INFY", 10, 1500))
	require.NoError(t, err)

	before, err := l.GetPortfolio(user.ID)
	require.NoError(t, err)

	_, err = l.ExecuteTrade(ctx, user.ID, sell("INFY", 11, 1500))
	require.ErrorIs(t, err, apperrs.ErrInsufficientShares)

	after, err := l.GetPortfolio(user.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSellUnknownSymbolRejected(t *testing.T) {
	l, user := newTestLedger(t)

	_, err := l.ExecuteTrade(context.Background(), user.ID, sell("SBIN", 1, 800))
	assert.ErrorIs(t, err, apperrs.ErrInsufficientShares)
}

func TestBuyBeyondCashRejected(t *testing.T) {
	l, user := newTestLedger(t)
	ctx := context.Background()

	_, err := l.ExecuteTrade(ctx, user.ID, buy("RELIANCE", 1000, 1400))
	require.ErrorIs(t, err, apperrs.ErrInsufficientFunds)

	p, err := l.GetPortfolio(user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultStartingCash, p.Cash)
	assert.Empty(t, p.Holdings)
	assert.Empty(t, p.Transactions)
}

func TestTradeValidation(t *testing.T) {
	l, user := newTestLedger(t)
	ctx := context.Background()

	_, err := l.ExecuteTrade(ctx, user.ID, buy("RELIANCE", 0, 1400))
	assert.ErrorIs(t, err, apperrs.ErrInvalidQuantity)

	_, err = l.ExecuteTrade(ctx, user.ID, buy("RELIANCE", 10, -5))
	assert.ErrorIs(t, err, apperrs.ErrInvalidPrice)

	_, err = l.ExecuteTrade(ctx, user.ID, TradeRequest{Symbol: "RELIANCE", Quantity: 1, Price: 1, Side: "HOLD"})
	assert.ErrorIs(t, err, apperrs.ErrInvalidSide)

	_, err = l.ExecuteTrade(ctx, "nobody", buy("RELIANCE", 1, 1))
	assert.ErrorIs(t, err, apperrs.ErrUserNotFound)
}

type stubQuotes map[string]float64

func (s stubQuotes) GetQuote(symbol string) (domain.Quote, bool) {
	price, ok := s[symbol]
	return domain.Quote{Symbol: symbol, Price: price}, ok
}

func TestSellPriceCappedAtMarket(t *testing.T) {
	l, user := newTestLedger(t)
	ctx := context.Background()

	l.SetQuoteSource(stubQuotes{"RELIANCE": 1500})

	_, err := l.ExecuteTrade(ctx, user.ID, buy("RELIANCE", 10, 1400))
	require.NoError(t, err)

	_, err = l.ExecuteTrade(ctx, user.ID, sell("RELIANCE", 10, 1600))
	assert.ErrorIs(t, err, apperrs.ErrPriceAboveMarket)

	_, err = l.ExecuteTrade(ctx, user.ID, sell("RELIANCE", 10, 1500))
	assert.NoError(t, err)
}

func TestRepriceIdempotent(t *testing.T) {
	l, user := newTestLedger(t)
	ctx := context.Background()

	_, err := l.ExecuteTrade(ctx, user.ID, buy("RELIANCE", 50, 1400))
	require.NoError(t, err)

	prices := map[string]float64{"RELIANCE": 1450}

	l.Reprice(prices)
	first, err := l.GetPortfolio(user.ID)
	require.NoError(t, err)

	l.Reprice(prices)
	second, err := l.GetPortfolio(user.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first.Holdings, 1)
	assert.Equal(t, 1450.0, first.Holdings[0].CurrentPrice)
	assert.Equal(t, 72500.0, first.Holdings[0].Value)
	assert.InDelta(t, 2500.0, first.Holdings[0].GainLoss, 1e-9)
}

func TestRepriceLeavesCostBasisAlone(t *testing.T) {
	l, user := newTestLedger(t)
	ctx := context.Background()

	_, err := l.ExecuteTrade(ctx, user.ID, buy("TCS", 10, 3000))
	require.NoError(t, err)

	l.Reprice(map[string]float64{"TCS": 2500})

	p, err := l.GetPortfolio(user.ID)
	require.NoError(t, err)
	require.Len(t, p.Holdings, 1)
	assert.Equal(t, 3000.0, p.Holdings[0].AvgPrice)
	assert.InDelta(t, -5000.0, p.Holdings[0].GainLoss, 1e-9)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Register(context.Background(), "Trader@Example.com", "hash2")
	assert.ErrorIs(t, err, apperrs.ErrEmailTaken)
}

func TestGetByEmailNormalizes(t *testing.T) {
	l, user := newTestLedger(t)

	found, err := l.GetByEmail("  TRADER@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestTransactionsNewestFirst(t *testing.T) {
	l, user := newTestLedger(t)
	ctx := context.Background()

	_, err := l.ExecuteTrade(ctx, user.ID, buy("RELIANCE", 1, 1400))
	require.NoError(t, err)
	_, err = l.ExecuteTrade(ctx, user.ID, buy("TCS", 1, 3000))
	require.NoError(t, err)

	p, err := l.GetPortfolio(user.ID)
	require.NoError(t, err)

	require.Len(t, p.Transactions, 2)
	assert.False(t, p.Transactions[0].Timestamp.Before(p.Transactions[1].Timestamp))
}

type failingRepo struct {
	domain.UsersRepository
	failSaves bool
}

func (r *failingRepo) SaveAllUsers(ctx context.Context, users []*domain.User) error {
	if r.failSaves {
		return errors.New("disk on fire")
	}

	return r.UsersRepository.SaveAllUsers(ctx, users)
}

func TestPersistFailureSurfacesAndRollsBack(t *testing.T) {
	repo := &failingRepo{UsersRepository: memory.NewUsersRepository()}
	l := New(repo)

	user, err := l.Register(context.Background(), "trader@example.com", "hash")
	require.NoError(t, err)

	repo.failSaves = true

	_, err = l.ExecuteTrade(context.Background(), user.ID, buy("RELIANCE", 10, 1400))
	require.Error(t, err)

	p, err := l.GetPortfolio(user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultStartingCash, p.Cash)
	assert.Empty(t, p.Holdings)
	assert.Empty(t, p.Transactions)
}

func TestConcurrentTradesStayConsistent(t *testing.T) {
	l, user := newTestLedger(t)
	ctx := context.Background()

	const workers = 8
	const tradesPerWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < tradesPerWorker; i++ {
				_, err := l.ExecuteTrade(ctx, user.ID, buy("RELIANCE", 1, 100))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	p, err := l.GetPortfolio(user.ID)
	require.NoError(t, err)

	total := float64(workers * tradesPerWorker)
	require.Len(t, p.Holdings, 1)
	assert.Equal(t, total, p.Holdings[0].Quantity)
	assert.InDelta(t, domain.DefaultStartingCash-total*100, p.Cash, 1e-6)
	assert.Len(t, p.Transactions, workers*tradesPerWorker)
}
