package postgres

import (
	"time"

	"github.com/mkorobovv/trade-mirror/internal/common/domain"
)

type User struct {
	ID string `db:"id"`

	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`

	Cash          float64 `db:"cash"`
	TotalInvested float64 `db:"total_invested"`
	TotalValue    float64 `db:"total_value"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (u *User) CreateDomain() *domain.User {
	user := &domain.User{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Portfolio: domain.Portfolio{
			Cash:          u.Cash,
			TotalInvested: u.TotalInvested,
			TotalValue:    u.TotalValue,
			Holdings:      []domain.Holding{},
			Transactions:  []domain.Transaction{},
		},
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}

	return user
}

type Holding struct {
	UserID string `db:"user_id"`

	Symbol       string  `db:"symbol"`
	Name         string  `db:"name"`
	Quantity     float64 `db:"quantity"`
	AvgPrice     float64 `db:"avg_price"`
	CurrentPrice float64 `db:"current_price"`
}

func (h *Holding) CreateDomain() domain.Holding {
	holding := domain.Holding{
		Symbol:       h.Symbol,
		Name:         h.Name,
		Quantity:     h.Quantity,
		AvgPrice:     h.AvgPrice,
		CurrentPrice: h.CurrentPrice,
	}
	holding.Recalculate()

	return holding
}

type Transaction struct {
	ID     string `db:"id"`
	UserID string `db:"user_id"`

	Type     string  `db:"type"`
	Symbol   string  `db:"symbol"`
	Name     string  `db:"name"`
	Quantity float64 `db:"quantity"`
	Price    float64 `db:"price"`
	Amount   float64 `db:"amount"`

	ExecutedAt time.Time `db:"executed_at"`
}

func (t *Transaction) CreateDomain() domain.Transaction {
	return domain.Transaction{
		ID:        t.ID,
		Type:      t.Type,
		Symbol:    t.Symbol,
		Name:      t.Name,
		Quantity:  t.Quantity,
		Price:     t.Price,
		Amount:    t.Amount,
		Timestamp: t.ExecutedAt,
	}
}
