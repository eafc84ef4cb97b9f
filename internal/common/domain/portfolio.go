package domain

import "time"

type Portfolio struct {
	Cash          float64 `json:"cash"`
	TotalInvested float64 `json:"total_invested"`
	TotalValue    float64 `json:"total_value"`

	Holdings     []Holding     `json:"holdings"`
	Transactions []Transaction `json:"transactions"`
}

// Holding is one open position. Quantity is always > 0 while the holding is
// present; a position that reaches 0 is removed from the list. AvgPrice is
// the volume-weighted purchase price and changes only on a BUY.
type Holding struct {
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	Quantity        float64 `json:"quantity"`
	AvgPrice        float64 `json:"avg_price"`
	CurrentPrice    float64 `json:"current_price"`
	Value           float64 `json:"value"`
	GainLoss        float64 `json:"gain_loss"`
	GainLossPercent float64 `json:"gain_loss_percent"`
}

// Recalculate refreshes the derived fields from CurrentPrice, leaving the
// cost basis untouched.
func (h *Holding) Recalculate() {
	h.Value = h.Quantity * h.CurrentPrice

	cost := h.Quantity * h.AvgPrice
	h.GainLoss = h.Value - cost

	if cost > 0 {
		h.GainLossPercent = h.GainLoss / cost * 100
	} else {
		h.GainLossPercent = 0
	}
}

// Transaction is an immutable trade record, created exactly once per
// executed trade.
type Transaction struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}
