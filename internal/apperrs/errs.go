package apperrs

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrQuoteNotFound      = errors.New("quote not found")
	ErrInvalidSide        = errors.New("unknown trade side")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidPrice       = errors.New("price must be positive")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrPriceAboveMarket   = errors.New("sell price exceeds current market price")
)
