package models

import "errors"

var (
	// ErrValidation is returned when a loan cannot be constructed from its fields.
	ErrValidation = errors.New("invalid loan")

	// ErrPayment is returned when a payment is negative or exceeds what is owed.
	ErrPayment = errors.New("invalid payment")
)

const (
	MaxPrincipal    = 1_000_000_000 // 1 billion
	MaxInterestRate = 1000          // 1000% per year
)
