package domain

import "errors"

var (
	ErrNoPricingRule     = errors.New("no pricing rule for service/subject")
	ErrInvalidInputRange = errors.New("quote input out of range")
	ErrQuoteNotFound     = errors.New("quote not found")
	ErrQuoteNotPending   = errors.New("quote is not pending")
)
