package loan

import "errors"

var (
	ErrNotFound        = errors.New("loan not found")
	ErrNotActive       = errors.New("loan is not active")
	ErrOverpayment     = errors.New("payment exceeds the outstanding amount")
	ErrMoraOutstanding = errors.New("loan has unpaid mora; restructure instead")
	ErrInvalidTerms    = errors.New("invalid loan terms")
)
