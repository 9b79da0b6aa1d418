package service

import (
	"errors"
	"fmt"
)

var (
	ErrSaleNotFound       = errors.New("sale not found")
	ErrSellerNotFound     = errors.New("no seller found for location")
	ErrSellerAmbiguous    = errors.New("location has more than one seller, seller_id is required")
	ErrUnknownSeller      = errors.New("seller not found")
	ErrCommissionNotFound = errors.New("commission not found")
	ErrRateNotFound       = errors.New("commission rate not found")
	ErrJobRunning         = errors.New("job is already running")
	ErrCurrencyMismatch   = errors.New("currency does not match the sale currency")
)

type validationErr struct {
	field   string
	message string
}

func (e *validationErr) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.message)
}

// Field returns the offending request field.
func (e *validationErr) Field() string { return e.field }

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var ve *validationErr
	return errors.As(err, &ve)
}
