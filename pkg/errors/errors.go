package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound       = errors.New("loan not found")
	ErrCardNotFound       = errors.New("debit card not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrCurrencyMismatch   = errors.New("currency code does not match loan currency")
	ErrAlreadyRepaid      = errors.New("loan is already fully repaid")
	ErrNothingOutstanding = errors.New("loan has no outstanding balance")
	ErrCardDisabled       = errors.New("debit card is disabled")
	ErrNotOwner           = errors.New("resource is owned by another user")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound       = "LOAN_NOT_FOUND"
	ErrCodeCardNotFound       = "CARD_NOT_FOUND"
	ErrCodeInvalidArgument    = "INVALID_ARGUMENT"
	ErrCodeCurrencyMismatch   = "CURRENCY_MISMATCH"
	ErrCodeAlreadyRepaid      = "ALREADY_REPAID"
	ErrCodeNothingOutstanding = "NOTHING_OUTSTANDING"
	ErrCodeCardDisabled       = "CARD_DISABLED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeDatabaseError      = "DATABASE_ERROR"
	ErrCodeCacheError         = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapCardNotFound(cardID string) *BusinessError {
	return NewBusinessError(
		ErrCodeCardNotFound,
		fmt.Sprintf("Debit card %s not found", cardID),
		ErrCardNotFound,
	)
}

func WrapInvalidArgument(message string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidArgument, message, ErrInvalidArgument)
}

func WrapCurrencyMismatch(loanCurrency, paymentCurrency string) *BusinessError {
	return NewBusinessError(
		ErrCodeCurrencyMismatch,
		fmt.Sprintf("Payment currency %s does not match loan currency %s", paymentCurrency, loanCurrency),
		ErrCurrencyMismatch,
	)
}

func WrapAlreadyRepaid(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyRepaid,
		fmt.Sprintf("Loan %s is already fully repaid", loanID),
		ErrAlreadyRepaid,
	)
}

func WrapNothingOutstanding(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNothingOutstanding,
		fmt.Sprintf("Loan %s has no outstanding balance", loanID),
		ErrNothingOutstanding,
	)
}

func WrapCardDisabled(cardID string) *BusinessError {
	return NewBusinessError(
		ErrCodeCardDisabled,
		fmt.Sprintf("Debit card %s is disabled", cardID),
		ErrCardDisabled,
	)
}

func WrapNotOwner() *BusinessError {
	return NewBusinessError(
		ErrCodeForbidden,
		"Acting user does not own this resource",
		ErrNotOwner,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}
