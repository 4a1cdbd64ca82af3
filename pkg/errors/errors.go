package errors

import (
	"errors"
	"fmt"
)

// notFound is a specialised not-found error that still matches ErrNotFound.
type notFound struct {
	msg string
}

func (e *notFound) Error() string { return e.msg }

func (e *notFound) Is(target error) bool { return target == ErrNotFound }

var (
	ErrNotFound = errors.New("not found")

	ErrWalletNotFound      = &notFound{msg: "wallet not found"}
	ErrPlanNotFound        = &notFound{msg: "investment plan not found"}
	ErrMasterNotFound      = &notFound{msg: "master trader not found"}
	ErrUserNotFound        = &notFound{msg: "user not found"}
	ErrTransactionNotFound = &notFound{msg: "transaction not found"}
	ErrInvestmentNotFound  = &notFound{msg: "investment not found"}
	ErrSubmissionNotFound  = &notFound{msg: "kyc submission not found"}

	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBelowMinimum      = errors.New("amount below minimum")
	ErrAboveMaximum      = errors.New("amount above maximum")
	ErrAlreadyReviewed   = errors.New("submission already reviewed")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid state transition")

	ErrNilTransaction           = errors.New("transaction is nil")
	ErrInvalidTransactionType   = errors.New("invalid transaction type")
	ErrInvalidTransactionStatus = errors.New("invalid transaction status")

	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUsernameExists     = fmt.Errorf("username already exists")
	ErrUnauthorized       = fmt.Errorf("unauthorized")

	// ErrStorage marks infrastructure faults (connectivity, timeouts, driver errors).
	ErrStorage  = errors.New("storage failure")
	ErrInternal = fmt.Errorf("internal error")
)

var business = []error{
	ErrNotFound,
	ErrInvalidAmount,
	ErrInsufficientFunds,
	ErrBelowMinimum,
	ErrAboveMaximum,
	ErrAlreadyReviewed,
	ErrForbidden,
	ErrInvalidInput,
	ErrInvalidTransition,
	ErrNilTransaction,
	ErrInvalidTransactionType,
	ErrInvalidTransactionStatus,
	ErrInvalidCredentials,
	ErrUsernameExists,
	ErrUnauthorized,
}

// IsBusiness reports whether err is a recoverable business-rule outcome
// rather than an infrastructure fault.
func IsBusiness(err error) bool {
	if err == nil || errors.Is(err, ErrStorage) {
		return false
	}
	for _, target := range business {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Storage wraps a driver error so that it matches ErrStorage.
func Storage(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStorage, op, err)
}
