package types

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every error that rejects a transaction or a
	// block because of its content. The committed history is untouched.
	ErrValidation = errors.New("validation failed")

	// ErrCollaborator is matched by failures of the root chain or of the
	// remote child-chain service. Such calls are never retried when they
	// mutate state.
	ErrCollaborator = errors.New("collaborator failure")

	// ErrMalformedEncoding is wrapped by every decode failure.
	ErrMalformedEncoding = errors.New("malformed encoding")

	// ErrBlockNotFound is returned for a deposit block that was never
	// applied or a committed checkpoint that is missing.
	ErrBlockNotFound = errors.New("block not found")
)

// Validation errors. Each satisfies errors.Is(err, ErrValidation).
var (
	ErrInvalidPrevBlock      = newValidationError("InvalidPrevBlock", "prev block is in the future")
	ErrPreviousTxNotFound    = newValidationError("PreviousTxNotFound", "previous transaction not found")
	ErrTxAlreadySpent        = newValidationError("TxAlreadySpent", "previous transaction already spent")
	ErrCoinAlreadyIncluded   = newValidationError("CoinAlreadyIncluded", "coin already moved in this block")
	ErrInvalidTxSignature    = newValidationError("InvalidTxSignature", "transaction not signed by the coin owner")
	ErrInvalidBlockSignature = newValidationError("InvalidBlockSignature", "block not signed by the authority")
	ErrTxAmountMismatch      = newValidationError("TxAmountMismatch", "denomination differs from the previous transaction")
)

var validationErrors = []*ValidationError{
	ErrInvalidPrevBlock,
	ErrPreviousTxNotFound,
	ErrTxAlreadySpent,
	ErrCoinAlreadyIncluded,
	ErrInvalidTxSignature,
	ErrInvalidBlockSignature,
	ErrTxAmountMismatch,
}

// ValidationError is a rejection with a stable code that survives transport.
type ValidationError struct {
	Code string
	msg  string
}

func newValidationError(code, msg string) *ValidationError {
	return &ValidationError{Code: code, msg: msg}
}

func (e *ValidationError) Error() string { return e.msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ValidationCode returns the code of the validation error wrapped by err.
func ValidationCode(err error) (string, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Code, true
	}
	return "", false
}

// ValidationErrorByCode maps a code back to its sentinel.
func ValidationErrorByCode(code string) (*ValidationError, bool) {
	for _, e := range validationErrors {
		if e.Code == code {
			return e, true
		}
	}
	return nil, false
}

// CollaboratorError reports a failed call to an external collaborator.
type CollaboratorError struct {
	Op  string
	Err error
}

// NewCollaboratorError wraps err, returning nil for a nil err.
func NewCollaboratorError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Op: op, Err: err}
}

func (e *CollaboratorError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *CollaboratorError) Unwrap() error { return e.Err }

func (e *CollaboratorError) Is(target error) bool { return target == ErrCollaborator }
