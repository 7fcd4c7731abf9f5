// =============================
// File: internal/program/errors.go
// =============================
package program

import (
	"errors"
	"fmt"
)

// ErrorCodeOffset is where Anchor starts numbering custom program errors.
const ErrorCodeOffset uint32 = 6000

// Error is a program error with a stable custom code. Handlers wrap the
// sentinels below with context; callers match with errors.Is.
type Error struct {
	Code uint32
	Name string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (0x%x): %s", e.Name, e.Code, e.Msg)
}

var registry = map[uint32]*Error{}

func newError(index uint32, name, msg string) *Error {
	e := &Error{Code: ErrorCodeOffset + index, Name: name, Msg: msg}
	registry[e.Code] = e
	return e
}

var (
	ErrUnauthorized              = newError(0, "Unauthorized", "signer is not the configured admin")
	ErrInvalidFee                = newError(1, "InvalidFee", "fee must be at most 10000 bps")
	ErrInvalidTaxBps             = newError(2, "InvalidTaxBps", "paperhand tax must be at most 10000 bps")
	ErrInvalidAmount             = newError(3, "InvalidAmount", "amount must be greater than zero")
	ErrSlippageExceeded          = newError(4, "SlippageExceeded", "output is below the minimum amount out")
	ErrEmptyPool                 = newError(5, "EmptyPool", "pool has no reserve on one side")
	ErrArithmeticOverflow        = newError(6, "ArithmeticOverflow", "checked arithmetic overflowed")
	ErrAlreadyGraduated          = newError(7, "AlreadyGraduated", "pool has already migrated to the AMM")
	ErrInsufficientBalance       = newError(8, "InsufficientBalance", "account balance is too low")
	ErrInsufficientLiquidity     = newError(9, "InsufficientLiquidity", "output exceeds the real reserve")
	ErrInvalidMetadata           = newError(10, "InvalidMetadata", "token metadata is empty or too long")
	ErrAccountNotFound           = newError(11, "AccountNotFound", "account does not exist")
	ErrAccountAlreadyInitialized = newError(12, "AccountAlreadyInitialized", "account already exists")
	ErrInvalidAccountData        = newError(13, "InvalidAccountData", "account data cannot be decoded")
	ErrInvalidAccounts           = newError(14, "InvalidAccounts", "instruction accounts do not match the expected addresses")
	ErrMigrationFailed           = newError(15, "MigrationFailed", "AMM hand-off failed")
	ErrInvalidInstruction        = newError(16, "InvalidInstruction", "instruction data cannot be decoded")
)

// FromCode returns the program error registered under code.
func FromCode(code uint32) (*Error, bool) {
	e, ok := registry[code]
	return e, ok
}

// CodeOf extracts the custom code from err, if it wraps a program error.
func CodeOf(err error) (uint32, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return 0, false
}
