package token

import (
	"github.com/pkg/errors"
)

var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrMintMismatch         = errors.New("account mint mismatch")
	ErrOwnerMismatch        = errors.New("account owner mismatch")
	ErrAlreadyInUse         = errors.New("account already in use")
	ErrUninitializedState   = errors.New("uninitialized account state")
	ErrNonZeroBalance       = errors.New("non-zero balance on close")
	ErrMintDecimalsMismatch = errors.New("mint decimals mismatch")
	ErrAccountFrozen        = errors.New("account frozen")
	ErrOverflow             = errors.New("amount overflow")
)
