package flashloan

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidAmount indicates a zero borrow amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidInstructionIndex indicates a Borrow that is not the first
	// instruction of its transaction.
	ErrInvalidInstructionIndex = errors.New("borrow must be the first instruction")

	// ErrMissingRepay indicates the transaction does not end with a
	// well-formed Repay instruction.
	ErrMissingRepay = errors.New("missing repay instruction")

	// ErrMissingBorrow indicates the transaction does not begin with a
	// well-formed Borrow instruction.
	ErrMissingBorrow = errors.New("missing borrow instruction")

	// ErrInvalidProgram indicates a sibling instruction targeting a
	// different program where this one was required.
	ErrInvalidProgram = errors.New("invalid program")

	// ErrInvalidBorrowerAccount indicates the sibling instruction references
	// a different borrower custody account.
	ErrInvalidBorrowerAccount = errors.New("invalid borrower custody account")

	// ErrInvalidPoolAccount indicates a pool custody account that is not
	// bound to the pool authority, or a sibling instruction referencing a
	// different pool custody account.
	ErrInvalidPoolAccount = errors.New("invalid pool custody account")

	// ErrInvalidAuthority indicates a pool authority that does not match
	// the protocol derivation.
	ErrInvalidAuthority = errors.New("authority derivation mismatch")

	// ErrOverflow indicates fee or repayment arithmetic exceeding uint64.
	ErrOverflow = errors.New("arithmetic overflow")

	ErrInvalidInstructionData = errors.New("invalid instruction data")
)
