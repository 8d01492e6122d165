package escrow

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidAmount indicates a zero deposit or receive amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidMaker indicates the supplied maker does not match the one
	// recorded in the offer.
	ErrInvalidMaker = errors.New("invalid maker")

	ErrInvalidMintA = errors.New("invalid mint a")
	ErrInvalidMintB = errors.New("invalid mint b")

	// ErrInvalidAuthority indicates an account address that does not
	// reconstruct from the offer's derivation seeds and bump.
	ErrInvalidAuthority = errors.New("authority derivation mismatch")

	// ErrInvalidVault indicates the vault account is not the custody
	// account bound to the offer authority.
	ErrInvalidVault = errors.New("invalid vault")

	// ErrInvalidState indicates a record account whose data is not a
	// well-formed escrow record of the exact expected length.
	ErrInvalidState = errors.New("invalid escrow state")

	ErrInvalidInstructionData = errors.New("invalid instruction data")
)
