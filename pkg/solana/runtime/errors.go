package runtime

import (
	"github.com/pkg/errors"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrMissingSignature   = errors.New("missing required signature")
	ErrUnknownProgram     = errors.New("unknown program")
	ErrIllegalOwner       = errors.New("account not owned by executing program")
	ErrInvocationTooDeep  = errors.New("cross-program invocation too deep")
	ErrInsufficientFunds  = errors.New("insufficient lamports")
	ErrLamportOverflow    = errors.New("lamport balance overflow")
	ErrInvalidIndex       = errors.New("account index out of range")
	ErrInvalidInstruction = errors.New("instruction index out of range")
)
