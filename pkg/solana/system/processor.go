package system

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/blueshift-protocols/custody/pkg/solana/runtime"
)

type processor struct{}

// NewProgram returns the executable account-creation service for registration
// with a ledger runtime.
func NewProgram() runtime.Program {
	return &processor{}
}

func (p *processor) ID() ed25519.PublicKey {
	return ProgramKey[:]
}

func (p *processor) Execute(ctx *runtime.Context) error {
	data := ctx.Data()
	if len(data) < 4 {
		return errors.New("instruction data too short")
	}

	switch binary.LittleEndian.Uint32(data) {
	case commandCreateAccount:
		return p.createAccount(ctx)
	case commandTransfer:
		return p.transfer(ctx)
	default:
		return errors.New("unsupported system instruction")
	}
}

func (p *processor) createAccount(ctx *runtime.Context) error {
	args, err := DecompileCreateAccount(ctx.Instruction())
	if err != nil {
		return err
	}

	// Both the funder and the address being created must sign. A derived
	// address signs through the creating program's call-scoped capability.
	if !ctx.IsSigner(0) || !ctx.IsSigner(1) {
		return runtime.ErrMissingSignature
	}

	funder, err := ctx.Account(0)
	if err != nil {
		return errors.Wrap(err, "funder does not exist")
	}
	if !funder.Owner.Equal(ed25519.PublicKey(ProgramKey[:])) {
		return runtime.ErrIllegalOwner
	}
	if funder.Lamports < args.Lamports {
		return runtime.ErrInsufficientFunds
	}

	if _, err := ctx.CreateAccount(args.Address, args.Owner, args.Lamports, args.Size); err != nil {
		return err
	}

	funder.Lamports -= args.Lamports
	return nil
}

func (p *processor) transfer(ctx *runtime.Context) error {
	data := ctx.Data()
	if len(data) != 4+8 {
		return errors.Errorf("invalid instruction data size: %d", len(data))
	}
	lamports := binary.LittleEndian.Uint64(data[4:])

	if !ctx.IsSigner(0) {
		return runtime.ErrMissingSignature
	}

	sender, err := ctx.Account(0)
	if err != nil {
		return err
	}
	if !sender.Owner.Equal(ed25519.PublicKey(ProgramKey[:])) {
		return runtime.ErrIllegalOwner
	}
	if sender.Lamports < lamports {
		return runtime.ErrInsufficientFunds
	}

	if err := ctx.CreditLamports(1, lamports); err != nil {
		return err
	}

	sender.Lamports -= lamports
	return nil
}
