package token

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/blueshift-protocols/custody/pkg/solana"
	"github.com/blueshift-protocols/custody/pkg/solana/runtime"
	"github.com/blueshift-protocols/custody/pkg/solana/system"
)

// AssociatedTokenAccountProgramKey is the address of the associated token
// account program, the canonical custody-account creation service.
//
// Current key: ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL
var AssociatedTokenAccountProgramKey = ed25519.PublicKey{140, 151, 37, 143, 78, 36, 137, 241, 187, 61, 16, 41, 20, 142, 13, 131, 11, 90, 19, 153, 218, 255, 16, 132, 4, 142, 123, 216, 219, 233, 248, 89}

// GetAssociatedAccount returns the canonical custody account address for a
// wallet and mint. The wallet may itself be a derived authority, which is how
// escrow vaults and flash-loan pools are bound to their owning program
// addresses.
//
// Reference: https://spl.solana.com/associated-token-account#finding-the-associated-token-account-address
func GetAssociatedAccount(wallet, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return solana.FindProgramAddress(
		AssociatedTokenAccountProgramKey,
		wallet,
		ProgramKey,
		mint,
	)
}

// CreateAssociatedAccount builds the instruction creating the associated
// custody account for a wallet and mint, funded by the given payer. It
// returns the derived address alongside the instruction.
func CreateAssociatedAccount(funder, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	addr, err := GetAssociatedAccount(wallet, mint)
	if err != nil {
		return solana.Instruction{}, nil, err
	}

	// Accounts expected by this instruction:
	//
	//   0. `[writable, signer]` The funding account.
	//   1. `[writable]` The associated account to create.
	//   2. `[]` The wallet the account is bound to.
	//   3. `[]` The mint.
	return solana.NewInstruction(
		AssociatedTokenAccountProgramKey,
		[]byte{},
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(addr, false),
		solana.NewReadonlyAccountMeta(wallet, false),
		solana.NewReadonlyAccountMeta(mint, false),
	), addr, nil
}

type associatedProcessor struct{}

// NewAssociatedProgram returns the executable associated-account creation
// service for registration with a ledger runtime.
func NewAssociatedProgram() runtime.Program {
	return &associatedProcessor{}
}

func (p *associatedProcessor) ID() ed25519.PublicKey {
	return AssociatedTokenAccountProgramKey
}

func (p *associatedProcessor) Execute(ctx *runtime.Context) error {
	if ctx.NumAccounts() != 4 {
		return errors.Errorf("invalid number of accounts: %d", ctx.NumAccounts())
	}

	funder, _ := ctx.AccountKey(0)
	address, _ := ctx.AccountKey(1)
	wallet, _ := ctx.AccountKey(2)
	mint, _ := ctx.AccountKey(3)

	if !ctx.IsSigner(0) {
		return runtime.ErrMissingSignature
	}

	derived, bump, err := solana.FindProgramAddressAndBump(
		AssociatedTokenAccountProgramKey,
		wallet,
		ProgramKey,
		mint,
	)
	if err != nil {
		return errors.Wrap(err, "failed to derive associated account")
	}
	if !derived.Equal(address) {
		return errors.New("address does not match associated account derivation")
	}

	// The new account signs its own creation through the call-scoped
	// capability reconstructed from the derivation seeds.
	err = ctx.InvokeSigned(
		system.CreateAccount(
			funder,
			address,
			ProgramKey,
			system.RentExemptBalance(AccountSize),
			AccountSize,
		),
		[][]byte{wallet, ProgramKey, mint, {bump}},
	)
	if err != nil {
		return errors.Wrap(err, "failed to create associated account")
	}

	err = ctx.Invoke(InitializeAccount(address, mint, wallet))
	return errors.Wrap(err, "failed to initialize associated account")
}
