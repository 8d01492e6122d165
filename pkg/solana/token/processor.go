package token

import (
	"crypto/ed25519"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/blueshift-protocols/custody/pkg/solana/runtime"
)

type processor struct{}

// NewProgram returns the executable token subsystem for registration with a
// ledger runtime.
func NewProgram() runtime.Program {
	return &processor{}
}

func (p *processor) ID() ed25519.PublicKey {
	return ProgramKey
}

func (p *processor) Execute(ctx *runtime.Context) error {
	data := ctx.Data()
	if len(data) == 0 {
		return errors.New("token instruction missing data")
	}

	switch Command(data[0]) {
	case CommandInitializeMint:
		return p.initializeMint(ctx)
	case CommandInitializeAccount:
		return p.initializeAccount(ctx)
	case CommandMintTo:
		return p.mintTo(ctx)
	case CommandTransferChecked:
		return p.transferChecked(ctx)
	case CommandCloseAccount:
		return p.closeAccount(ctx)
	default:
		return errors.Errorf("unsupported token instruction: %d", data[0])
	}
}

// loadMint unmarshals an initialized mint from the account at the given
// instruction position.
func (p *processor) loadMint(ctx *runtime.Context, index int) (*runtime.Account, *Mint, error) {
	account, err := ctx.Account(index)
	if err != nil {
		return nil, nil, err
	}
	if !account.Owner.Equal(ProgramKey) {
		return nil, nil, runtime.ErrIllegalOwner
	}

	var mint Mint
	if !mint.Unmarshal(account.Data) || !mint.Initialized {
		return nil, nil, ErrUninitializedState
	}
	return account, &mint, nil
}

// loadAccount unmarshals an initialized token account from the account at
// the given instruction position.
func (p *processor) loadAccount(ctx *runtime.Context, index int) (*runtime.Account, *Account, error) {
	account, err := ctx.Account(index)
	if err != nil {
		return nil, nil, err
	}
	if !account.Owner.Equal(ProgramKey) {
		return nil, nil, runtime.ErrIllegalOwner
	}

	var state Account
	if !state.Unmarshal(account.Data) || state.State == AccountStateUninitialized {
		return nil, nil, ErrUninitializedState
	}
	if state.State == AccountStateFrozen {
		return nil, nil, ErrAccountFrozen
	}
	return account, &state, nil
}

func (p *processor) initializeMint(ctx *runtime.Context) error {
	data := ctx.Data()
	if len(data) != 2+ed25519.PublicKeySize {
		return errors.Errorf("invalid instruction data size: %d", len(data))
	}

	account, err := ctx.Account(0)
	if err != nil {
		return err
	}
	if !account.Owner.Equal(ProgramKey) {
		return runtime.ErrIllegalOwner
	}

	var mint Mint
	if mint.Unmarshal(account.Data) && mint.Initialized {
		return ErrAlreadyInUse
	}
	if len(account.Data) != MintSize {
		return errors.Errorf("invalid mint account size: %d", len(account.Data))
	}

	mint = Mint{
		Authority:   data[2:],
		Decimals:    data[1],
		Initialized: true,
	}
	copy(account.Data, mint.Marshal())
	return nil
}

func (p *processor) initializeAccount(ctx *runtime.Context) error {
	account, err := ctx.Account(0)
	if err != nil {
		return err
	}
	if !account.Owner.Equal(ProgramKey) {
		return runtime.ErrIllegalOwner
	}
	if len(account.Data) != AccountSize {
		return errors.Errorf("invalid token account size: %d", len(account.Data))
	}

	var state Account
	if state.Unmarshal(account.Data) && state.State != AccountStateUninitialized {
		return ErrAlreadyInUse
	}

	mintKey, err := ctx.AccountKey(1)
	if err != nil {
		return err
	}
	if _, _, err := p.loadMint(ctx, 1); err != nil {
		return err
	}

	owner, err := ctx.AccountKey(2)
	if err != nil {
		return err
	}

	state = Account{
		Mint:  mintKey,
		Owner: owner,
		State: AccountStateInitialized,
	}
	copy(account.Data, state.Marshal())
	return nil
}

func (p *processor) mintTo(ctx *runtime.Context) error {
	data := ctx.Data()
	if len(data) != 1+8 {
		return errors.Errorf("invalid instruction data size: %d", len(data))
	}
	amount := binary.LittleEndian.Uint64(data[1:])

	mintAccount, mint, err := p.loadMint(ctx, 0)
	if err != nil {
		return err
	}

	destAccount, dest, err := p.loadAccount(ctx, 1)
	if err != nil {
		return err
	}

	mintKey, _ := ctx.AccountKey(0)
	if !dest.Mint.Equal(mintKey) {
		return ErrMintMismatch
	}

	authority, err := ctx.AccountKey(2)
	if err != nil {
		return err
	}
	if !mint.Authority.Equal(authority) {
		return ErrOwnerMismatch
	}
	if !ctx.IsSigner(2) {
		return runtime.ErrMissingSignature
	}

	if mint.Supply > math.MaxUint64-amount {
		return ErrOverflow
	}
	if dest.Amount > math.MaxUint64-amount {
		return ErrOverflow
	}

	mint.Supply += amount
	dest.Amount += amount

	copy(mintAccount.Data, mint.Marshal())
	copy(destAccount.Data, dest.Marshal())
	return nil
}

func (p *processor) transferChecked(ctx *runtime.Context) error {
	args, err := DecompileTransferChecked(ctx.Instruction())
	if err != nil {
		return err
	}

	sourceAccount, source, err := p.loadAccount(ctx, 0)
	if err != nil {
		return err
	}

	_, mint, err := p.loadMint(ctx, 1)
	if err != nil {
		return err
	}

	destAccount, dest, err := p.loadAccount(ctx, 2)
	if err != nil {
		return err
	}

	if !source.Mint.Equal(args.Mint) || !dest.Mint.Equal(args.Mint) {
		return ErrMintMismatch
	}
	if mint.Decimals != args.Decimals {
		return ErrMintDecimalsMismatch
	}

	// The authority must be the source account's owner and must carry
	// signature authority for this call, either as a transaction signer or
	// as a reconstructed derived-address capability.
	if !source.Owner.Equal(args.Authority) {
		return ErrOwnerMismatch
	}
	if !ctx.IsSigner(3) {
		return runtime.ErrMissingSignature
	}

	if source.Amount < args.Amount {
		return ErrInsufficientFunds
	}
	if dest.Amount > math.MaxUint64-args.Amount {
		return ErrOverflow
	}

	source.Amount -= args.Amount
	dest.Amount += args.Amount

	copy(sourceAccount.Data, source.Marshal())
	copy(destAccount.Data, dest.Marshal())
	return nil
}

func (p *processor) closeAccount(ctx *runtime.Context) error {
	account, state, err := p.loadAccount(ctx, 0)
	if err != nil {
		return err
	}
	if state.Amount != 0 {
		return ErrNonZeroBalance
	}

	authority, err := ctx.AccountKey(2)
	if err != nil {
		return err
	}
	if !state.Owner.Equal(authority) {
		return ErrOwnerMismatch
	}
	if !ctx.IsSigner(2) {
		return runtime.ErrMissingSignature
	}

	if err := ctx.CreditLamports(1, account.Lamports); err != nil {
		return err
	}
	account.Lamports = 0

	return ctx.DeleteAccount(account.Key)
}
