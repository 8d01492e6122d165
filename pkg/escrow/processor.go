package escrow

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/blueshift-protocols/custody/pkg/solana"
	"github.com/blueshift-protocols/custody/pkg/solana/runtime"
	"github.com/blueshift-protocols/custody/pkg/solana/system"
	"github.com/blueshift-protocols/custody/pkg/solana/token"
)

type processor struct {
	log *logrus.Entry
}

// NewProgram returns the executable escrow program for registration with a
// ledger runtime.
func NewProgram() runtime.Program {
	return &processor{
		log: logrus.StandardLogger().WithField("type", "escrow/processor"),
	}
}

func (p *processor) ID() ed25519.PublicKey {
	return ProgramKey
}

func (p *processor) Execute(ctx *runtime.Context) error {
	data := ctx.Data()
	if len(data) == 0 {
		return ErrInvalidInstructionData
	}

	switch Command(data[0]) {
	case CommandMake:
		return p.make(ctx)
	case CommandTake:
		return p.take(ctx)
	case CommandRefund:
		return p.refund(ctx)
	default:
		return ErrInvalidInstructionData
	}
}

// make creates the escrow record and vault at the offer's derived address
// and moves the maker's deposit into the vault. Creation and deposit commit
// or fail as one unit with the enclosing transaction.
func (p *processor) make(ctx *runtime.Context) error {
	args, err := parseMakeArgs(ctx.Data())
	if err != nil {
		return err
	}
	if args.ReceiveAmount == 0 || args.DepositAmount == 0 {
		return ErrInvalidAmount
	}

	if ctx.NumAccounts() < 6 {
		return errors.Errorf("invalid number of accounts: %d", ctx.NumAccounts())
	}
	if !ctx.IsSigner(0) {
		return runtime.ErrMissingSignature
	}

	maker, _ := ctx.AccountKey(0)
	escrowKey, _ := ctx.AccountKey(1)
	mintA, _ := ctx.AccountKey(2)
	mintB, _ := ctx.AccountKey(3)
	makerTokenA, _ := ctx.AccountKey(4)
	vault, _ := ctx.AccountKey(5)

	derived, bump, err := GetEscrowAddress(&GetEscrowAddressArgs{Maker: maker, Seed: args.Seed})
	if err != nil {
		return errors.Wrap(err, "failed to derive offer address")
	}
	if !derived.Equal(escrowKey) {
		return ErrInvalidAuthority
	}

	signerSeeds := [][]byte{EscrowPrefix, maker, seedBytes(args.Seed), {bump}}

	// The record signs its own creation through the derived capability.
	// An existing account at this address means a duplicate (maker, seed)
	// pair and fails the whole call.
	err = ctx.InvokeSigned(
		system.CreateAccount(
			maker,
			escrowKey,
			ProgramKey,
			system.RentExemptBalance(AccountSize),
			AccountSize,
		),
		signerSeeds,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create escrow record")
	}

	record, err := ctx.Account(1)
	if err != nil {
		return err
	}
	state := State{
		Seed:          args.Seed,
		Maker:         maker,
		MintA:         mintA,
		MintB:         mintB,
		ReceiveAmount: args.ReceiveAmount,
		Bump:          bump,
	}
	copy(record.Data, state.Marshal())

	expectedVault, err := GetVaultAddress(escrowKey, mintA)
	if err != nil {
		return errors.Wrap(err, "failed to derive vault address")
	}
	if !expectedVault.Equal(vault) {
		return ErrInvalidVault
	}

	createVault, _, err := token.CreateAssociatedAccount(maker, escrowKey, mintA)
	if err != nil {
		return errors.Wrap(err, "failed to build vault creation")
	}
	if err := ctx.Invoke(createVault); err != nil {
		return errors.Wrap(err, "failed to create vault")
	}

	decimals, err := p.mintDecimals(ctx, 2)
	if err != nil {
		return err
	}
	// The requested mint must be real too, or the offer could never be
	// taken.
	if _, err := p.mintDecimals(ctx, 3); err != nil {
		return err
	}

	err = ctx.Invoke(token.TransferChecked(
		makerTokenA,
		mintA,
		vault,
		maker,
		args.DepositAmount,
		decimals,
	))
	if err != nil {
		return errors.Wrap(err, "failed to deposit into vault")
	}

	p.log.WithFields(logrus.Fields{
		"escrow": solana.Base58(escrowKey),
		"maker":  solana.Base58(maker),
	}).Debug("offer created")

	return nil
}

// take settles an open offer. The taker's counter-payment happens strictly
// before the vault is touched, so a failure there leaves the offer open and
// untouched.
func (p *processor) take(ctx *runtime.Context) error {
	if ctx.NumAccounts() < 9 {
		return errors.Errorf("invalid number of accounts: %d", ctx.NumAccounts())
	}
	if !ctx.IsSigner(0) {
		return runtime.ErrMissingSignature
	}

	taker, _ := ctx.AccountKey(0)

	record, state, err := p.loadRecord(ctx, 2)
	if err != nil {
		return err
	}

	maker, _ := ctx.AccountKey(1)
	mintA, _ := ctx.AccountKey(3)
	mintB, _ := ctx.AccountKey(4)
	vault, _ := ctx.AccountKey(5)
	takerTokenA, _ := ctx.AccountKey(6)
	takerTokenB, _ := ctx.AccountKey(7)
	makerTokenB, _ := ctx.AccountKey(8)

	if !state.Maker.Equal(maker) {
		return ErrInvalidMaker
	}
	if !state.MintA.Equal(mintA) {
		return ErrInvalidMintA
	}
	if !state.MintB.Equal(mintB) {
		return ErrInvalidMintB
	}

	signerSeeds, err := p.verifyAuthority(state, record.Key, vault)
	if err != nil {
		return err
	}

	if err := p.ensureCustodyAccount(ctx, taker, taker, mintA, takerTokenA); err != nil {
		return err
	}
	if err := p.ensureCustodyAccount(ctx, taker, maker, mintB, makerTokenB); err != nil {
		return err
	}

	// Leg one: the taker pays the maker exactly the recorded amount of the
	// requested mint.
	decimalsB, err := p.mintDecimals(ctx, 4)
	if err != nil {
		return err
	}
	err = ctx.Invoke(token.TransferChecked(
		takerTokenB,
		mintB,
		makerTokenB,
		taker,
		state.ReceiveAmount,
		decimalsB,
	))
	if err != nil {
		return errors.Wrap(err, "failed to pay maker")
	}

	// Leg two: the vault's entire live balance moves to the taker, signed
	// by the reconstructed offer authority.
	balance, err := p.vaultBalance(ctx, 5)
	if err != nil {
		return err
	}
	decimalsA, err := p.mintDecimals(ctx, 3)
	if err != nil {
		return err
	}
	err = ctx.InvokeSigned(
		token.TransferChecked(vault, mintA, takerTokenA, record.Key, balance, decimalsA),
		signerSeeds,
	)
	if err != nil {
		return errors.Wrap(err, "failed to withdraw vault")
	}

	// The maker reclaims the vault deposit they funded; the taker, as the
	// caller paying for this transaction, reclaims the record's.
	err = ctx.InvokeSigned(token.CloseAccount(vault, maker, record.Key), signerSeeds)
	if err != nil {
		return errors.Wrap(err, "failed to close vault")
	}
	if err := p.closeRecord(ctx, record, 0); err != nil {
		return err
	}

	p.log.WithFields(logrus.Fields{
		"escrow": solana.Base58(record.Key),
		"taker":  solana.Base58(taker),
	}).Debug("offer taken")

	return nil
}

// refund cancels an open offer. Only the recorded maker may do this; there
// is no counterpart, arbiter, or timeout path.
func (p *processor) refund(ctx *runtime.Context) error {
	if ctx.NumAccounts() < 5 {
		return errors.Errorf("invalid number of accounts: %d", ctx.NumAccounts())
	}
	if !ctx.IsSigner(0) {
		return runtime.ErrMissingSignature
	}

	maker, _ := ctx.AccountKey(0)

	record, state, err := p.loadRecord(ctx, 1)
	if err != nil {
		return err
	}

	mintA, _ := ctx.AccountKey(2)
	vault, _ := ctx.AccountKey(3)
	makerTokenA, _ := ctx.AccountKey(4)

	if !state.Maker.Equal(maker) {
		return ErrInvalidMaker
	}
	if !state.MintA.Equal(mintA) {
		return ErrInvalidMintA
	}

	signerSeeds, err := p.verifyAuthority(state, record.Key, vault)
	if err != nil {
		return err
	}

	if err := p.ensureCustodyAccount(ctx, maker, maker, mintA, makerTokenA); err != nil {
		return err
	}

	balance, err := p.vaultBalance(ctx, 3)
	if err != nil {
		return err
	}
	decimals, err := p.mintDecimals(ctx, 2)
	if err != nil {
		return err
	}
	err = ctx.InvokeSigned(
		token.TransferChecked(vault, mintA, makerTokenA, record.Key, balance, decimals),
		signerSeeds,
	)
	if err != nil {
		return errors.Wrap(err, "failed to withdraw vault")
	}

	err = ctx.InvokeSigned(token.CloseAccount(vault, maker, record.Key), signerSeeds)
	if err != nil {
		return errors.Wrap(err, "failed to close vault")
	}
	if err := p.closeRecord(ctx, record, 0); err != nil {
		return err
	}

	p.log.WithFields(logrus.Fields{
		"escrow": solana.Base58(record.Key),
		"maker":  solana.Base58(maker),
	}).Debug("offer refunded")

	return nil
}

// loadRecord loads and validates the escrow record at the given instruction
// position.
func (p *processor) loadRecord(ctx *runtime.Context, index int) (*runtime.Account, *State, error) {
	record, err := ctx.Account(index)
	if err != nil {
		return nil, nil, err
	}
	if !record.Owner.Equal(ProgramKey) {
		return nil, nil, runtime.ErrIllegalOwner
	}

	var state State
	if !state.Unmarshal(record.Data) {
		return nil, nil, ErrInvalidState
	}
	return record, &state, nil
}

// verifyAuthority checks that the record address reconstructs from its own
// stored seeds and bump, and that the vault is the custody account bound to
// that authority. This is the only check binding a record to its vault, so
// it runs on every spend path. On success it returns the signer seeds that
// reconstruct the authority capability.
func (p *processor) verifyAuthority(state *State, escrowKey, vault ed25519.PublicKey) ([][]byte, error) {
	reconstructed, err := ReconstructEscrowAddress(
		&GetEscrowAddressArgs{Maker: state.Maker, Seed: state.Seed},
		state.Bump,
	)
	if err != nil || !reconstructed.Equal(escrowKey) {
		return nil, ErrInvalidAuthority
	}

	expectedVault, err := GetVaultAddress(escrowKey, state.MintA)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive vault address")
	}
	if !expectedVault.Equal(vault) {
		return nil, ErrInvalidVault
	}

	return [][]byte{EscrowPrefix, state.Maker, seedBytes(state.Seed), {state.Bump}}, nil
}

// ensureCustodyAccount verifies the provided address is the associated
// custody account for (wallet, mint) and creates it, funded by the payer, if
// it does not exist yet.
func (p *processor) ensureCustodyAccount(ctx *runtime.Context, funder, wallet, mint, provided ed25519.PublicKey) error {
	expected, err := token.GetAssociatedAccount(wallet, mint)
	if err != nil {
		return errors.Wrap(err, "failed to derive custody account")
	}
	if !expected.Equal(provided) {
		return ErrInvalidVault
	}
	if ctx.AccountExists(provided) {
		return nil
	}

	create, _, err := token.CreateAssociatedAccount(funder, wallet, mint)
	if err != nil {
		return errors.Wrap(err, "failed to build custody account creation")
	}
	return errors.Wrap(ctx.Invoke(create), "failed to create custody account")
}

// mintDecimals reads the decimal precision of the mint at the given
// instruction position.
func (p *processor) mintDecimals(ctx *runtime.Context, index int) (uint8, error) {
	account, err := ctx.Account(index)
	if err != nil {
		return 0, err
	}
	if !account.Owner.Equal(token.ProgramKey) {
		return 0, runtime.ErrIllegalOwner
	}

	var mint token.Mint
	if !mint.Unmarshal(account.Data) || !mint.Initialized {
		return 0, token.ErrUninitializedState
	}
	return mint.Decimals, nil
}

// vaultBalance reads the live balance of the vault at the given instruction
// position. The transferred amount is always the balance at execution time,
// never a stored figure.
func (p *processor) vaultBalance(ctx *runtime.Context, index int) (uint64, error) {
	account, err := ctx.Account(index)
	if err != nil {
		return 0, err
	}

	var state token.Account
	if !state.Unmarshal(account.Data) || state.State == token.AccountStateUninitialized {
		return 0, token.ErrUninitializedState
	}
	return state.Amount, nil
}

// closeRecord reclaims the record's lamports to the account at the given
// instruction position and destroys the record.
func (p *processor) closeRecord(ctx *runtime.Context, record *runtime.Account, destinationIndex int) error {
	if err := ctx.CreditLamports(destinationIndex, record.Lamports); err != nil {
		return err
	}
	record.Lamports = 0

	return errors.Wrap(ctx.DeleteAccount(record.Key), "failed to close escrow record")
}
