package flashloan

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/blueshift-protocols/custody/pkg/solana"
	"github.com/blueshift-protocols/custody/pkg/solana/runtime"
	"github.com/blueshift-protocols/custody/pkg/solana/token"
)

type processor struct {
	log *logrus.Entry
}

// NewProgram returns the executable flash-loan program for registration with
// a ledger runtime.
func NewProgram() runtime.Program {
	return &processor{
		log: logrus.StandardLogger().WithField("type", "flashloan/processor"),
	}
}

func (p *processor) ID() ed25519.PublicKey {
	return ProgramKey
}

func (p *processor) Execute(ctx *runtime.Context) error {
	data := ctx.Data()
	if len(data) < DiscriminatorSize {
		return ErrInvalidInstructionData
	}

	switch {
	case bytes.Equal(data[:DiscriminatorSize], BorrowInstructionDiscriminator):
		return p.borrow(ctx)
	case bytes.Equal(data[:DiscriminatorSize], RepayInstructionDiscriminator):
		return p.repay(ctx)
	default:
		return ErrInvalidInstructionData
	}
}

// loanAccounts validates the shared account list of Borrow and Repay and
// returns the resolved keys. The pool authority must match the protocol
// derivation and the pool custody account must be bound to it.
type loanAccounts struct {
	borrower      ed25519.PublicKey
	poolAuthority ed25519.PublicKey
	mint          ed25519.PublicKey
	borrowerToken ed25519.PublicKey
	pool          ed25519.PublicKey

	bump uint8
}

func (p *processor) loadLoanAccounts(ctx *runtime.Context) (*loanAccounts, error) {
	if ctx.NumAccounts() < 5 {
		return nil, errors.Errorf("invalid number of accounts: %d", ctx.NumAccounts())
	}
	if !ctx.IsSigner(0) {
		return nil, runtime.ErrMissingSignature
	}

	accounts := &loanAccounts{}
	accounts.borrower, _ = ctx.AccountKey(0)
	accounts.poolAuthority, _ = ctx.AccountKey(1)
	accounts.mint, _ = ctx.AccountKey(2)
	accounts.borrowerToken, _ = ctx.AccountKey(3)
	accounts.pool, _ = ctx.AccountKey(4)

	protocol, bump, err := GetProtocolAddress()
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive pool authority")
	}
	if !protocol.Equal(accounts.poolAuthority) {
		return nil, ErrInvalidAuthority
	}
	accounts.bump = bump

	expectedPool, err := token.GetAssociatedAccount(protocol, accounts.mint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive pool custody account")
	}
	if !expectedPool.Equal(accounts.pool) {
		return nil, ErrInvalidPoolAccount
	}

	return accounts, nil
}

// borrow lends out pool funds for the duration of the transaction. The
// transfer is issued first; safety rests on the introspection checks that
// follow, because a failure there aborts and rolls back the whole
// transaction, transfer included.
func (p *processor) borrow(ctx *runtime.Context) error {
	data := ctx.Data()
	if len(data) != BorrowInstructionDataSize {
		return ErrInvalidInstructionData
	}
	amount := binary.LittleEndian.Uint64(data[DiscriminatorSize:])
	if amount == 0 {
		return ErrInvalidAmount
	}

	accounts, err := p.loadLoanAccounts(ctx)
	if err != nil {
		return err
	}

	if err := p.ensureBorrowerAccount(ctx, accounts); err != nil {
		return err
	}

	decimals, err := p.mintDecimals(ctx, 2)
	if err != nil {
		return err
	}

	// The pool authority signs through the reconstructed protocol
	// capability, valid only for this invocation.
	err = ctx.InvokeSigned(
		token.TransferChecked(
			accounts.pool,
			accounts.mint,
			accounts.borrowerToken,
			accounts.poolAuthority,
			amount,
			decimals,
		),
		[][]byte{ProtocolPrefix, {accounts.bump}},
	)
	if err != nil {
		return errors.Wrap(err, "failed to lend from pool")
	}

	if err := p.verifyRepay(ctx, accounts); err != nil {
		return err
	}

	p.log.WithFields(logrus.Fields{
		"borrower": solana.Base58(accounts.borrower),
		"amount":   amount,
	}).Debug("flash loan issued")

	return nil
}

// verifyRepay enforces the same-transaction repayment invariant: this Borrow
// must be the first instruction, and the last instruction of the transaction
// must be a Repay of this program referencing the same borrower and pool
// custody accounts at their fixed positions.
func (p *processor) verifyRepay(ctx *runtime.Context, accounts *loanAccounts) error {
	if ctx.CurrentIndex() != 0 {
		return ErrInvalidInstructionIndex
	}
	if ctx.NumInstructions() < 2 {
		return ErrMissingRepay
	}

	repay, err := ctx.InstructionAt(ctx.NumInstructions() - 1)
	if err != nil {
		return ErrMissingRepay
	}

	if !repay.Program.Equal(ProgramKey) {
		return ErrInvalidProgram
	}
	if len(repay.Data) < DiscriminatorSize ||
		!bytes.Equal(repay.Data[:DiscriminatorSize], RepayInstructionDiscriminator) {
		return ErrMissingRepay
	}

	if len(repay.Accounts) < 5 {
		return ErrMissingRepay
	}
	if !repay.Accounts[3].PublicKey.Equal(accounts.borrowerToken) {
		return ErrInvalidBorrowerAccount
	}
	if !repay.Accounts[4].PublicKey.Equal(accounts.pool) {
		return ErrInvalidPoolAccount
	}

	return nil
}

// repay returns the borrowed amount plus fee to the pool. The amount owed is
// recovered from the Borrow instruction's raw payload at the head of the
// transaction, not from any stored state.
func (p *processor) repay(ctx *runtime.Context) error {
	if len(ctx.Data()) != DiscriminatorSize {
		return ErrInvalidInstructionData
	}

	accounts, err := p.loadLoanAccounts(ctx)
	if err != nil {
		return err
	}

	borrow, err := ctx.InstructionAt(0)
	if err != nil {
		return ErrMissingBorrow
	}
	if !borrow.Program.Equal(ProgramKey) {
		return ErrMissingBorrow
	}
	if len(borrow.Data) != BorrowInstructionDataSize ||
		!bytes.Equal(borrow.Data[:DiscriminatorSize], BorrowInstructionDiscriminator) {
		return ErrMissingBorrow
	}

	amount := binary.LittleEndian.Uint64(borrow.Data[DiscriminatorSize:])
	total, err := RepayTotal(amount)
	if err != nil {
		return err
	}

	decimals, err := p.mintDecimals(ctx, 2)
	if err != nil {
		return err
	}

	// The borrower is an ordinary signer; no derived capability is needed
	// to debit their own custody account.
	err = ctx.Invoke(token.TransferChecked(
		accounts.borrowerToken,
		accounts.mint,
		accounts.pool,
		accounts.borrower,
		total,
		decimals,
	))
	if err != nil {
		return errors.Wrap(err, "failed to repay pool")
	}

	p.log.WithFields(logrus.Fields{
		"borrower": solana.Base58(accounts.borrower),
		"amount":   amount,
		"total":    total,
	}).Debug("flash loan repaid")

	return nil
}

// ensureBorrowerAccount verifies the borrower custody account address and
// creates it, funded by the borrower, if it does not exist yet.
func (p *processor) ensureBorrowerAccount(ctx *runtime.Context, accounts *loanAccounts) error {
	expected, err := token.GetAssociatedAccount(accounts.borrower, accounts.mint)
	if err != nil {
		return errors.Wrap(err, "failed to derive borrower custody account")
	}
	if !expected.Equal(accounts.borrowerToken) {
		return ErrInvalidBorrowerAccount
	}
	if ctx.AccountExists(accounts.borrowerToken) {
		return nil
	}

	create, _, err := token.CreateAssociatedAccount(accounts.borrower, accounts.borrower, accounts.mint)
	if err != nil {
		return errors.Wrap(err, "failed to build custody account creation")
	}
	return errors.Wrap(ctx.Invoke(create), "failed to create borrower custody account")
}

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
