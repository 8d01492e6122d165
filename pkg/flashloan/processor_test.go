package flashloan

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueshift-protocols/custody/pkg/solana"
	"github.com/blueshift-protocols/custody/pkg/solana/runtime"
	"github.com/blueshift-protocols/custody/pkg/solana/system"
	"github.com/blueshift-protocols/custody/pkg/solana/token"
	_ "github.com/blueshift-protocols/custody/pkg/testutil"
)

func generateKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, n)
	for i := range keys {
		pub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		keys[i] = pub
	}
	return keys
}

type testEnv struct {
	t      *testing.T
	ledger *runtime.Ledger

	mintAuthority ed25519.PublicKey
	mint          ed25519.PublicKey
	borrower      ed25519.PublicKey

	poolAuthority ed25519.PublicKey
	pool          ed25519.PublicKey
}

func newTestEnv(t *testing.T) *testEnv {
	keys := generateKeys(t, 3)

	ledger := runtime.NewLedger()
	ledger.RegisterProgram(system.NewProgram())
	ledger.RegisterProgram(token.NewProgram())
	ledger.RegisterProgram(token.NewAssociatedProgram())
	ledger.RegisterProgram(NewProgram())

	env := &testEnv{
		t:             t,
		ledger:        ledger,
		mintAuthority: keys[0],
		mint:          keys[1],
		borrower:      keys[2],
	}

	env.fundWallet(env.mintAuthority, 10_000_000_000)
	env.fundWallet(env.borrower, 10_000_000_000)

	require.NoError(t, ledger.Execute(solana.NewTransaction(
		env.mintAuthority,
		system.CreateAccount(env.mintAuthority, env.mint, token.ProgramKey, system.RentExemptBalance(token.MintSize), token.MintSize),
		token.InitializeMint(env.mint, env.mintAuthority, 6),
	)))

	// Seed the lendable reserve under the protocol authority.
	poolAuthority, _, err := GetProtocolAddress()
	require.NoError(t, err)
	env.poolAuthority = poolAuthority

	createPool, pool, err := token.CreateAssociatedAccount(env.mintAuthority, poolAuthority, env.mint)
	require.NoError(t, err)
	env.pool = pool

	require.NoError(t, ledger.Execute(solana.NewTransaction(
		env.mintAuthority,
		createPool,
		token.MintTo(env.mint, pool, env.mintAuthority, 10_000_000),
	)))

	return env
}

func (e *testEnv) fundWallet(key ed25519.PublicKey, lamports uint64) {
	e.ledger.SetAccount(&runtime.Account{
		Key:      key,
		Owner:    system.ProgramKey[:],
		Lamports: lamports,
	})
}

func (e *testEnv) loanAccounts() *LoanInstructionAccounts {
	borrowerToken, err := token.GetAssociatedAccount(e.borrower, e.mint)
	require.NoError(e.t, err)

	return &LoanInstructionAccounts{
		Borrower:      e.borrower,
		PoolAuthority: e.poolAuthority,
		Mint:          e.mint,
		BorrowerToken: borrowerToken,
		Pool:          e.pool,
	}
}

func (e *testEnv) tokenBalance(account ed25519.PublicKey) uint64 {
	raw, ok := e.ledger.GetAccount(account)
	if !ok {
		return 0
	}

	var state token.Account
	require.True(e.t, state.Unmarshal(raw.Data))
	return state.Amount
}

// fundBorrowerToken gives the borrower a custody account with enough of the
// mint to cover a loan fee.
func (e *testEnv) fundBorrowerToken(amount uint64) ed25519.PublicKey {
	create, addr, err := token.CreateAssociatedAccount(e.mintAuthority, e.borrower, e.mint)
	require.NoError(e.t, err)
	require.NoError(e.t, e.ledger.Execute(solana.NewTransaction(
		e.mintAuthority,
		create,
		token.MintTo(e.mint, addr, e.mintAuthority, amount),
	)))
	return addr
}

func TestBorrowAndRepay(t *testing.T) {
	env := newTestEnv(t)
	env.fundBorrowerToken(100_000)
	accounts := env.loanAccounts()

	require.NoError(t, env.ledger.Execute(solana.NewTransaction(
		env.borrower,
		NewBorrowInstruction(accounts, &BorrowInstructionArgs{BorrowAmount: 1_000_000}),
		NewRepayInstruction(accounts),
	)))

	// The pool nets exactly the fee; the borrower paid it.
	assert.EqualValues(t, 10_000_000+50_000, env.tokenBalance(env.pool))
	assert.EqualValues(t, 100_000-50_000, env.tokenBalance(accounts.BorrowerToken))
}

func TestBorrowAndRepay_CreatesBorrowerAccount(t *testing.T) {
	env := newTestEnv(t)
	accounts := env.loanAccounts()

	// Fee-free borrow: the custody account does not exist yet, and the
	// borrowed funds themselves cover the repayment.
	require.NoError(t, env.ledger.Execute(solana.NewTransaction(
		env.borrower,
		NewBorrowInstruction(accounts, &BorrowInstructionArgs{BorrowAmount: 19}),
		NewRepayInstruction(accounts),
	)))

	assert.EqualValues(t, 10_000_000, env.tokenBalance(env.pool))
	assert.EqualValues(t, 0, env.tokenBalance(accounts.BorrowerToken))

	_, ok := env.ledger.GetAccount(accounts.BorrowerToken)
	assert.True(t, ok)
}

func TestBorrow_MissingRepay(t *testing.T) {
	env := newTestEnv(t)
	accounts := env.loanAccounts()

	err := env.ledger.Execute(solana.NewTransaction(
		env.borrower,
		NewBorrowInstruction(accounts, &BorrowInstructionArgs{BorrowAmount: 1_000_000}),
	))
	assert.ErrorIs(t, err, ErrMissingRepay)

	// The rollback undoes the lending transfer and the custody account
	// creation.
	assert.EqualValues(t, 10_000_000, env.tokenBalance(env.pool))
	_, ok := env.ledger.GetAccount(accounts.BorrowerToken)
	assert.False(t, ok)
}

func TestBorrow_NotFirstInstruction(t *testing.T) {
	env := newTestEnv(t)
	accounts := env.loanAccounts()

	err := env.ledger.Execute(solana.NewTransaction(
		env.borrower,
		system.Transfer(env.borrower, env.mintAuthority, 1),
		NewBorrowInstruction(accounts, &BorrowInstructionArgs{BorrowAmount: 1_000_000}),
		NewRepayInstruction(accounts),
	))
	assert.ErrorIs(t, err, ErrInvalidInstructionIndex)

	assert.EqualValues(t, 10_000_000, env.tokenBalance(env.pool))
}

func TestBorrow_RepayNotLast(t *testing.T) {
	env := newTestEnv(t)
	env.fundBorrowerToken(100_000)
	accounts := env.loanAccounts()

	// A trailing instruction after the Repay means the last instruction is
	// not a Repay of this program.
	err := env.ledger.Execute(solana.NewTransaction(
		env.borrower,
		NewBorrowInstruction(accounts, &BorrowInstructionArgs{BorrowAmount: 1_000_000}),
		NewRepayInstruction(accounts),
		system.Transfer(env.borrower, env.mintAuthority, 1),
	))
	assert.ErrorIs(t, err, ErrInvalidProgram)

	assert.EqualValues(t, 10_000_000, env.tokenBalance(env.pool))
}

func TestBorrow_RepayWrongAccounts(t *testing.T) {
	env := newTestEnv(t)
	env.fundBorrowerToken(100_000)

	other := generateKeys(t, 1)[0]
	otherToken, err := token.GetAssociatedAccount(other, env.mint)
	require.NoError(t, err)

	accounts := env.loanAccounts()
	repayAccounts := *accounts
	repayAccounts.BorrowerToken = otherToken

	// A Repay pointed at someone else's custody account does not satisfy
	// the borrow.
	err = env.ledger.Execute(solana.NewTransaction(
		env.borrower,
		NewBorrowInstruction(accounts, &BorrowInstructionArgs{BorrowAmount: 1_000_000}),
		NewRepayInstruction(&repayAccounts),
	))
	assert.ErrorIs(t, err, ErrInvalidBorrowerAccount)

	assert.EqualValues(t, 10_000_000, env.tokenBalance(env.pool))
	assert.EqualValues(t, 100_000, env.tokenBalance(accounts.BorrowerToken))
}

func TestRepay_WithoutBorrow(t *testing.T) {
	env := newTestEnv(t)
	env.fundBorrowerToken(100_000)
	accounts := env.loanAccounts()

	err := env.ledger.Execute(solana.NewTransaction(
		env.borrower,
		NewRepayInstruction(accounts),
	))
	assert.ErrorIs(t, err, ErrMissingBorrow)

	assert.EqualValues(t, 100_000, env.tokenBalance(accounts.BorrowerToken))
}

func TestBorrow_InvalidAmount(t *testing.T) {
	env := newTestEnv(t)
	accounts := env.loanAccounts()

	err := env.ledger.Execute(solana.NewTransaction(
		env.borrower,
		NewBorrowInstruction(accounts, &BorrowInstructionArgs{BorrowAmount: 0}),
		NewRepayInstruction(accounts),
	))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestBorrow_InsufficientPool(t *testing.T) {
	env := newTestEnv(t)
	accounts := env.loanAccounts()

	// Asking for more than the reserve fails inside the lending transfer.
	err := env.ledger.Execute(solana.NewTransaction(
		env.borrower,
		NewBorrowInstruction(accounts, &BorrowInstructionArgs{BorrowAmount: 10_000_001}),
		NewRepayInstruction(accounts),
	))
	assert.ErrorIs(t, err, token.ErrInsufficientFunds)

	assert.EqualValues(t, 10_000_000, env.tokenBalance(env.pool))
}

func TestBorrow_WrongPoolAuthority(t *testing.T) {
	env := newTestEnv(t)
	accounts := env.loanAccounts()
	accounts.PoolAuthority = env.mintAuthority

	err := env.ledger.Execute(solana.NewTransaction(
		env.borrower,
		NewBorrowInstruction(accounts, &BorrowInstructionArgs{BorrowAmount: 1_000_000}),
		NewRepayInstruction(accounts),
	))
	assert.ErrorIs(t, err, ErrInvalidAuthority)
}
