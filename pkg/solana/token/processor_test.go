package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueshift-protocols/custody/pkg/solana"
	"github.com/blueshift-protocols/custody/pkg/solana/runtime"
	"github.com/blueshift-protocols/custody/pkg/solana/system"
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

	payer         ed25519.PublicKey
	mint          ed25519.PublicKey
	mintAuthority ed25519.PublicKey
}

func newTestEnv(t *testing.T) *testEnv {
	keys := generateKeys(t, 3)

	ledger := runtime.NewLedger()
	ledger.RegisterProgram(system.NewProgram())
	ledger.RegisterProgram(NewProgram())
	ledger.RegisterProgram(NewAssociatedProgram())

	env := &testEnv{
		t:             t,
		ledger:        ledger,
		payer:         keys[0],
		mint:          keys[1],
		mintAuthority: keys[2],
	}

	env.fundWallet(env.payer, 1_000_000_000)

	require.NoError(t, ledger.Execute(solana.NewTransaction(
		env.payer,
		system.CreateAccount(env.payer, env.mint, ProgramKey, system.RentExemptBalance(MintSize), MintSize),
		InitializeMint(env.mint, env.mintAuthority, 6),
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

func (e *testEnv) createTokenAccount(wallet ed25519.PublicKey) ed25519.PublicKey {
	instruction, addr, err := CreateAssociatedAccount(e.payer, wallet, e.mint)
	require.NoError(e.t, err)
	require.NoError(e.t, e.ledger.Execute(solana.NewTransaction(e.payer, instruction)))
	return addr
}

func (e *testEnv) mintTo(destination ed25519.PublicKey, amount uint64) {
	require.NoError(e.t, e.ledger.Execute(solana.NewTransaction(
		e.payer,
		MintTo(e.mint, destination, e.mintAuthority, amount),
	)))
}

func (e *testEnv) balance(account ed25519.PublicKey) uint64 {
	raw, ok := e.ledger.GetAccount(account)
	require.True(e.t, ok)

	var state Account
	require.True(e.t, state.Unmarshal(raw.Data))
	return state.Amount
}

func TestProcessor_InitializeAndMint(t *testing.T) {
	env := newTestEnv(t)
	wallet := generateKeys(t, 1)[0]

	account := env.createTokenAccount(wallet)

	raw, ok := env.ledger.GetAccount(account)
	require.True(t, ok)
	assert.True(t, raw.Owner.Equal(ProgramKey))

	var state Account
	require.True(t, state.Unmarshal(raw.Data))
	assert.True(t, state.Mint.Equal(env.mint))
	assert.True(t, state.Owner.Equal(wallet))
	assert.EqualValues(t, 0, state.Amount)

	env.mintTo(account, 12345)
	assert.EqualValues(t, 12345, env.balance(account))

	// Supply tracks issuance.
	rawMint, _ := env.ledger.GetAccount(env.mint)
	var mint Mint
	require.True(t, mint.Unmarshal(rawMint.Data))
	assert.EqualValues(t, 12345, mint.Supply)

	// Creating the same associated account twice collides.
	instruction, _, err := CreateAssociatedAccount(env.payer, wallet, env.mint)
	require.NoError(t, err)
	err = env.ledger.Execute(solana.NewTransaction(env.payer, instruction))
	assert.ErrorIs(t, err, runtime.ErrAccountExists)
}

func TestProcessor_TransferChecked(t *testing.T) {
	env := newTestEnv(t)
	keys := generateKeys(t, 2)
	sender, receiver := keys[0], keys[1]
	env.fundWallet(sender, 1_000_000_000)

	source := env.createTokenAccount(sender)
	destination := env.createTokenAccount(receiver)
	env.mintTo(source, 1000)

	require.NoError(t, env.ledger.Execute(solana.NewTransaction(
		sender,
		TransferChecked(source, env.mint, destination, sender, 400, 6),
	)))
	assert.EqualValues(t, 600, env.balance(source))
	assert.EqualValues(t, 400, env.balance(destination))

	// Overdraw.
	err := env.ledger.Execute(solana.NewTransaction(
		sender,
		TransferChecked(source, env.mint, destination, sender, 601, 6),
	))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Wrong decimals expectation.
	err = env.ledger.Execute(solana.NewTransaction(
		sender,
		TransferChecked(source, env.mint, destination, sender, 1, 9),
	))
	assert.ErrorIs(t, err, ErrMintDecimalsMismatch)

	// The receiver cannot debit the sender's account.
	err = env.ledger.Execute(solana.NewTransaction(
		receiver,
		TransferChecked(source, env.mint, destination, receiver, 1, 6),
	))
	assert.ErrorIs(t, err, ErrOwnerMismatch)

	// Balances unchanged after the failures.
	assert.EqualValues(t, 600, env.balance(source))
	assert.EqualValues(t, 400, env.balance(destination))
}

func TestProcessor_CloseAccount(t *testing.T) {
	env := newTestEnv(t)
	owner := generateKeys(t, 1)[0]
	env.fundWallet(owner, 0)

	account := env.createTokenAccount(owner)
	env.mintTo(account, 5)

	// Close is refused while a balance remains.
	err := env.ledger.Execute(solana.NewTransaction(
		owner,
		CloseAccount(account, owner, owner),
	))
	assert.ErrorIs(t, err, ErrNonZeroBalance)

	destination := env.createTokenAccount(generateKeys(t, 1)[0])
	require.NoError(t, env.ledger.Execute(solana.NewTransaction(
		owner,
		TransferChecked(account, env.mint, destination, owner, 5, 6),
	)))

	rent := system.RentExemptBalance(AccountSize)
	require.NoError(t, env.ledger.Execute(solana.NewTransaction(
		owner,
		CloseAccount(account, owner, owner),
	)))

	_, ok := env.ledger.GetAccount(account)
	assert.False(t, ok)
	assert.EqualValues(t, rent, env.ledger.Balance(owner))
}

func TestState_ExactLengthContract(t *testing.T) {
	keys := generateKeys(t, 2)

	account := Account{
		Mint:   keys[0],
		Owner:  keys[1],
		Amount: 42,
		State:  AccountStateInitialized,
	}
	marshaled := account.Marshal()
	require.Len(t, marshaled, AccountSize)

	var decoded Account
	require.True(t, decoded.Unmarshal(marshaled))
	assert.Equal(t, account, decoded)

	assert.False(t, decoded.Unmarshal(marshaled[:AccountSize-1]))
	assert.False(t, decoded.Unmarshal(append(marshaled, 0)))

	mint := Mint{
		Authority:   keys[0],
		Supply:      7,
		Decimals:    6,
		Initialized: true,
	}
	require.Len(t, mint.Marshal(), MintSize)

	var decodedMint Mint
	require.True(t, decodedMint.Unmarshal(mint.Marshal()))
	assert.Equal(t, mint, decodedMint)
}
