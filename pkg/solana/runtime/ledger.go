package runtime

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/blueshift-protocols/custody/pkg/solana"
)

// maxInvokeDepth bounds cross-program invocation nesting, mirroring the
// Solana runtime's limit.
const maxInvokeDepth = 4

// Ledger is an in-memory ledger runtime. It holds accounts and registered
// programs and executes transactions atomically: instructions run strictly in
// submission order, and if any instruction fails every account mutation made
// by the transaction is rolled back.
//
// Concurrency control across transactions (per-account write locking,
// conflict rejection) is the embedder's concern; a Ledger itself is not safe
// for concurrent use.
type Ledger struct {
	log      *logrus.Entry
	accounts map[string]*Account
	programs map[string]Program
}

// NewLedger creates an empty ledger with no accounts or programs.
func NewLedger() *Ledger {
	return &Ledger{
		log:      logrus.StandardLogger().WithField("type", "solana/runtime/ledger"),
		accounts: make(map[string]*Account),
		programs: make(map[string]Program),
	}
}

// RegisterProgram makes a program invocable by transactions.
func (l *Ledger) RegisterProgram(p Program) {
	l.programs[string(p.ID())] = p
}

// SetAccount installs an account, replacing any existing account at the same
// address. Intended for genesis and test setup; programs create accounts
// through the account-creation service.
func (l *Ledger) SetAccount(account *Account) {
	l.accounts[string(account.Key)] = account
}

// GetAccount returns the live account at the given address, if present.
func (l *Ledger) GetAccount(key ed25519.PublicKey) (*Account, bool) {
	account, ok := l.accounts[string(key)]
	return account, ok
}

// Balance returns the token-free lamport balance of an account, or zero if
// the account does not exist.
func (l *Ledger) Balance(key ed25519.PublicKey) uint64 {
	account, ok := l.accounts[string(key)]
	if !ok {
		return 0
	}
	return account.Lamports
}

// Execute runs a transaction. On any instruction failure the entire
// transaction is discarded and the ledger is left exactly as it was.
//
// Signature verification is assumed to have happened before execution, so
// every account meta flagged as a signer at the top level is treated as
// carrying a verified signature.
func (l *Ledger) Execute(txn solana.Transaction) error {
	log := l.log.WithField("method", "Execute")

	snapshot := l.snapshot()
	signers := txn.Signers()

	for index, instruction := range txn.Instructions {
		ctx := &Context{
			ledger:      l,
			txn:         &txn,
			index:       index,
			instruction: instruction,
			signers:     signers,
		}

		if err := l.dispatch(ctx, instruction, 0); err != nil {
			l.restore(snapshot)

			log.WithError(err).WithFields(logrus.Fields{
				"instruction": index,
				"program":     solana.Base58(instruction.Program),
			}).Debug("transaction aborted")

			return errors.Wrapf(err, "instruction %d failed", index)
		}
	}

	return nil
}

func (l *Ledger) dispatch(ctx *Context, instruction solana.Instruction, depth int) error {
	if depth > maxInvokeDepth {
		return ErrInvocationTooDeep
	}

	program, ok := l.programs[string(instruction.Program)]
	if !ok {
		return ErrUnknownProgram
	}

	ctx.depth = depth
	return program.Execute(ctx)
}

func (l *Ledger) snapshot() map[string]*Account {
	snapshot := make(map[string]*Account, len(l.accounts))
	for key, account := range l.accounts {
		snapshot[key] = account.Clone()
	}
	return snapshot
}

func (l *Ledger) restore(snapshot map[string]*Account) {
	l.accounts = snapshot
}
