package runtime

import (
	"crypto/ed25519"
	"math"

	"github.com/pkg/errors"

	"github.com/blueshift-protocols/custody/pkg/solana"
)

// Context is handed to a program for a single instruction execution. It
// exposes the instruction's accounts, signer authority, cross-program
// invocation, and read-only introspection of the sibling instructions in the
// enclosing transaction.
type Context struct {
	ledger      *Ledger
	txn         *solana.Transaction
	index       int
	depth       int
	instruction solana.Instruction

	// Addresses holding signature authority for this call. Top-level calls
	// get the transaction's verified signers; invocations extend the set
	// with call-scoped derived-address capabilities that are never persisted.
	signers map[string]struct{}
}

// Instruction returns the executing instruction.
func (c *Context) Instruction() solana.Instruction {
	return c.instruction
}

// ProgramID returns the id of the executing program.
func (c *Context) ProgramID() ed25519.PublicKey {
	return c.instruction.Program
}

// Data returns the instruction's raw data payload.
func (c *Context) Data() []byte {
	return c.instruction.Data
}

// NumAccounts returns the number of accounts referenced by the instruction.
func (c *Context) NumAccounts() int {
	return len(c.instruction.Accounts)
}

// AccountKey returns the address of the account at the given position.
func (c *Context) AccountKey(index int) (ed25519.PublicKey, error) {
	if index < 0 || index >= len(c.instruction.Accounts) {
		return nil, ErrInvalidIndex
	}
	return c.instruction.Accounts[index].PublicKey, nil
}

// IsSigner reports whether the account at the given position carries
// signature authority for this call.
func (c *Context) IsSigner(index int) bool {
	if index < 0 || index >= len(c.instruction.Accounts) {
		return false
	}

	meta := c.instruction.Accounts[index]
	if !meta.IsSigner {
		return false
	}

	_, ok := c.signers[string(meta.PublicKey)]
	return ok
}

// Account loads the ledger account at the given instruction position. The
// executing program receives the live account only for addresses it owns;
// any other account comes back as a detached copy, so a program can read
// foreign state but never mutate it or debit its lamports. The one mutation
// permitted on foreign accounts is a lamport credit through CreditLamports.
func (c *Context) Account(index int) (*Account, error) {
	key, err := c.AccountKey(index)
	if err != nil {
		return nil, err
	}

	account, ok := c.ledger.GetAccount(key)
	if !ok {
		return nil, errors.Wrapf(ErrAccountNotFound, "account %s", solana.Base58(key))
	}
	if !account.Owner.Equal(c.instruction.Program) {
		return account.Clone(), nil
	}
	return account, nil
}

// CreditLamports adds lamports to the account at the given instruction
// position, regardless of which program owns it. Credits are how rent
// deposits find their way back to wallets when program-owned accounts close.
func (c *Context) CreditLamports(index int, lamports uint64) error {
	key, err := c.AccountKey(index)
	if err != nil {
		return err
	}

	account, ok := c.ledger.GetAccount(key)
	if !ok {
		return errors.Wrapf(ErrAccountNotFound, "account %s", solana.Base58(key))
	}
	if account.Lamports > math.MaxUint64-lamports {
		return ErrLamportOverflow
	}

	account.Lamports += lamports
	return nil
}

// AccountExists reports whether an account exists on the ledger.
func (c *Context) AccountExists(key ed25519.PublicKey) bool {
	_, ok := c.ledger.GetAccount(key)
	return ok
}

// CreateAccount allocates a new zeroed account. Fails with ErrAccountExists
// on an address collision, which is what serializes duplicate creation
// attempts at the same derived address.
func (c *Context) CreateAccount(key, owner ed25519.PublicKey, lamports, space uint64) (*Account, error) {
	if c.AccountExists(key) {
		return nil, errors.Wrapf(ErrAccountExists, "account %s", solana.Base58(key))
	}

	account := &Account{
		Key:      append(ed25519.PublicKey{}, key...),
		Owner:    append(ed25519.PublicKey{}, owner...),
		Lamports: lamports,
		Data:     make([]byte, space),
	}
	c.ledger.SetAccount(account)
	return account, nil
}

// DeleteAccount removes an account from the ledger. Only the program that
// owns the account may delete it; its lamports must already have been moved.
func (c *Context) DeleteAccount(key ed25519.PublicKey) error {
	account, ok := c.ledger.GetAccount(key)
	if !ok {
		return errors.Wrapf(ErrAccountNotFound, "account %s", solana.Base58(key))
	}
	if !account.Owner.Equal(c.instruction.Program) {
		return ErrIllegalOwner
	}

	delete(c.ledger.accounts, string(key))
	return nil
}

// CurrentIndex returns the position of the executing top-level instruction
// within the enclosing transaction. Invoked (inner) instructions report the
// position of the top-level instruction that spawned them.
func (c *Context) CurrentIndex() int {
	return c.index
}

// NumInstructions returns the number of top-level instructions in the
// enclosing transaction.
func (c *Context) NumInstructions() int {
	return len(c.txn.Instructions)
}

// InstructionAt returns the top-level sibling instruction at the given
// position: its target program, ordered account references, and raw data.
func (c *Context) InstructionAt(index int) (solana.Instruction, error) {
	if index < 0 || index >= len(c.txn.Instructions) {
		return solana.Instruction{}, ErrInvalidInstruction
	}
	return c.txn.Instructions[index], nil
}

// Invoke executes another program's instruction within the current
// transaction, passing along only signature authority the caller already
// holds.
func (c *Context) Invoke(instruction solana.Instruction) error {
	return c.InvokeSigned(instruction)
}

// InvokeSigned executes another program's instruction, additionally granting
// call-scoped signature authority to every address derivable from the
// executing program's id and one of the provided seed groups. This is how a
// program "signs" as a derived authority: the capability exists only for the
// duration of the invocation and is recomputed from public seeds, never from
// key material.
func (c *Context) InvokeSigned(instruction solana.Instruction, signerSeeds ...[][]byte) error {
	signers := make(map[string]struct{}, len(c.signers)+len(signerSeeds))
	for signer := range c.signers {
		signers[signer] = struct{}{}
	}

	for _, seeds := range signerSeeds {
		derived, err := solana.CreateProgramAddress(c.instruction.Program, seeds...)
		if err != nil {
			return errors.Wrap(err, "failed to derive signer address")
		}
		signers[string(derived)] = struct{}{}
	}

	for _, meta := range instruction.Accounts {
		if !meta.IsSigner {
			continue
		}
		if _, ok := signers[string(meta.PublicKey)]; !ok {
			return errors.Wrapf(ErrMissingSignature, "account %s", solana.Base58(meta.PublicKey))
		}
	}

	inner := &Context{
		ledger:      c.ledger,
		txn:         c.txn,
		index:       c.index,
		instruction: instruction,
		signers:     signers,
	}
	return c.ledger.dispatch(inner, instruction, c.depth+1)
}
