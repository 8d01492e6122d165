package solana

import (
	"crypto/ed25519"
)

// Transaction is an ordered list of instructions executed atomically: either
// every instruction applies, or none do. The payer funds any accounts created
// during execution and is always a signer.
//
// Instruction order is load bearing. Programs may introspect their sibling
// instructions at execution time and make decisions based on position, so a
// transaction must reach the runtime with the exact order it was built with.
type Transaction struct {
	Payer        ed25519.PublicKey
	Instructions []Instruction
}

// NewTransaction assembles a transaction from the provided instructions,
// preserving their order.
func NewTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	return Transaction{
		Payer:        payer,
		Instructions: instructions,
	}
}

// Signers returns the set of addresses that must have signed the
// transaction, payer included, keyed by string form of the public key.
func (t Transaction) Signers() map[string]struct{} {
	signers := map[string]struct{}{
		string(t.Payer): {},
	}
	for _, instruction := range t.Instructions {
		for _, account := range instruction.Accounts {
			if account.IsSigner {
				signers[string(account.PublicKey)] = struct{}{}
			}
		}
	}
	return signers
}
