package token

import (
	"crypto/ed25519"

	"github.com/blueshift-protocols/custody/pkg/solana/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// MintSize is the exact byte length of a serialized Mint.
const MintSize = 32 + 8 + 1 + 1

// AccountSize is the exact byte length of a serialized token Account.
const AccountSize = 32 + 32 + 8 + 1

// Mint describes a fungible asset: who may issue it, how much exists, and
// the decimal precision transfers are checked against.
type Mint struct {
	// The authority allowed to mint new supply.
	Authority ed25519.PublicKey
	// The total issued supply.
	Supply uint64
	// Number of base 10 digits to the right of the decimal place.
	Decimals uint8
	// Whether the mint has been initialized.
	Initialized bool
}

func (m *Mint) Marshal() []byte {
	b := make([]byte, MintSize)

	var offset int
	binary.PutKey32(b, m.Authority, &offset)
	binary.PutUint64(b[offset:], m.Supply, &offset)
	binary.PutUint8(b[offset:], m.Decimals, &offset)
	if m.Initialized {
		b[offset] = 1
	}

	return b
}

func (m *Mint) Unmarshal(b []byte) bool {
	if len(b) != MintSize {
		return false
	}

	var offset int
	binary.GetKey32(b, &m.Authority, &offset)
	binary.GetUint64(b[offset:], &m.Supply, &offset)
	binary.GetUint8(b[offset:], &m.Decimals, &offset)
	m.Initialized = b[offset] == 1

	return true
}

// Account is a custody account holding balance of a single mint on behalf of
// an owner. The owner may be a wallet with a private key or a derived
// authority that signs by replaying its seeds.
type Account struct {
	// The mint this account holds balance of.
	Mint ed25519.PublicKey
	// The authority allowed to debit or close this account.
	Owner ed25519.PublicKey
	// The amount of tokens this account holds.
	Amount uint64
	// The account's state.
	State AccountState
}

func (a *Account) Marshal() []byte {
	b := make([]byte, AccountSize)

	var offset int
	binary.PutKey32(b, a.Mint, &offset)
	binary.PutKey32(b[offset:], a.Owner, &offset)
	binary.PutUint64(b[offset:], a.Amount, &offset)
	b[offset] = byte(a.State)

	return b
}

func (a *Account) Unmarshal(b []byte) bool {
	if len(b) != AccountSize {
		return false
	}

	var offset int
	binary.GetKey32(b, &a.Mint, &offset)
	binary.GetKey32(b[offset:], &a.Owner, &offset)
	binary.GetUint64(b[offset:], &a.Amount, &offset)
	a.State = AccountState(b[offset])

	return true
}
