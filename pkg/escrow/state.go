package escrow

import (
	"crypto/ed25519"

	"github.com/blueshift-protocols/custody/pkg/solana/binary"
)

// StateDiscriminator tags escrow record accounts, distinguishing them from
// any other account type the program might own.
const StateDiscriminator byte = 1

// StateSize is the exact byte length of a serialized record payload:
// seed:u64 ‖ maker:32 ‖ mint_a:32 ‖ mint_b:32 ‖ receive:u64 ‖ bump:1.
const StateSize = 8 + 32 + 32 + 32 + 8 + 1

// AccountSize is StateSize plus the leading discriminator byte.
const AccountSize = 1 + StateSize

// State is one open swap offer. It is written exactly once, by Make, and is
// immutable until it is destroyed by Take or Refund.
//
// The record carries no signature. Its sole integrity anchor is that its own
// address must reconstruct from ("escrow", maker, seed, bump), which every
// instruction referencing it re-verifies.
type State struct {
	// Caller-chosen disambiguator, allowing a maker to hold multiple
	// concurrent offers.
	Seed uint64
	// The depositor who created the offer.
	Maker ed25519.PublicKey
	// The asset deposited into the vault.
	MintA ed25519.PublicKey
	// The asset the maker wants in return.
	MintB ed25519.PublicKey
	// The exact amount of MintB required to take the offer.
	ReceiveAmount uint64
	// The derivation bump binding the record (and its vault authority) to
	// its address.
	Bump uint8
}

func (s *State) Marshal() []byte {
	b := make([]byte, AccountSize)
	b[0] = StateDiscriminator

	offset := 1
	binary.PutUint64(b[offset:], s.Seed, &offset)
	binary.PutKey32(b[offset:], s.Maker, &offset)
	binary.PutKey32(b[offset:], s.MintA, &offset)
	binary.PutKey32(b[offset:], s.MintB, &offset)
	binary.PutUint64(b[offset:], s.ReceiveAmount, &offset)
	binary.PutUint8(b[offset:], s.Bump, &offset)

	return b
}

func (s *State) Unmarshal(b []byte) bool {
	if len(b) != AccountSize {
		return false
	}
	if b[0] != StateDiscriminator {
		return false
	}

	offset := 1
	binary.GetUint64(b[offset:], &s.Seed, &offset)
	binary.GetKey32(b[offset:], &s.Maker, &offset)
	binary.GetKey32(b[offset:], &s.MintA, &offset)
	binary.GetKey32(b[offset:], &s.MintB, &offset)
	binary.GetUint64(b[offset:], &s.ReceiveAmount, &offset)
	binary.GetUint8(b[offset:], &s.Bump, &offset)

	return true
}
