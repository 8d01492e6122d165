package escrow

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/blueshift-protocols/custody/pkg/solana"
	"github.com/blueshift-protocols/custody/pkg/solana/token"
)

// EscrowPrefix namespaces per-offer authority derivations.
var EscrowPrefix = []byte("escrow")

// GetEscrowAddressArgs identify one offer: distinct (maker, seed) pairs
// derive distinct addresses, which is what makes duplicate Make calls
// mutually exclusive.
type GetEscrowAddressArgs struct {
	Maker ed25519.PublicKey
	Seed  uint64
}

// GetEscrowAddress derives the offer's record address and authority, along
// with the bump persisted in the record for later reconstruction.
func GetEscrowAddress(args *GetEscrowAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		ProgramKey,
		EscrowPrefix,
		args.Maker,
		seedBytes(args.Seed),
	)
}

// ReconstructEscrowAddress recomputes the offer address from its seeds and a
// stored bump. Every instruction that spends from a vault must check the
// result against the record account actually supplied; a mismatch means the
// record and vault are not bound to each other.
func ReconstructEscrowAddress(args *GetEscrowAddressArgs, bump uint8) (ed25519.PublicKey, error) {
	return solana.CreateProgramAddress(
		ProgramKey,
		EscrowPrefix,
		args.Maker,
		seedBytes(args.Seed),
		[]byte{bump},
	)
}

// GetVaultAddress returns the custody account bound to an offer: the
// associated account of the offer authority under the deposited mint.
func GetVaultAddress(escrow, mintA ed25519.PublicKey) (ed25519.PublicKey, error) {
	return token.GetAssociatedAccount(escrow, mintA)
}

func seedBytes(seed uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, seed)
	return b
}
