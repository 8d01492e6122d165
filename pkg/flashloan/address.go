package flashloan

import (
	"crypto/ed25519"

	"github.com/blueshift-protocols/custody/pkg/solana"
	"github.com/blueshift-protocols/custody/pkg/solana/token"
)

// ProtocolPrefix namespaces the single shared pool authority. There is no
// per-call seed: every borrower draws from the same pool.
var ProtocolPrefix = []byte("protocol")

// GetProtocolAddress derives the pool authority and its bump.
func GetProtocolAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(ProgramKey, ProtocolPrefix)
}

// GetPoolAddress returns the pool custody account holding the lendable
// reserve of a mint: the associated account of the pool authority.
func GetPoolAddress(mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	protocol, _, err := GetProtocolAddress()
	if err != nil {
		return nil, err
	}
	return token.GetAssociatedAccount(protocol, mint)
}
