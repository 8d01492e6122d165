package runtime

import (
	"crypto/ed25519"
)

// Account is a ledger account: an address, the program that owns (and may
// mutate) it, a lamport balance backing its storage, and its raw data bytes.
type Account struct {
	Key      ed25519.PublicKey
	Owner    ed25519.PublicKey
	Lamports uint64
	Data     []byte
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	data := make([]byte, len(a.Data))
	copy(data, a.Data)

	return &Account{
		Key:      append(ed25519.PublicKey{}, a.Key...),
		Owner:    append(ed25519.PublicKey{}, a.Owner...),
		Lamports: a.Lamports,
		Data:     data,
	}
}
