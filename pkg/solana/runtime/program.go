package runtime

import (
	"crypto/ed25519"
)

// Program is an executable registered with the ledger. Execute is called once
// per instruction targeting the program's id and must either fully apply its
// effects or return an error, in which case the enclosing transaction is
// rolled back as a unit.
type Program interface {
	ID() ed25519.PublicKey
	Execute(ctx *Context) error
}
