package flashloan

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"

	"github.com/blueshift-protocols/custody/pkg/solana"
)

// ProgramKey is the address of the flash-loan program.
var ProgramKey = ed25519.PublicKey{
	0x2b, 0x90, 0x5c, 0xf1, 0x33, 0xa2, 0x17, 0x6e,
	0xc4, 0x5d, 0x08, 0x9a, 0x71, 0xee, 0x52, 0x03,
	0xd7, 0x4f, 0x1c, 0x46, 0x9d, 0xb2, 0xe4, 0x18,
	0x6a, 0x39, 0xcc, 0x05, 0x58, 0xb1, 0x27, 0xe5,
}

// DiscriminatorSize is the fixed length of the instruction tag prefixing
// every instruction payload.
const DiscriminatorSize = 8

// BorrowInstructionDataSize is discriminator plus borrow_amount:u64. Repay
// carries no arguments: the amount is recovered from the sibling Borrow.
const BorrowInstructionDataSize = DiscriminatorSize + 8

var (
	BorrowInstructionDiscriminator = instructionDiscriminator("borrow")
	RepayInstructionDiscriminator  = instructionDiscriminator("repay")
)

// instructionDiscriminator derives the 8 byte instruction tag from the
// instruction's name, Anchor's global namespace convention.
func instructionDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:DiscriminatorSize]
}

// LoanInstructionAccounts is the shared account list of Borrow and Repay.
// The two custody accounts sit at fixed positions 3 and 4, which Borrow's
// sibling-instruction checks rely on.
type LoanInstructionAccounts struct {
	Borrower      ed25519.PublicKey
	PoolAuthority ed25519.PublicKey
	Mint          ed25519.PublicKey
	BorrowerToken ed25519.PublicKey
	Pool          ed25519.PublicKey
}

func loanAccountMetas(accounts *LoanInstructionAccounts) []solana.AccountMeta {
	// Accounts expected by these instructions:
	//
	//   0. `[writable, signer]` The borrower.
	//   1. `[]` The pool authority, at the protocol derivation.
	//   2. `[]` The borrowed mint.
	//   3. `[writable]` The borrower's custody account, created if absent.
	//   4. `[writable]` The pool custody account.
	return []solana.AccountMeta{
		solana.NewAccountMeta(accounts.Borrower, true),
		solana.NewReadonlyAccountMeta(accounts.PoolAuthority, false),
		solana.NewReadonlyAccountMeta(accounts.Mint, false),
		solana.NewAccountMeta(accounts.BorrowerToken, false),
		solana.NewAccountMeta(accounts.Pool, false),
	}
}

type BorrowInstructionArgs struct {
	BorrowAmount uint64
}

func NewBorrowInstruction(accounts *LoanInstructionAccounts, args *BorrowInstructionArgs) solana.Instruction {
	data := make([]byte, BorrowInstructionDataSize)
	copy(data, BorrowInstructionDiscriminator)
	binary.LittleEndian.PutUint64(data[DiscriminatorSize:], args.BorrowAmount)

	return solana.NewInstruction(ProgramKey, data, loanAccountMetas(accounts)...)
}

func NewRepayInstruction(accounts *LoanInstructionAccounts) solana.Instruction {
	data := make([]byte, DiscriminatorSize)
	copy(data, RepayInstructionDiscriminator)

	return solana.NewInstruction(ProgramKey, data, loanAccountMetas(accounts)...)
}
