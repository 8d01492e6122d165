package token

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/blueshift-protocols/custody/pkg/solana"
)

// ProgramKey is the address of the fungible token subsystem.
//
// Current key: TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA
var ProgramKey = ed25519.PublicKey{6, 221, 246, 225, 215, 101, 161, 147, 217, 203, 225, 70, 206, 235, 121, 172, 28, 180, 133, 237, 95, 91, 55, 145, 58, 140, 245, 133, 126, 255, 0, 169}

// Command discriminators retain the values of the SPL token instructions
// they correspond to.
type Command byte

const (
	CommandInitializeMint    Command = 0
	CommandInitializeAccount Command = 1
	CommandMintTo            Command = 7
	CommandCloseAccount      Command = 9
	CommandTransferChecked   Command = 12
)

// InitializeMint initializes a new mint with the given decimal precision
// under a minting authority.
func InitializeMint(mint, authority ed25519.PublicKey, decimals uint8) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint to initialize.
	data := make([]byte, 2+ed25519.PublicKeySize)
	data[0] = byte(CommandInitializeMint)
	data[1] = decimals
	copy(data[2:], authority)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(mint, false),
	)
}

// InitializeAccount initializes a custody account for a mint under an owning
// authority. The authority may be a derived address with no private key.
func InitializeAccount(account, mint, owner ed25519.PublicKey) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The account to initialize.
	//   1. `[]` The mint this account will be associated with.
	//   2. `[]` The new account's owner.
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandInitializeAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(owner, false),
	)
}

// MintTo issues new supply into a custody account.
func MintTo(mint, destination, authority ed25519.PublicKey, amount uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint.
	//   1. `[writable]` The account to credit.
	//   2. `[signer]` The mint authority.
	data := make([]byte, 1+8)
	data[0] = byte(CommandMintTo)
	binary.LittleEndian.PutUint64(data[1:], amount)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(mint, false),
		solana.NewAccountMeta(destination, false),
		solana.NewReadonlyAccountMeta(authority, true),
	)
}

// TransferChecked moves tokens between two custody accounts of the same
// mint, verifying the caller's expectation of the mint's decimal precision.
func TransferChecked(source, mint, destination, authority ed25519.PublicKey, amount uint64, decimals uint8) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The source account.
	//   1. `[]` The token mint.
	//   2. `[writable]` The destination account.
	//   3. `[signer]` The source account's owner.
	data := make([]byte, 1+8+1)
	data[0] = byte(CommandTransferChecked)
	binary.LittleEndian.PutUint64(data[1:], amount)
	data[9] = decimals

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(source, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewAccountMeta(destination, false),
		solana.NewReadonlyAccountMeta(authority, true),
	)
}

// CloseAccount closes an emptied custody account, sending its lamports to
// the destination.
func CloseAccount(account, destination, authority ed25519.PublicKey) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The account to close.
	//   1. `[writable]` The destination for the reclaimed lamports.
	//   2. `[signer]` The account's owner.
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandCloseAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewAccountMeta(destination, false),
		solana.NewReadonlyAccountMeta(authority, true),
	)
}

type DecompiledTransferChecked struct {
	Source      ed25519.PublicKey
	Mint        ed25519.PublicKey
	Destination ed25519.PublicKey
	Authority   ed25519.PublicKey

	Amount   uint64
	Decimals uint8
}

func DecompileTransferChecked(instruction solana.Instruction) (*DecompiledTransferChecked, error) {
	if !instruction.Program.Equal(ProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}
	if len(instruction.Data) != 1+8+1 || Command(instruction.Data[0]) != CommandTransferChecked {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(instruction.Accounts) != 4 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(instruction.Accounts))
	}

	return &DecompiledTransferChecked{
		Source:      instruction.Accounts[0].PublicKey,
		Mint:        instruction.Accounts[1].PublicKey,
		Destination: instruction.Accounts[2].PublicKey,
		Authority:   instruction.Accounts[3].PublicKey,
		Amount:      binary.LittleEndian.Uint64(instruction.Data[1:]),
		Decimals:    instruction.Data[9],
	}, nil
}
