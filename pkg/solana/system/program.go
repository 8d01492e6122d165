package system

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/blueshift-protocols/custody/pkg/solana"
)

// ProgramKey is the address of the account-creation service. It owns every
// plain wallet account and is the only program that allocates new storage.
var ProgramKey [32]byte

const (
	commandCreateAccount uint32 = iota
	commandTransfer
)

const createAccountDataSize = 4 + 2*8 + 32

// CreateAccount allocates `space` zeroed bytes at `address` under `owner`,
// funded with `lamports` taken from `funder`.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L58-L72
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, space uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE, SIGNER] New account
	data := make([]byte, createAccountDataSize)
	binary.LittleEndian.PutUint32(data, commandCreateAccount)
	binary.LittleEndian.PutUint64(data[4:], lamports)
	binary.LittleEndian.PutUint64(data[4+8:], space)
	copy(data[4+2*8:], owner)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	)
}

// Transfer moves lamports between system-owned accounts.
func Transfer(sender, receiver ed25519.PublicKey, lamports uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE] Recipient account
	data := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(data, commandTransfer)
	binary.LittleEndian.PutUint64(data[4:], lamports)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(sender, true),
		solana.NewAccountMeta(receiver, false),
	)
}

type DecompiledCreateAccount struct {
	Funder  ed25519.PublicKey
	Address ed25519.PublicKey

	Lamports uint64
	Size     uint64
	Owner    ed25519.PublicKey
}

func DecompileCreateAccount(instruction solana.Instruction) (*DecompiledCreateAccount, error) {
	if !bytes.Equal(instruction.Program, ProgramKey[:]) {
		return nil, solana.ErrIncorrectProgram
	}

	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], commandCreateAccount)
	if !bytes.HasPrefix(instruction.Data, prefix[:]) {
		return nil, solana.ErrIncorrectInstruction
	}

	if len(instruction.Accounts) != 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(instruction.Accounts))
	}
	if len(instruction.Data) != createAccountDataSize {
		return nil, errors.Errorf("invalid instruction data size: %d", len(instruction.Data))
	}

	v := &DecompiledCreateAccount{
		Funder:  instruction.Accounts[0].PublicKey,
		Address: instruction.Accounts[1].PublicKey,
	}
	v.Lamports = binary.LittleEndian.Uint64(instruction.Data[4:])
	v.Size = binary.LittleEndian.Uint64(instruction.Data[4+8:])
	v.Owner = make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(v.Owner, instruction.Data[4+2*8:])

	return v, nil
}
