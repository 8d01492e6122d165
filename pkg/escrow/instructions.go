package escrow

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/blueshift-protocols/custody/pkg/solana"
)

// ProgramKey is the address of the escrow program.
//
// Current key: 22222222222222222222222222222222222222222222
var ProgramKey = ed25519.PublicKey{
	0x0f, 0x1e, 0x6b, 0x14, 0x21, 0xc0, 0x4a, 0x07,
	0x04, 0x31, 0x26, 0x5c, 0x19, 0xc5, 0xbb, 0xee,
	0x19, 0x92, 0xba, 0xe8, 0xaf, 0xd1, 0xcd, 0x07,
	0x8e, 0xf8, 0xaf, 0x70, 0x47, 0xdc, 0x11, 0xf7,
}

type Command byte

const (
	CommandMake Command = iota
	CommandTake
	CommandRefund
)

// MakeInstructionArgsSize is the exact argument length of a Make
// instruction: seed:u64 ‖ receive:u64 ‖ amount:u64.
const MakeInstructionArgsSize = 3 * 8

type MakeInstructionArgs struct {
	Seed          uint64
	ReceiveAmount uint64
	DepositAmount uint64
}

type MakeInstructionAccounts struct {
	Maker       ed25519.PublicKey
	Escrow      ed25519.PublicKey
	MintA       ed25519.PublicKey
	MintB       ed25519.PublicKey
	MakerTokenA ed25519.PublicKey
	Vault       ed25519.PublicKey
}

func NewMakeInstruction(accounts *MakeInstructionAccounts, args *MakeInstructionArgs) solana.Instruction {
	data := make([]byte, 1+MakeInstructionArgsSize)
	data[0] = byte(CommandMake)
	binary.LittleEndian.PutUint64(data[1:], args.Seed)
	binary.LittleEndian.PutUint64(data[9:], args.ReceiveAmount)
	binary.LittleEndian.PutUint64(data[17:], args.DepositAmount)

	// Accounts expected by this instruction:
	//
	//   0. `[writable, signer]` The maker creating the offer.
	//   1. `[writable]` The escrow record, at the derived offer address.
	//   2. `[]` The mint being deposited.
	//   3. `[]` The mint being requested.
	//   4. `[writable]` The maker's custody account for the deposited mint.
	//   5. `[writable]` The vault, at the offer authority's custody address.
	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(accounts.Maker, true),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewReadonlyAccountMeta(accounts.MintA, false),
		solana.NewReadonlyAccountMeta(accounts.MintB, false),
		solana.NewAccountMeta(accounts.MakerTokenA, false),
		solana.NewAccountMeta(accounts.Vault, false),
	)
}

type TakeInstructionAccounts struct {
	Taker       ed25519.PublicKey
	Maker       ed25519.PublicKey
	Escrow      ed25519.PublicKey
	MintA       ed25519.PublicKey
	MintB       ed25519.PublicKey
	Vault       ed25519.PublicKey
	TakerTokenA ed25519.PublicKey
	TakerTokenB ed25519.PublicKey
	MakerTokenB ed25519.PublicKey
}

func NewTakeInstruction(accounts *TakeInstructionAccounts) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable, signer]` The taker accepting the offer.
	//   1. `[writable]` The maker recorded in the offer.
	//   2. `[writable]` The escrow record.
	//   3. `[]` The deposited mint.
	//   4. `[]` The requested mint.
	//   5. `[writable]` The vault.
	//   6. `[writable]` The taker's custody account for the deposited mint,
	//      created if absent.
	//   7. `[writable]` The taker's custody account for the requested mint.
	//   8. `[writable]` The maker's custody account for the requested mint,
	//      created if absent.
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandTake)},
		solana.NewAccountMeta(accounts.Taker, true),
		solana.NewAccountMeta(accounts.Maker, false),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewReadonlyAccountMeta(accounts.MintA, false),
		solana.NewReadonlyAccountMeta(accounts.MintB, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.TakerTokenA, false),
		solana.NewAccountMeta(accounts.TakerTokenB, false),
		solana.NewAccountMeta(accounts.MakerTokenB, false),
	)
}

type RefundInstructionAccounts struct {
	Maker       ed25519.PublicKey
	Escrow      ed25519.PublicKey
	MintA       ed25519.PublicKey
	Vault       ed25519.PublicKey
	MakerTokenA ed25519.PublicKey
}

func NewRefundInstruction(accounts *RefundInstructionAccounts) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable, signer]` The maker canceling their own offer.
	//   1. `[writable]` The escrow record.
	//   2. `[]` The deposited mint.
	//   3. `[writable]` The vault.
	//   4. `[writable]` The maker's custody account for the deposited mint,
	//      created if absent.
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandRefund)},
		solana.NewAccountMeta(accounts.Maker, true),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewReadonlyAccountMeta(accounts.MintA, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.MakerTokenA, false),
	)
}

func parseMakeArgs(data []byte) (*MakeInstructionArgs, error) {
	if len(data) != 1+MakeInstructionArgsSize {
		return nil, ErrInvalidInstructionData
	}

	return &MakeInstructionArgs{
		Seed:          binary.LittleEndian.Uint64(data[1:]),
		ReceiveAmount: binary.LittleEndian.Uint64(data[9:]),
		DepositAmount: binary.LittleEndian.Uint64(data[17:]),
	}, nil
}
