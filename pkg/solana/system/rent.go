package system

// Rent parameters, matching the Solana runtime's defaults.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/rent.rs
const (
	accountStorageOverhead  = 128
	lamportsPerByteYear     = 3480
	exemptionThresholdYears = 2
)

// RentExemptBalance returns the lamport deposit an account of the given data
// size must hold to be exempt from rent collection. The deposit is reclaimed
// by whoever the account is closed to.
func RentExemptBalance(size uint64) uint64 {
	return (accountStorageOverhead + size) * lamportsPerByteYear * exemptionThresholdYears
}
