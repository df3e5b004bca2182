package types

// ChildBlockInterval separates consecutive checkpoint blocks. Block numbers
// that are not a multiple of it belong to deposits.
const ChildBlockInterval uint64 = 1000

// IsDepositBlock reports whether n addresses a deposit rather than a
// checkpoint submitted by the authority.
func IsDepositBlock(n uint64) bool { return n%ChildBlockInterval != 0 }

// NextCheckpoint returns the first checkpoint number strictly above n.
func NextCheckpoint(n uint64) uint64 {
	return (n/ChildBlockInterval + 1) * ChildBlockInterval
}
