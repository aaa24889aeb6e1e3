package session

// Credit accounting constants. [MS-SMB2] 3.2.4.1.5.
const (
	DefaultInitialCredits = 256
	MinimumCreditGrant    = 1
	MaximumCreditGrant    = 8192
	DefaultCreditPerOp    = 1
	// CreditUnitSize is the I/O byte count one credit covers (64KB).
	CreditUnitSize = 65536
)

// Strategy selects how Manager.GrantCredits computes the next grant.
type Strategy uint

const (
	// StrategyFixed always grants InitialGrant credits.
	StrategyFixed Strategy = iota
	// StrategyEcho grants what the client requested, clamped to [Min,Max]Grant.
	StrategyEcho
	// StrategyAdaptive adjusts the grant by server load and client behavior.
	StrategyAdaptive
)

// CreditConfig configures credit-grant behavior.
type CreditConfig struct {
	MinGrant                  uint16
	MaxGrant                  uint16
	InitialGrant              uint16
	MaxSessionCredits         uint32
	LoadThresholdHigh         int64
	LoadThresholdLow          int64
	AggressiveClientThreshold int64
}

// DefaultCreditConfig returns a conservative, production-sized configuration.
func DefaultCreditConfig() CreditConfig {
	return CreditConfig{
		MinGrant:                  16,
		MaxGrant:                  MaximumCreditGrant,
		InitialGrant:              DefaultInitialCredits,
		MaxSessionCredits:         65535,
		LoadThresholdHigh:         1000,
		LoadThresholdLow:          100,
		AggressiveClientThreshold: 256,
	}
}

// CalculateCreditCharge computes the credit charge for a READ/WRITE transfer
// of the given byte count: 1 credit per started 64KB unit.
func CalculateCreditCharge(bytes uint32) uint16 {
	if bytes == 0 {
		return 1
	}
	return uint16((uint64(bytes) + CreditUnitSize - 1) / CreditUnitSize)
}
