// Package params defines the immutable configuration value consumed by
// the beacon chain core. The configuration is never ambient global
// state: a *BeaconConfig is constructed once (typically via
// MainnetConfig) and passed explicitly through every entry point that
// needs it.
package params

// FarFutureSlot is the sentinel used across validator lifecycle slots to
// mean "not yet scheduled."
const FarFutureSlot = uint64(1) << 63

// BeaconConfig holds every constant the core transition logic depends on.
// A value is constructed once (typically via MainnetConfig) and treated as
// immutable thereafter; core functions take it by pointer but must never
// mutate it.
type BeaconConfig struct {
	// Misc.
	ShardCount               uint64
	TargetCommitteeSize      uint64
	EjectionBalance           uint64
	MaxBalanceChurnQuotient   uint64
	BeaconChainShardNumber    uint64
	MaxCasperVotes            uint64

	// Ring buffer lengths.
	LatestBlockRootsLength       uint64
	LatestRandaoMixesLength      uint64
	LatestPenalizedExitLength    uint64

	// Deposit contract.
	DepositContractAddress   [20]byte
	DepositContractTreeDepth uint64
	MinDeposit               uint64
	MaxDeposit               uint64

	// Genesis values.
	GenesisForkVersion uint64
	GenesisSlot        uint64
	FarFutureSlot      uint64
	BLSWithdrawalPrefixByte byte

	// Time parameters.
	SlotDuration                       uint64
	MinAttestationInclusionDelay       uint64
	EpochLength                        uint64 // aka CycleLength
	MinValidatorRegistryChangeInterval uint64
	SeedLookahead                      uint64
	EntryExitDelay                     uint64
	PowReceiptRootVotingPeriod         uint64
	MinValidatorWithdrawalTime         uint64
	MinDynastyLength                   uint64

	// Reward/penalty quotients.
	BaseRewardQuotient          uint64
	WhistleblowerRewardQuotient uint64
	IncluderRewardQuotient      uint64
	InactivityPenaltyQuotient   uint64
	GweiPerEth                  uint64

	// Max operations per block.
	MaxProposerSlashings uint64
	MaxCasperSlashings   uint64
	MaxAttestations      uint64
	MaxDeposits          uint64
	MaxExits             uint64
}

// MainnetConfig returns the mainnet default constants.
func MainnetConfig() *BeaconConfig {
	return &BeaconConfig{
		ShardCount:                  1024,
		TargetCommitteeSize:         256,
		EjectionBalance:             16 * 1e9,
		MaxBalanceChurnQuotient:     32,
		BeaconChainShardNumber:      ^uint64(0),
		MaxCasperVotes:              1024,
		LatestBlockRootsLength:      8192,
		LatestRandaoMixesLength:     8192,
		LatestPenalizedExitLength:   8192,
		DepositContractTreeDepth:    32,
		MinDeposit:                  1 * 1e9,
		MaxDeposit:                  32 * 1e9,
		GenesisForkVersion:          0,
		GenesisSlot:                 0,
		FarFutureSlot:               FarFutureSlot,
		BLSWithdrawalPrefixByte:     0,
		SlotDuration:                6,
		MinAttestationInclusionDelay: 4,
		EpochLength:                 64,
		MinValidatorRegistryChangeInterval: 256,
		SeedLookahead:               64,
		EntryExitDelay:              256,
		PowReceiptRootVotingPeriod:  1024,
		MinValidatorWithdrawalTime:  16384,
		MinDynastyLength:            256,
		BaseRewardQuotient:          1024,
		WhistleblowerRewardQuotient: 512,
		IncluderRewardQuotient:      8,
		InactivityPenaltyQuotient:   1 << 34,
		GweiPerEth:                  1e9,
		MaxProposerSlashings:        16,
		MaxCasperSlashings:          16,
		MaxAttestations:             128,
		MaxDeposits:                 16,
		MaxExits:                    16,
	}
}
