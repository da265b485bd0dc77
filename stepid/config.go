package stepid

// Config configures a Minter.
type Config struct {
	// CommitmentEpoch determines the reference zero time relative to unix
	// time. It is a uint8 so that CommitmentEpoch * 2^TimeBits cannot
	// overflow an int64. Each epoch is ~34 years; production configuration
	// should fix this as a constant for the lifetime of a trust framework
	// deployment.
	CommitmentEpoch uint8

	// WorkerCIDR selects how many bits of the minting process's private ip
	// address are folded into the id, so that two co-located producers
	// cannot mint the same value.
	WorkerCIDR string

	// PodIP is the minting process's private ip address.
	PodIP string

	// AllowSpins bounds the number of compare-and-swap retries NextID will
	// attempt under contention before returning ErrOverloaded. MaxSpins is
	// a reasonable default for callers with no stronger opinion.
	AllowSpins uint8
}

const (
	// TimeBits is the number of bits of the packed id reserved for the
	// millisecond timestamp. This gives an epoch of ~34 years.
	TimeBits  = 40
	TimeShift = 64 - TimeBits

	TimeMask uint64 = ((1 << TimeBits) - 1) << TimeShift
)
