package stepid

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// MaxSpins is a default for Config.AllowSpins, which bounds the number of
// compare-and-swap retries NextID will attempt under contention before
// giving up.
const MaxSpins = 100

var (
	ErrWorkerBitRange    = errors.New("the bit allocation for worker id and sequence bits overflows the reserved timestamp space")
	ErrOverloaded        = errors.New("the id generator is overloaded for its configuration")
	ErrClockError        = errors.New("the reading from system time doesn't make any realistic sense")
	ErrSequenceViolation = errors.New("the generator produced two consecutive values violating the monotonic or uniqueness promise")

	// unixNanoEpochEndSentinel guards against the nanosecond unix clock
	// overflowing an int64, see time.Time.UnixNano.
	unixNanoEpochEndSentinel = time.Date(2261, 1, 1, 1, 1, 1, 1, time.UTC)
)

// Minter produces a time ordered, unique sequence of step identifiers.
//
// A Minter is safe for concurrent use: NextID is implemented as a lock free
// read/modify/write loop over a single atomic word.
type Minter struct {
	maskedWorkerID uint64
	seqMask        uint64
	allowSpins     int

	epochStartWallClock     time.Time
	generatorStart          time.Time
	generatorStartWallOffet time.Duration

	monotonic atomic.Uint64
}

// NewMinter builds a Minter from cfg.
func NewMinter(cfg Config) (*Minter, error) {
	workerID, seqBits, err := workerIDSequenceBits(cfg)
	if err != nil {
		return nil, err
	}

	m := &Minter{allowSpins: int(cfg.AllowSpins)}
	if err := m.initTime(cfg.CommitmentEpoch); err != nil {
		return nil, err
	}
	if err := m.initState(workerID, seqBits); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Minter) initTime(epoch uint8) error {
	m.generatorStart = time.Now() // do not call .UTC(): that strips the monotonic reading
	if m.generatorStart.After(unixNanoEpochEndSentinel) {
		return fmt.Errorf("clock reading is close to overflowing int64: %w", ErrClockError)
	}

	m.epochStartWallClock = EpochTimeUTC(epoch)
	m.generatorStartWallOffet = m.generatorStart.Sub(m.epochStartWallClock)
	return nil
}

func (m *Minter) initState(workerID uint16, seqBits int) error {
	if seqBits > MaxWorkerBits || MaxWorkerBits-seqBits < MinWorkerBits {
		return fmt.Errorf("sequence bit count %d is too large: %w", seqBits, ErrWorkerBitRange)
	}
	if seqBits < MinWorkerBits {
		return fmt.Errorf("sequence bit count %d is too small: %w", seqBits, ErrWorkerBitRange)
	}

	m.maskedWorkerID = uint64(workerID) << seqBits
	m.seqMask = (1 << seqBits) - 1
	m.monotonic.Store(0)
	return nil
}

func (m *Minter) millisecondMonotonicNow() uint64 {
	now := time.Now()
	epochNow := now.Sub(m.generatorStart) + m.generatorStartWallOffet
	return uint64(epochNow / time.Millisecond)
}

// NextID returns the next value in a time ordered, unique, monotonic
// series. Callers that receive ErrOverloaded should back off with jitter
// and retry; the condition only arises under sustained high contention.
func (m *Minter) NextID() (uint64, error) {
	var next uint64

	for i := 0; i <= m.allowSpins; i++ {
		now := m.millisecondMonotonicNow()
		last := m.monotonic.Load()

		lastTime := last >> TimeShift
		lastSeq := last & m.seqMask

		switch {
		case now > lastTime:
			next = now << TimeShift
		case lastSeq == m.seqMask:
			// sequence exhausted for this millisecond: force the clock forward
			next = (lastTime + 1) << TimeShift
		default:
			next = last + 1
		}

		if next <= last {
			return 0, fmt.Errorf("%016x:%016x %d:%d:%w", last, next, lastTime, now, ErrSequenceViolation)
		}

		if m.monotonic.CompareAndSwap(last, next) {
			return next | m.maskedWorkerID, nil
		}
		next = 0
	}

	return 0, ErrOverloaded
}

// EpochStart returns the wall clock start time of this Minter's configured
// commitment epoch.
func (m *Minter) EpochStart() time.Time {
	return m.epochStartWallClock
}
