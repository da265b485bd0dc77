package stepid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrMilliEpochOverflow = errors.New("epoch allows for up to 2^40 milliseconds")

// EpochMS returns the unix millisecond value of the start of the given
// commitment epoch.
func EpochMS(epoch uint8) int64 {
	return int64(epoch) * ((1 << TimeBits) - 1)
}

// EpochTimeUTC returns the start of the given commitment epoch as a UTC time.
func EpochTimeUTC(epoch uint8) time.Time {
	return time.UnixMilli(EpochMS(epoch)).UTC()
}

// IDTime recovers the wall clock time a minted id was created at, given the
// epoch start it was minted against.
func IDTime(id uint64, epochStart time.Time) time.Time {
	ms := id >> TimeShift
	return epochStart.Add(time.Duration(ms) * time.Millisecond)
}

// IDUnixMilli recovers the unix millisecond timestamp embedded in id.
func IDUnixMilli(id uint64, epoch uint8) (int64, error) {
	ms, _ := IDMilliSplit(id)
	startMS := uint64(EpochMS(epoch))
	if ms+startMS > math.MaxInt64 {
		return 0, fmt.Errorf("%d too large when added to epoch start: %w", ms, ErrMilliEpochOverflow)
	}
	return int64(startMS + ms), nil
}

// IDMilliSplit splits id into its millisecond component and its
// worker+sequence component.
func IDMilliSplit(id uint64) (uint64, uint32) {
	ms := id >> TimeShift

	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(id&^TimeMask))
	return ms, binary.BigEndian.Uint32(buf)
}
