// Package progress turns raw byte counters into coalesced progress
// snapshots. It performs no I/O, so it can be exercised with synthetic
// counters.
package progress

import (
	"time"

	"github.com/fetchd/fetchd/internal/data"
)

// DefaultInterval is the byte cadence used for sources with no declared
// length. Tunable, not a contract.
const DefaultInterval int64 = 256 * 1024

// Percentage computes floor(bytes*100/total) clamped to [0,100], or -1 when
// the total is unknown. A declared zero-length body is considered complete.
func Percentage(bytes, total int64) int {
	if total < 0 {
		return -1
	}
	if total == 0 {
		return 100
	}
	pct := int(bytes * 100 / total)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Tracker builds snapshots for a single transfer and decides which progress
// observations are worth emitting. When the total is known only percentage
// changes are reported; otherwise a byte interval is used.
type Tracker struct {
	fileName string
	total    int64
	interval int64

	lastPct   int
	lastBytes int64
	lastEmit  time.Time
	now       func() time.Time
}

func NewTracker(fileName string, total, interval int64) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Tracker{
		fileName: fileName,
		total:    total,
		interval: interval,
		lastPct:  -1,
		now:      time.Now,
	}
}

// Snapshot builds an observation for the given state and byte count.
func (t *Tracker) Snapshot(state data.State, bytes int64) data.Snapshot {
	return data.Snapshot{
		State:            state,
		BytesTransferred: bytes,
		TotalBytes:       t.total,
		Percentage:       Percentage(bytes, t.total),
		FileName:         t.fileName,
	}
}

// Terminal builds the final observation for a transfer.
func (t *Tracker) Terminal(state data.State, bytes int64, kind data.ErrorKind, msg string) data.Snapshot {
	s := t.Snapshot(state, bytes)
	s.ErrorKind = kind
	s.ErrorMessage = msg
	return s
}

// Advance records a new cumulative byte count and reports whether a progress
// snapshot should be emitted for it. Duplicate percentages are coalesced.
func (t *Tracker) Advance(bytes int64) (data.Snapshot, bool) {
	emit := false
	if t.total >= 0 {
		if pct := Percentage(bytes, t.total); pct != t.lastPct {
			t.lastPct = pct
			emit = true
		}
	} else if bytes-t.lastBytes >= t.interval {
		emit = true
	}
	if !emit {
		return data.Snapshot{}, false
	}

	s := t.Snapshot(data.StateTransferring, bytes)
	now := t.now()
	if !t.lastEmit.IsZero() {
		if dt := now.Sub(t.lastEmit).Seconds(); dt > 0 {
			s.Speed = int64(float64(bytes-t.lastBytes) / dt)
		}
	}
	t.lastEmit = now
	t.lastBytes = bytes
	return s, true
}
