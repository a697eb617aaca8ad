package item

import "time"

// TimerItem fires once after Duration has elapsed, as measured from the
// moment the Timer Worker accepts it (not from construction).
type TimerItem struct {
	Base

	Duration time.Duration

	FiredAt time.Time
}

// NewTimer builds a TimerItem that fires after d.
func NewTimer(d time.Duration) *TimerItem {
	return &TimerItem{
		Base:     NewBase(KindTimer),
		Duration: d,
	}
}
