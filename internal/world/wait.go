package world

import (
	"fmt"
	"time"
)

type waitMode int

const (
	waitPoll waitMode = iota
	waitBlock
	waitUpTo
)

// Wait tells Pump how long to wait when nothing is ready. The zero value
// polls.
type Wait struct {
	mode waitMode
	d    time.Duration
}

var (
	// BlockUntilEvent waits until an event, timer or deadline is due.
	BlockUntilEvent = Wait{mode: waitBlock}
	// PollOnce processes what is ready and returns immediately.
	PollOnce = Wait{mode: waitPoll}
)

// WaitUpTo waits at most d. A non-positive d polls.
func WaitUpTo(d time.Duration) Wait {
	if d <= 0 {
		return PollOnce
	}
	return Wait{mode: waitUpTo, d: d}
}

// limit returns the maximum wait, or false for no limit.
func (w Wait) limit() (time.Duration, bool) {
	switch w.mode {
	case waitBlock:
		return 0, false
	case waitUpTo:
		return w.d, true
	default:
		return 0, true
	}
}

func (w Wait) String() string {
	switch w.mode {
	case waitBlock:
		return "block"
	case waitUpTo:
		return fmt.Sprintf("up to %s", w.d)
	default:
		return "poll"
	}
}
