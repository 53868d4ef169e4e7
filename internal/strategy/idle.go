package strategy

import (
	"time"

	"github.com/darrell-green/prewarm/internal/types"
)

// TimerIdleScheduler is the fallback idle scheduler for hosts without an
// idle-callback capability: it simply treats "idle" as "timeout elapsed".
type TimerIdleScheduler struct{}

// NewTimerIdleScheduler creates the fallback scheduler.
func NewTimerIdleScheduler() *TimerIdleScheduler {
	return &TimerIdleScheduler{}
}

// Schedule implements types.IdleScheduler.
func (s *TimerIdleScheduler) Schedule(fn func(), timeout time.Duration) (cancel func()) {
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	t := time.AfterFunc(timeout, fn)
	return func() { t.Stop() }
}

var _ types.IdleScheduler = (*TimerIdleScheduler)(nil)
