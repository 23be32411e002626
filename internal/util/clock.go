package util

import "time"

// Clock abstracts the wall clock so that tracking code can be driven
// deterministically in tests and in script replays.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers periodic ticks on C. Stop releases it; C is never closed.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type systemTicker struct {
	t *time.Ticker
}

func (s systemTicker) C() <-chan time.Time { return s.t.C }

func (s systemTicker) Stop() { s.t.Stop() }
