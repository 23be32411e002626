package activity

import "time"

// Span is the time interval of an activity entry. A zero End means no
// activity has been credited past Start yet.
type Span struct {
	Start time.Time
	End   time.Time
}

// Ended reports whether the span has been given an end
func (s Span) Ended() bool {
	return !s.End.IsZero()
}

// Duration returns End-Start, or zero for a span without an end
func (s Span) Duration() time.Duration {
	if !s.Ended() {
		return 0
	}
	return s.End.Sub(s.Start)
}

// baseEnd is the last instant the entry is known to have been live
func (s Span) baseEnd() time.Time {
	if !s.Ended() {
		return s.Start
	}
	return s.End
}

// closeAt assigns End using the grace rule: a gap of at most one grace
// window is absorbed, privileged spans always reach now, anything else is
// credited with a single grace window past its last known activity.
func (s *Span) closeAt(now time.Time, grace time.Duration, privileged bool) {
	base := s.baseEnd()
	gap := now.Sub(base)

	switch {
	case gap <= grace, privileged:
		s.End = later(base, now)
	default:
		s.End = base.Add(grace)
	}
}

// extendTo moves End forward to t; it never moves it backwards
func (s *Span) extendTo(t time.Time) {
	s.End = later(s.baseEnd(), t)
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// State is a mutually exclusive developer mode (coding, debugging, idle...)
type State struct {
	Kind      Kind
	ProjectID string
	Span
}

// CodeContext locates an event in the source tree
type CodeContext struct {
	File      string
	Line      int
	Member    string
	ClassName string
	Namespace string
}

// Event is a discrete occurrence timed independently of the open state
type Event struct {
	Kind      Kind
	ProjectID string
	CodeContext
	Span
}

// continues reports whether candidate is the same occurrence as e
func (e Event) continues(candidate Event) bool {
	return e.Kind == candidate.Kind &&
		e.File == candidate.File &&
		e.Line == candidate.Line
}

// Batch is an immutable snapshot of closed entries handed to transport.
// Every entry in a batch has a non-zero End.
type Batch struct {
	States []State
	Events []Event
}

// IsEmpty reports whether the batch carries nothing
func (b Batch) IsEmpty() bool {
	return len(b.States) == 0 && len(b.Events) == 0
}

// Bounds returns the earliest start and latest end across the batch
func (b Batch) Bounds() (start, end time.Time) {
	visit := func(s Span) {
		if start.IsZero() || s.Start.Before(start) {
			start = s.Start
		}
		if s.End.After(end) {
			end = s.End
		}
	}
	for _, st := range b.States {
		visit(st.Span)
	}
	for _, ev := range b.Events {
		visit(ev.Span)
	}
	return start, end
}
