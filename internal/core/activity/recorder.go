package activity

import (
	"errors"
	"fmt"
	"time"

	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

var (
	// ErrNotInitialized is returned when a recorder is used before
	// NewRecorder or after Dispose.
	ErrNotInitialized = errors.New("recorder should be initialized before used")

	// ErrInvalidKind is returned when a state is recorded with an event kind or vice versa
	ErrInvalidKind = errors.New("invalid activity kind")
)

// Recorder is the session buffer. It keeps the open state, the open event
// and the closed entries awaiting the next batch, coalescing contiguous
// same-kind activity into single spans.
//
// A Recorder is not safe for concurrent use; its owner serialises access.
type Recorder struct {
	clock util.Clock
	grace time.Duration

	initialized bool

	closedStates []State
	closedEvents []Event
	openState    *State
	openEvent    *Event
}

// NewRecorder returns an initialized recorder. grace is the idle check
// interval: the longest silence an entry absorbs when it is closed.
func NewRecorder(clock util.Clock, grace time.Duration) *Recorder {
	return &Recorder{
		clock:       clock,
		grace:       grace,
		initialized: true,
	}
}

// Dispose drops all buffered activity; the recorder is unusable afterwards
func (r *Recorder) Dispose() {
	r.initialized = false
	r.closedStates = nil
	r.closedEvents = nil
	r.openState = nil
	r.openEvent = nil
}

// Reset drops all buffered activity, including the open entries that
// extraction carries forward. The recorder stays usable.
func (r *Recorder) Reset() {
	if !r.IsInitialized() {
		return
	}
	r.closedStates = nil
	r.closedEvents = nil
	r.openState = nil
	r.openEvent = nil
}

// IsInitialized reports whether the recorder accepts activity
func (r *Recorder) IsInitialized() bool {
	return r != nil && r.initialized
}

// OpenState returns a copy of the open state, if any
func (r *Recorder) OpenState() (State, bool) {
	if !r.IsInitialized() || r.openState == nil {
		return State{}, false
	}
	return *r.openState, true
}

// OpenEvent returns a copy of the open event, if any
func (r *Recorder) OpenEvent() (Event, bool) {
	if !r.IsInitialized() || r.openEvent == nil {
		return Event{}, false
	}
	return *r.openEvent, true
}

// Pending returns how many closed states and events await extraction
func (r *Recorder) Pending() (states, events int) {
	if !r.IsInitialized() {
		return 0, 0
	}
	return len(r.closedStates), len(r.closedEvents)
}

// RecordState extends the open state when candidate has the same kind,
// otherwise closes it (together with any dangling event) and opens
// candidate. A zero candidate.Start means now.
func (r *Recorder) RecordState(candidate State) error {
	if !r.IsInitialized() {
		return ErrNotInitialized
	}
	if !candidate.Kind.IsState() {
		return fmt.Errorf("%w: %s is not a state", ErrInvalidKind, candidate.Kind)
	}

	now := r.clock.Now()

	if r.openState != nil && r.openState.Kind == candidate.Kind {
		r.openState.extendTo(now)
		return nil
	}

	if r.openState != nil {
		r.closeState(now)
		r.closeEvent(now)
	}

	r.openState = &State{
		Kind:      candidate.Kind,
		ProjectID: candidate.ProjectID,
		Span:      Span{Start: startOf(candidate.Span, now)},
	}
	return nil
}

// RecordEvent extends the open event when candidate has the same kind, file
// and line, otherwise closes it and opens candidate. A zero candidate.Start
// means now.
func (r *Recorder) RecordEvent(candidate Event) error {
	if !r.IsInitialized() {
		return ErrNotInitialized
	}
	if !candidate.Kind.IsEvent() {
		return fmt.Errorf("%w: %s is not an event", ErrInvalidKind, candidate.Kind)
	}

	now := r.clock.Now()

	if r.openEvent != nil && r.openEvent.continues(candidate) {
		r.openEvent.extendTo(now)
		return nil
	}

	r.closeEvent(now)

	opened := candidate
	opened.Span = Span{Start: startOf(candidate.Span, now)}
	r.openEvent = &opened
	return nil
}

// WidenState re-applies the grace rule to the open state without closing it
func (r *Recorder) WidenState() error {
	if !r.IsInitialized() {
		return ErrNotInitialized
	}
	if r.openState != nil {
		r.openState.closeAt(r.clock.Now(), r.grace, r.openState.Kind.IsPrivileged())
	}
	return nil
}

// TouchState moves the open state's end forward to t
func (r *Recorder) TouchState(t time.Time) error {
	if !r.IsInitialized() {
		return ErrNotInitialized
	}
	if r.openState != nil {
		r.openState.extendTo(t)
	}
	return nil
}

// ExtractBatch closes the open entries as of now, returns every closed
// entry, and reopens clones of the open entries starting now so the
// activity stream continues across the flush. It returns an empty batch
// when nothing was ever recorded.
func (r *Recorder) ExtractBatch() (Batch, error) {
	if !r.IsInitialized() {
		return Batch{}, ErrNotInitialized
	}

	if r.openState == nil && r.openEvent == nil {
		util.LogInfo("No tracked data to flush")
		return Batch{}, nil
	}

	now := r.clock.Now()
	batch := Batch{
		States: make([]State, 0, len(r.closedStates)+1),
		Events: make([]Event, 0, len(r.closedEvents)+1),
	}
	batch.States = append(batch.States, r.closedStates...)
	batch.Events = append(batch.Events, r.closedEvents...)

	if r.openState != nil {
		r.openState.closeAt(now, r.grace, r.openState.Kind.IsPrivileged())
		batch.States = append(batch.States, *r.openState)

		next := *r.openState
		next.Span = Span{Start: now}
		r.openState = &next
	}

	if r.openEvent != nil {
		r.openEvent.closeAt(now, r.grace, r.openEvent.Kind.IsPrivileged())
		batch.Events = append(batch.Events, *r.openEvent)

		next := *r.openEvent
		next.Span = Span{Start: now}
		r.openEvent = &next
	}

	r.closedStates = nil
	r.closedEvents = nil

	return batch, nil
}

func (r *Recorder) closeState(now time.Time) {
	if r.openState == nil {
		return
	}
	r.openState.closeAt(now, r.grace, r.openState.Kind.IsPrivileged())
	r.closedStates = append(r.closedStates, *r.openState)
	r.openState = nil
}

func (r *Recorder) closeEvent(now time.Time) {
	if r.openEvent == nil {
		return
	}
	r.openEvent.closeAt(now, r.grace, r.openEvent.Kind.IsPrivileged())
	r.closedEvents = append(r.closedEvents, *r.openEvent)
	r.openEvent = nil
}

func startOf(s Span, now time.Time) time.Time {
	if s.Start.IsZero() {
		return now
	}
	return s.Start
}
