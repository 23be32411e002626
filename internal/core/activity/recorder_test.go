package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

const testGrace = 30 * time.Second

var testEpoch = time.Date(2017, 9, 7, 9, 45, 26, 0, time.UTC)

func newTestRecorder() (*Recorder, *util.ManualClock) {
	clock := util.NewManualClock(testEpoch)
	return NewRecorder(clock, testGrace), clock
}

func edit(file string, line int) Event {
	return Event{Kind: KindDocumentEdit, ProjectID: "p1", CodeContext: CodeContext{File: file, Line: line}}
}

func TestRecorder_NotInitialized(t *testing.T) {
	var zero Recorder

	assert.ErrorIs(t, zero.RecordState(State{Kind: KindCoding}), ErrNotInitialized)
	assert.ErrorIs(t, zero.RecordEvent(edit("f1.js", 12)), ErrNotInitialized)
	_, err := zero.ExtractBatch()
	assert.ErrorIs(t, err, ErrNotInitialized)

	r, _ := newTestRecorder()
	r.Dispose()
	assert.False(t, r.IsInitialized())
	assert.ErrorIs(t, r.RecordState(State{Kind: KindCoding}), ErrNotInitialized)
	assert.ErrorIs(t, r.WidenState(), ErrNotInitialized)
	_, err = r.ExtractBatch()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestRecorder_Reset(t *testing.T) {
	r, clock := newTestRecorder()

	require.NoError(t, r.RecordState(State{Kind: KindCoding, ProjectID: "p1"}))
	require.NoError(t, r.RecordEvent(edit("f1.js", 12)))
	clock.Advance(time.Second)
	_, err := r.ExtractBatch()
	require.NoError(t, err)

	r.Reset()
	assert.True(t, r.IsInitialized())
	_, ok := r.OpenState()
	assert.False(t, ok)
	_, ok = r.OpenEvent()
	assert.False(t, ok)

	batch, err := r.ExtractBatch()
	require.NoError(t, err)
	assert.True(t, batch.IsEmpty())
}

func TestRecorder_RejectsWrongCategory(t *testing.T) {
	r, _ := newTestRecorder()

	assert.ErrorIs(t, r.RecordState(State{Kind: KindDocumentEdit}), ErrInvalidKind)
	assert.ErrorIs(t, r.RecordEvent(Event{Kind: KindCoding}), ErrInvalidKind)

	_, ok := r.OpenState()
	assert.False(t, ok)
}

func TestRecorder_UpdatesEventDuration(t *testing.T) {
	r, clock := newTestRecorder()

	require.NoError(t, r.RecordEvent(edit("f1.js", 12)))
	clock.Advance(2 * time.Second)
	require.NoError(t, r.RecordEvent(edit("f1.js", 12)))

	_, events := r.Pending()
	assert.Equal(t, 0, events, "same event should be extended, not appended")

	open, ok := r.OpenEvent()
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, open.Duration())
}

func TestRecorder_CoalescesContiguousEvents(t *testing.T) {
	r, clock := newTestRecorder()

	gaps := []time.Duration{1 * time.Second, 3 * time.Second, 2 * time.Second, 20 * time.Second, 30 * time.Second}
	var total time.Duration

	require.NoError(t, r.RecordEvent(edit("file1", 1)))
	for _, gap := range gaps {
		clock.Advance(gap)
		total += gap
		require.NoError(t, r.RecordEvent(edit("file1", 1)))
	}

	batch, err := r.ExtractBatch()
	require.NoError(t, err)
	require.Len(t, batch.Events, 1)
	assert.Equal(t, total, batch.Events[0].Duration())
	assert.Equal(t, testEpoch, batch.Events[0].Start)
}

func TestRecorder_EventLocationBreaksCoalescing(t *testing.T) {
	tests := []struct {
		name string
		next Event
	}{
		{name: "different line", next: edit("file1", 2)},
		{name: "different file", next: edit("file2", 1)},
		{name: "different kind", next: Event{Kind: KindDocumentFocus, CodeContext: CodeContext{File: "file1", Line: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, clock := newTestRecorder()

			require.NoError(t, r.RecordEvent(edit("file1", 1)))
			clock.Advance(5 * time.Second)
			require.NoError(t, r.RecordEvent(tt.next))

			_, events := r.Pending()
			assert.Equal(t, 1, events)

			batch, err := r.ExtractBatch()
			require.NoError(t, err)
			require.Len(t, batch.Events, 2)
			assert.Equal(t, 5*time.Second, batch.Events[0].Duration())
			assert.Equal(t, batch.Events[0].End, batch.Events[1].Start)
		})
	}
}

func TestRecorder_GraceClamp(t *testing.T) {
	tests := []struct {
		name     string
		gap      time.Duration
		state    Kind
		event    Kind
		expected time.Duration
	}{
		{name: "short gap absorbed", gap: 20 * time.Second, state: KindCoding, event: KindDocumentEdit, expected: 20 * time.Second},
		{name: "gap equal to grace absorbed", gap: testGrace, state: KindDebugging, event: KindDocumentFocus, expected: testGrace},
		{name: "long gap clamped", gap: 10 * time.Minute, state: KindCoding, event: KindDocumentEdit, expected: testGrace},
		{name: "building is clamped", gap: 10 * time.Minute, state: KindBuilding, event: KindBuildProject, expected: testGrace},
		{name: "privileged kinds reach now", gap: time.Hour, state: KindSystem, event: KindOpenSolution, expected: time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, clock := newTestRecorder()

			require.NoError(t, r.RecordState(State{Kind: tt.state}))
			require.NoError(t, r.RecordEvent(Event{Kind: tt.event, CodeContext: CodeContext{File: "a.go"}}))
			clock.Advance(tt.gap)

			require.NoError(t, r.RecordState(State{Kind: KindNavigating}))

			batch, err := r.ExtractBatch()
			require.NoError(t, err)
			require.Len(t, batch.States, 2)
			require.Len(t, batch.Events, 1, "state change closes the dangling event")

			assert.Equal(t, tt.expected, batch.States[0].Duration())
			assert.Equal(t, tt.expected, batch.Events[0].Duration())
		})
	}
}

func TestRecorder_GraceClampUsesLastKnownEnd(t *testing.T) {
	r, clock := newTestRecorder()

	require.NoError(t, r.RecordState(State{Kind: KindCoding}))
	clock.Advance(10 * time.Second)
	require.NoError(t, r.RecordState(State{Kind: KindCoding}))
	clock.Advance(5 * time.Minute)
	require.NoError(t, r.RecordState(State{Kind: KindDebugging}))

	batch, err := r.ExtractBatch()
	require.NoError(t, err)
	require.Len(t, batch.States, 2)
	assert.Equal(t, 10*time.Second+testGrace, batch.States[0].Duration())
}

func TestRecorder_StateChangeClosesDanglingEvent(t *testing.T) {
	r, clock := newTestRecorder()

	require.NoError(t, r.RecordState(State{Kind: KindCoding}))
	require.NoError(t, r.RecordEvent(edit("f1.js", 12)))
	clock.Advance(time.Second)

	// same state keeps the event open
	require.NoError(t, r.RecordState(State{Kind: KindCoding}))
	_, ok := r.OpenEvent()
	assert.True(t, ok)

	require.NoError(t, r.RecordState(State{Kind: KindIdle}))
	_, ok = r.OpenEvent()
	assert.False(t, ok)

	states, events := r.Pending()
	assert.Equal(t, 1, states)
	assert.Equal(t, 1, events)
}

func TestRecorder_ExtractBatchContinuity(t *testing.T) {
	r, clock := newTestRecorder()

	require.NoError(t, r.RecordState(State{Kind: KindSystem}))
	require.NoError(t, r.RecordEvent(Event{Kind: KindOpenSolution}))
	require.NoError(t, r.RecordState(State{Kind: KindCoding}))
	require.NoError(t, r.RecordEvent(Event{Kind: KindDocumentFocus, CodeContext: CodeContext{File: "f1.js", Line: 12}}))
	clock.Advance(2 * time.Second)

	first, err := r.ExtractBatch()
	require.NoError(t, err)
	assert.Len(t, first.States, 2)
	assert.Len(t, first.Events, 2)

	openState, _ := r.OpenState()
	openEvent, _ := r.OpenEvent()
	assert.Equal(t, KindCoding, openState.Kind)
	assert.Equal(t, KindDocumentFocus, openEvent.Kind)
	assert.Equal(t, clock.Now(), openState.Start)
	assert.False(t, openState.Ended())

	second, err := r.ExtractBatch()
	require.NoError(t, err)
	require.Len(t, second.States, 1)
	require.Len(t, second.Events, 1)
	assert.Equal(t, KindCoding, second.States[0].Kind)
	assert.Equal(t, time.Duration(0), second.States[0].Duration())
	assert.Equal(t, "f1.js", second.Events[0].File)

	openState, _ = r.OpenState()
	openEvent, _ = r.OpenEvent()
	assert.Equal(t, KindCoding, openState.Kind)
	assert.Equal(t, KindDocumentFocus, openEvent.Kind)

	for _, st := range append(first.States, second.States...) {
		assert.True(t, st.Ended(), "every state in a batch has an end")
		assert.False(t, st.End.Before(st.Start))
	}
}

func TestRecorder_BatchIsDetachedFromBuffer(t *testing.T) {
	r, clock := newTestRecorder()

	require.NoError(t, r.RecordState(State{Kind: KindCoding}))
	clock.Advance(time.Second)

	batch, err := r.ExtractBatch()
	require.NoError(t, err)
	batch.States[0].Kind = KindIdle

	open, _ := r.OpenState()
	assert.Equal(t, KindCoding, open.Kind)
}

func TestRecorder_EmptyBatchWithoutInput(t *testing.T) {
	r, _ := newTestRecorder()

	batch, err := r.ExtractBatch()
	require.NoError(t, err)
	assert.True(t, batch.IsEmpty())
}

func TestRecorder_ExplicitStartIsKept(t *testing.T) {
	r, clock := newTestRecorder()
	workspaceStart := testEpoch.Add(-time.Minute)

	require.NoError(t, r.RecordState(State{Kind: KindSystem, Span: Span{Start: workspaceStart}}))
	clock.Advance(time.Second)

	batch, err := r.ExtractBatch()
	require.NoError(t, err)
	require.Len(t, batch.States, 1)
	assert.Equal(t, workspaceStart, batch.States[0].Start)
	assert.Equal(t, time.Minute+time.Second, batch.States[0].Duration())
}

func TestRecorder_WidenState(t *testing.T) {
	r, clock := newTestRecorder()

	require.NoError(t, r.RecordState(State{Kind: KindIdle}))
	for i := 0; i < 4; i++ {
		clock.Advance(testGrace)
		require.NoError(t, r.WidenState())
	}

	open, _ := r.OpenState()
	assert.Equal(t, 4*testGrace, open.Duration())

	// a late widening is clamped like any other close
	clock.Advance(10 * time.Minute)
	require.NoError(t, r.WidenState())
	open, _ = r.OpenState()
	assert.Equal(t, 5*testGrace, open.Duration())
}

func TestRecorder_TouchStateNeverShrinks(t *testing.T) {
	r, clock := newTestRecorder()

	require.NoError(t, r.RecordState(State{Kind: KindCoding}))
	clock.Advance(time.Minute)
	require.NoError(t, r.TouchState(clock.Now()))
	require.NoError(t, r.TouchState(testEpoch))

	open, _ := r.OpenState()
	assert.Equal(t, time.Minute, open.Duration())
}

func TestBatch_Bounds(t *testing.T) {
	batch := Batch{
		States: []State{{Kind: KindCoding, Span: Span{Start: testEpoch.Add(time.Second), End: testEpoch.Add(5 * time.Second)}}},
		Events: []Event{{Kind: KindDocumentEdit, Span: Span{Start: testEpoch, End: testEpoch.Add(3 * time.Second)}}},
	}

	start, end := batch.Bounds()
	assert.Equal(t, testEpoch, start)
	assert.Equal(t, testEpoch.Add(5*time.Second), end)
}
