package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Codealike/Codealike-plugins-core/internal/core/activity"
	"github.com/Codealike/Codealike-plugins-core/internal/core/tracking"
	"github.com/Codealike/Codealike-plugins-core/internal/data/signals"
)

var replayProject = tracking.Project{ID: "test-project", Name: "test"}

func replayConfig() tracking.Config {
	return tracking.Config{
		IdleCheckInterval: 30 * time.Second,
		IdleMaxPeriod:     60 * time.Second,
		FlushInterval:     60 * time.Second,
	}
}

func at(seconds int64, name string) signals.Signal {
	s := signals.Signal{Signal: name, ElapsedMs: seconds * 1000}
	if name == signals.Focus || name == signals.Edit {
		s.File = "file1"
		s.Line = 1
	}
	return s
}

type entry struct {
	Kind     activity.Kind
	Duration time.Duration
}

func states(b activity.Batch) []entry {
	out := make([]entry, 0, len(b.States))
	for _, st := range b.States {
		out = append(out, entry{st.Kind, st.Duration()})
	}
	return out
}

func events(b activity.Batch) []entry {
	out := make([]entry, 0, len(b.Events))
	for _, ev := range b.Events {
		out = append(out, entry{ev.Kind, ev.Duration()})
	}
	return out
}

func TestReplay_SubSecondInteraction(t *testing.T) {
	flushes, err := Replay(context.Background(),
		[]signals.Signal{at(0, signals.Edit)},
		ReplayOptions{Config: replayConfig(), Project: replayProject, Start: t0, Tail: 600 * time.Millisecond})
	require.NoError(t, err)
	require.Len(t, flushes, 1)

	assert.Equal(t, replayProject, flushes[0].Project)
	assert.Equal(t, []entry{
		{activity.KindSystem, 0},
		{activity.KindCoding, 600 * time.Millisecond},
	}, states(flushes[0].Batch))
	assert.Equal(t, []entry{
		{activity.KindOpenSolution, 0},
		{activity.KindDocumentEdit, 600 * time.Millisecond},
	}, events(flushes[0].Batch))
}

func TestReplay_ActivityScript(t *testing.T) {
	script := []signals.Signal{
		at(0, signals.Focus),
		at(20, signals.Edit),
		at(1, signals.Edit), at(1, signals.Edit), at(1, signals.Edit), at(1, signals.Edit),
		at(1, signals.Edit), at(1, signals.Edit), at(1, signals.Edit),
		at(3, signals.Edit),
		at(2, signals.Edit),
		at(180, signals.Focus),
		at(20, signals.Edit),
	}

	flushes, err := Replay(context.Background(), script,
		ReplayOptions{Config: replayConfig(), Project: replayProject, Start: t0})
	require.NoError(t, err)
	require.Len(t, flushes, 4)

	// t=60: first flush, coding credited up to the flush through the grace window
	assert.Equal(t, []entry{
		{activity.KindSystem, 0},
		{activity.KindCoding, 60 * time.Second},
	}, states(flushes[0].Batch))
	assert.Equal(t, []entry{
		{activity.KindOpenSolution, 0},
		{activity.KindDocumentFocus, 20 * time.Second},
		{activity.KindDocumentEdit, 40 * time.Second},
	}, events(flushes[0].Batch))

	// t=120: the continued coding state gets a single grace window
	assert.Equal(t, []entry{{activity.KindCoding, 30 * time.Second}}, states(flushes[1].Batch))
	assert.Equal(t, []entry{{activity.KindDocumentEdit, 30 * time.Second}}, events(flushes[1].Batch))

	// t=180: idle since the check right after the second flush
	assert.Equal(t, []entry{
		{activity.KindCoding, 0},
		{activity.KindIdle, 60 * time.Second},
	}, states(flushes[2].Batch))

	// stop at t=232: idle until the focus at t=212, then coding resumes
	assert.Equal(t, []entry{
		{activity.KindIdle, 32 * time.Second},
		{activity.KindCoding, 20 * time.Second},
	}, states(flushes[3].Batch))
	assert.Equal(t, []entry{
		{activity.KindDocumentFocus, 20 * time.Second},
		{activity.KindDocumentEdit, 0},
	}, events(flushes[3].Batch))

	// consecutive batches are contiguous
	for i := 1; i < len(flushes); i++ {
		_, prevEnd := flushes[i-1].Batch.Bounds()
		start, _ := flushes[i].Batch.Bounds()
		assert.False(t, start.Before(prevEnd), "batch %d overlaps batch %d", i, i-1)
	}
}

func TestReplay_ResumesDebuggingAfterIdle(t *testing.T) {
	script := []signals.Signal{
		at(0, signals.Debugging),
		at(5, signals.Edit),
		at(120, signals.Edit),
	}

	flushes, err := Replay(context.Background(), script,
		ReplayOptions{Config: replayConfig(), Project: replayProject, Start: t0, Tail: time.Second})
	require.NoError(t, err)

	var kinds []activity.Kind
	for _, f := range flushes {
		for _, st := range f.Batch.States {
			if len(kinds) == 0 || kinds[len(kinds)-1] != st.Kind {
				kinds = append(kinds, st.Kind)
			}
		}
	}
	assert.Equal(t, []activity.Kind{
		activity.KindSystem,
		activity.KindDebugging,
		activity.KindIdle,
		activity.KindDebugging,
	}, kinds)
}

func TestReplay_RejectsInvalidSignal(t *testing.T) {
	_, err := Replay(context.Background(),
		[]signals.Signal{at(0, signals.Edit), {Signal: "compile"}},
		ReplayOptions{Config: replayConfig(), Project: replayProject, Start: t0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signal 2")
}

func TestReplay_RequiresProject(t *testing.T) {
	_, err := Replay(context.Background(), nil, ReplayOptions{Config: replayConfig(), Start: t0})
	assert.ErrorIs(t, err, tracking.ErrNoProject)
}
