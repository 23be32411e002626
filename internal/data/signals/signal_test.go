package signals

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Codealike/Codealike-plugins-core/internal/core/activity"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected Signal
		wantErr  bool
	}{
		{
			name:     "edit with location",
			line:     `{"signal":"edit","file":"main.go","line":12,"member":"Run","class":"Agent","namespace":"agent"}`,
			expected: Signal{Signal: Edit, File: "main.go", Line: 12, Member: "Run", Class: "Agent", Namespace: "agent"},
		},
		{
			name:     "state signal is normalised",
			line:     `{"signal":" Debugging ","elapsed_ms":600}`,
			expected: Signal{Signal: Debugging, ElapsedMs: 600},
		},
		{name: "focus without file", line: `{"signal":"focus"}`, wantErr: true},
		{name: "unknown name", line: `{"signal":"typing"}`, wantErr: true},
		{name: "missing name", line: `{"file":"a.go"}`, wantErr: true},
		{name: "negative elapsed", line: `{"signal":"coding","elapsed_ms":-1}`, wantErr: true},
		{name: "not json", line: `edit main.go`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseLine([]byte(tt.line))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s)
		})
	}
}

type fakeTarget struct {
	calls []string
}

func (f *fakeTarget) TrackFocusEvent(ctx activity.CodeContext) error {
	f.calls = append(f.calls, "focus:"+ctx.File)
	return nil
}

func (f *fakeTarget) TrackCodingEvent(ctx activity.CodeContext) error {
	f.calls = append(f.calls, "edit:"+ctx.File)
	return nil
}

func (f *fakeTarget) TrackDebuggingState() error {
	f.calls = append(f.calls, "debugging")
	return nil
}

func (f *fakeTarget) TrackCodingState() error {
	f.calls = append(f.calls, "coding")
	return nil
}

func (f *fakeTarget) TrackNavigatingState() error {
	f.calls = append(f.calls, "navigating")
	return nil
}

func (f *fakeTarget) TrackBuildingState() error {
	f.calls = append(f.calls, "building")
	return nil
}

func TestApply(t *testing.T) {
	target := &fakeTarget{}
	input := []Signal{
		{Signal: Focus, File: "a.go"},
		{Signal: Edit, File: "b.go"},
		{Signal: Debugging},
		{Signal: Coding},
		{Signal: Navigating},
		{Signal: Building},
	}
	for _, s := range input {
		require.NoError(t, Apply(target, s))
	}

	assert.Equal(t, []string{"focus:a.go", "edit:b.go", "debugging", "coding", "navigating", "building"}, target.calls)
	assert.Error(t, Apply(target, Signal{Signal: "typing"}))
}

func TestReadAll(t *testing.T) {
	script := `# warm up
{"signal":"focus","file":"file1.js","line":1}

{"signal":"edit","file":"file1.js","line":1,"elapsed_ms":600}
`
	signals, err := ReadAll(strings.NewReader(script))
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, 600*time.Millisecond, signals[1].Elapsed())

	_, err = ReadAll(strings.NewReader("{\"signal\":\"coding\"}\n{\"signal\":\"nope\"}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func collect(t *testing.T, ch <-chan Signal, n int) []Signal {
	t.Helper()
	var got []Signal
	timeout := time.After(3 * time.Second)
	for len(got) < n {
		select {
		case s := <-ch:
			got = append(got, s)
		case <-timeout:
			t.Fatalf("received %d of %d signals", len(got), n)
		}
	}
	return got
}

func TestStreamSource(t *testing.T) {
	input := "{\"signal\":\"coding\"}\nnot json\n\n{\"signal\":\"edit\",\"file\":\"a.go\",\"line\":3}\n"
	out := make(chan Signal, 10)

	err := NewStreamSource(strings.NewReader(input)).Run(context.Background(), out)
	require.NoError(t, err)

	got := collect(t, out, 2)
	assert.Equal(t, Coding, got[0].Signal)
	assert.Equal(t, "a.go", got[1].File)
}

func TestStreamSource_StopsOnCancel(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewStreamSource(r).Run(ctx, make(chan Signal)) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("source did not stop")
	}
}

func TestWatcher_TailsAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"signal\":\"debugging\"}\n"), 0o644))

	w, err := NewWatcher(path, false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan Signal, 10)
	go w.Run(ctx, out)

	// give the watcher a moment to register before appending
	time.Sleep(100 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{\"signal\":\"focus\",\"file\":\"a.go\",\"line\":1}\n{\"signal\":\"edit\",")
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	got := collect(t, out, 1)
	assert.Equal(t, Focus, got[0].Signal, "existing content is skipped")

	_, err = f.WriteString("\"file\":\"a.go\",\"line\":2}\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got = collect(t, out, 1)
	assert.Equal(t, Edit, got[0].Signal, "partial lines are completed by later writes")
	assert.Equal(t, 2, got[0].Line)
}

func TestWatcher_FromStartAndLateCreation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signals.jsonl")

	w, err := NewWatcher(path, true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan Signal, 10)
	go w.Run(ctx, out)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("{\"signal\":\"navigating\"}\n"), 0o644))

	got := collect(t, out, 1)
	assert.Equal(t, Navigating, got[0].Signal)
}

func TestWatcher_FollowsReplacement(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signals.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"signal\":\"debugging\"}\n{\"signal\":\"coding\"}\n"), 0o644))

	w, err := NewWatcher(path, false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan Signal, 10)
	go w.Run(ctx, out)

	time.Sleep(100 * time.Millisecond)

	// editors commonly write a temp file and rename it over the original
	tmp := filepath.Join(dir, "signals.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("{\"signal\":\"building\"}\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	got := collect(t, out, 1)
	assert.Equal(t, Building, got[0].Signal)
}
