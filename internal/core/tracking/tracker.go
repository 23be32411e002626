package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Codealike/Codealike-plugins-core/internal/core/activity"
	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

var (
	// ErrNotInitialized is returned by every operation after Dispose
	ErrNotInitialized = errors.New("tracker should be initialized before used")

	// ErrNoProject is returned by Start when no project identity is given
	ErrNoProject = errors.New("a configured project is required to start tracking")

	// ErrNotTracking is returned by Run when Start has not been called
	ErrNotTracking = errors.New("tracking has not been started")
)

// Project identifies the solution whose activity is tracked
type Project struct {
	ID   string
	Name string
}

// Flush is one extracted batch together with the project it belongs to
type Flush struct {
	Project Project
	Batch   activity.Batch
}

// Sink receives extracted batches. Ship is called outside the tracker's lock.
type Sink interface {
	Ship(ctx context.Context, flush Flush) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, flush Flush) error

// Ship calls f
func (f SinkFunc) Ship(ctx context.Context, flush Flush) error {
	return f(ctx, flush)
}

// Status is a point-in-time view of the tracker
type Status struct {
	Tracking     bool
	Project      Project
	State        activity.Kind
	Event        activity.Kind
	Suspended    activity.Kind
	LastActivity time.Time
}

// Tracker is the idle detector and tracking orchestrator. It maps editor
// activity onto the recorder, replaces the open state with Idle after a
// period of inactivity, resumes the suspended state on return, and hands
// periodic batches to a Sink.
type Tracker struct {
	mu sync.Mutex

	clock    util.Clock
	config   Config
	sink     Sink
	recorder *activity.Recorder

	project      Project
	tracking     bool
	stopping     bool
	done         chan struct{}
	lastActivity time.Time
	resume       resumeSlot
}

// New creates a tracker. A nil sink discards extracted batches.
func New(config Config, clock util.Clock, sink Sink) (*Tracker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracking config: %w", err)
	}
	if clock == nil {
		clock = util.GetTimeProvider()
	}

	t := &Tracker{
		clock:    clock,
		config:   config,
		sink:     sink,
		recorder: activity.NewRecorder(clock, config.IdleCheckInterval),
	}
	t.resume.clear()
	return t, nil
}

// Config returns the effective configuration
func (t *Tracker) Config() Config {
	return t.config
}

// IsTracking reports whether Start has been called without a matching Stop
func (t *Tracker) IsTracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

// Status returns the current orchestrator state
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := Status{
		Tracking:     t.tracking,
		Project:      t.project,
		State:        activity.KindNone,
		Event:        activity.KindNone,
		Suspended:    t.resume.suspended(),
		LastActivity: t.lastActivity,
	}
	if st, ok := t.recorder.OpenState(); ok {
		status.State = st.Kind
	}
	if ev, ok := t.recorder.OpenEvent(); ok {
		status.Event = ev.Kind
	}
	return status
}

// Start begins tracking project. The workspace is credited with a System
// state and an OpenSolution event from workspaceStart; a zero value means now.
func (t *Tracker) Start(project Project, workspaceStart time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.recorder.IsInitialized() {
		return ErrNotInitialized
	}
	if project.ID == "" {
		return ErrNoProject
	}
	if t.tracking {
		return nil
	}

	now := t.clock.Now()
	if workspaceStart.IsZero() || workspaceStart.After(now) {
		workspaceStart = now
	}

	t.project = project
	t.tracking = true
	t.done = make(chan struct{})
	t.lastActivity = now
	t.resume.clear()

	span := activity.Span{Start: workspaceStart}
	if err := t.recorder.RecordState(activity.State{Kind: activity.KindSystem, ProjectID: project.ID, Span: span}); err != nil {
		return err
	}
	if err := t.recorder.RecordEvent(activity.Event{Kind: activity.KindOpenSolution, ProjectID: project.ID, Span: span}); err != nil {
		return err
	}

	util.LogInfo("Tracking started",
		util.F("project_id", project.ID),
		util.F("project", project.Name),
		util.F("workspace_start", util.FormatTimestamp(workspaceStart)))
	return nil
}

// TrackFocusEvent records that the developer moved focus to a document
func (t *Tracker) TrackFocusEvent(ctx activity.CodeContext) error {
	return t.trackEditorEvent(activity.KindDocumentFocus, ctx)
}

// TrackCodingEvent records an edit in a document
func (t *Tracker) TrackCodingEvent(ctx activity.CodeContext) error {
	return t.trackEditorEvent(activity.KindDocumentEdit, ctx)
}

// TrackDebuggingState declares that a debugging session is active
func (t *Tracker) TrackDebuggingState() error {
	return t.trackExplicitState(activity.KindDebugging)
}

// TrackCodingState declares that the developer is coding
func (t *Tracker) TrackCodingState() error {
	return t.trackExplicitState(activity.KindCoding)
}

// TrackNavigatingState declares that the developer is navigating code
func (t *Tracker) TrackNavigatingState() error {
	return t.trackExplicitState(activity.KindNavigating)
}

// TrackBuildingState declares that a build is running
func (t *Tracker) TrackBuildingState() error {
	return t.trackExplicitState(activity.KindBuilding)
}

func (t *Tracker) trackEditorEvent(kind activity.Kind, ctx activity.CodeContext) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.recorder.IsInitialized() {
		return ErrNotInitialized
	}
	if !t.tracking {
		return nil
	}

	t.lastActivity = t.clock.Now()

	if err := t.changeStateOnEvent(activity.KindCoding); err != nil {
		return err
	}
	if err := t.recorder.RecordEvent(activity.Event{Kind: kind, ProjectID: t.project.ID, CodeContext: ctx}); err != nil {
		return err
	}

	util.LogDebug("Tracked event",
		util.F("kind", kind.String()),
		util.F("file", ctx.File),
		util.F("line", ctx.Line))
	return nil
}

// changeStateOnEvent picks the state implied by an editor event: the
// suspended state when returning from idle, Debugging when a Coding event
// arrives mid-debug, the proposed kind otherwise.
func (t *Tracker) changeStateOnEvent(proposed activity.Kind) error {
	next := proposed
	if suspended, ok := t.resume.take(); ok {
		next = suspended
	} else if proposed == activity.KindCoding {
		if open, ok := t.recorder.OpenState(); ok && open.Kind == activity.KindDebugging {
			next = activity.KindDebugging
		}
	}
	return t.recorder.RecordState(activity.State{Kind: next, ProjectID: t.project.ID})
}

func (t *Tracker) trackExplicitState(kind activity.Kind) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.recorder.IsInitialized() {
		return ErrNotInitialized
	}
	if !t.tracking {
		return nil
	}

	t.resume.clear()
	t.lastActivity = t.clock.Now()

	if err := t.recorder.RecordState(activity.State{Kind: kind, ProjectID: t.project.ID}); err != nil {
		return err
	}
	util.LogDebug("Tracked state", util.F("kind", kind.String()))
	return nil
}

// CheckIdle runs one idle detection tick. An open Idle state is widened;
// any other open state is replaced by Idle once the developer has been
// inactive for IdleMaxPeriod, remembering it for resumption.
func (t *Tracker) CheckIdle() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.recorder.IsInitialized() {
		return ErrNotInitialized
	}
	if !t.tracking {
		return nil
	}

	open, ok := t.recorder.OpenState()
	if !ok {
		return nil
	}
	if open.Kind == activity.KindIdle {
		return t.recorder.WidenState()
	}

	now := t.clock.Now()
	inactive := now.Sub(t.lastActivity)
	if inactive < t.config.IdleMaxPeriod {
		return nil
	}

	// A tick that arrives on schedule credits coding up to now; a late one
	// (suspended process, stalled loop) falls back to the grace rule.
	if open.Kind == activity.KindCoding && inactive < t.config.IdleMaxPeriod+t.config.IdleCheckInterval {
		if err := t.recorder.TouchState(now); err != nil {
			return err
		}
	}

	t.resume.suspend(open.Kind)
	if err := t.recorder.RecordState(activity.State{Kind: activity.KindIdle, ProjectID: t.project.ID}); err != nil {
		return err
	}

	util.LogInfo("Developer went idle",
		util.F("suspended", open.Kind.String()),
		util.F("inactive", util.FormatDuration(inactive)))
	return nil
}

// Extract closes the current batch and returns it. ok is false when there
// was nothing to extract.
func (t *Tracker) Extract() (flush Flush, ok bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.recorder.IsInitialized() {
		return Flush{}, false, ErrNotInitialized
	}

	batch, err := t.recorder.ExtractBatch()
	if err != nil {
		return Flush{}, false, err
	}
	if batch.IsEmpty() {
		return Flush{}, false, nil
	}
	return Flush{Project: t.project, Batch: batch}, true, nil
}

// Flush extracts the current batch and ships it to the sink
func (t *Tracker) Flush(ctx context.Context) error {
	flush, ok, err := t.Extract()
	if err != nil || !ok {
		return err
	}
	if t.sink == nil {
		util.LogDebug("No sink configured, dropping batch",
			util.F("states", len(flush.Batch.States)),
			util.F("events", len(flush.Batch.Events)))
		return nil
	}

	util.LogInfo("Sending tracked data",
		util.F("project_id", flush.Project.ID),
		util.F("states", len(flush.Batch.States)),
		util.F("events", len(flush.Batch.Events)))

	if err := t.sink.Ship(ctx, flush); err != nil {
		return fmt.Errorf("failed to ship batch: %w", err)
	}
	return nil
}

// Stop runs a final idle check and a final flush, then stops tracking and
// drops what extraction carried forward so a later Start begins a clean
// session. Concurrent calls run the final pass once.
func (t *Tracker) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.recorder.IsInitialized() {
		t.mu.Unlock()
		return ErrNotInitialized
	}
	if !t.tracking || t.stopping {
		t.mu.Unlock()
		return nil
	}
	t.stopping = true
	projectID := t.project.ID
	t.mu.Unlock()

	idleErr := t.CheckIdle()
	flushErr := t.Flush(ctx)

	t.mu.Lock()
	t.recorder.Reset()
	t.resume.clear()
	t.tracking = false
	t.stopping = false
	close(t.done)
	t.mu.Unlock()

	util.LogInfo("Tracking stopped", util.F("project_id", projectID))
	return errors.Join(idleErr, flushErr)
}

// Dispose stops tracking and drops buffered activity. The tracker cannot
// be used afterwards.
func (t *Tracker) Dispose(ctx context.Context) error {
	err := t.Stop(ctx)
	if errors.Is(err, ErrNotInitialized) {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.recorder.Dispose()
	t.resume.clear()
	return err
}

// Run drives the idle and flush timers until ctx is cancelled or Stop is
// called. On cancellation it performs Stop with a fresh bounded context.
func (t *Tracker) Run(ctx context.Context) error {
	t.mu.Lock()
	if !t.recorder.IsInitialized() {
		t.mu.Unlock()
		return ErrNotInitialized
	}
	if !t.tracking {
		t.mu.Unlock()
		return ErrNotTracking
	}
	done := t.done
	t.mu.Unlock()

	idleTicker := t.clock.NewTicker(t.config.IdleCheckInterval)
	defer idleTicker.Stop()
	flushTicker := t.clock.NewTicker(t.config.FlushInterval)
	defer flushTicker.Stop()

	util.LogDebugf("Tracking loop running (idle check %v, flush %v)",
		t.config.IdleCheckInterval, t.config.FlushInterval)

	for {
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), t.config.ShutdownTimeout)
			err := t.Stop(stopCtx)
			cancel()
			return err

		case <-done:
			return nil

		case <-idleTicker.C():
			if err := t.CheckIdle(); err != nil {
				util.LogErrorf("Idle check failed: %v", err)
			}

		case <-flushTicker.C():
			if err := t.Flush(ctx); err != nil {
				util.LogWarnf("Flush failed: %v", err)
			}
		}
	}
}
