package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Codealike/Codealike-plugins-core/internal/api"
	"github.com/Codealike/Codealike-plugins-core/internal/config"
	"github.com/Codealike/Codealike-plugins-core/internal/core/constants"
	"github.com/Codealike/Codealike-plugins-core/internal/core/tracking"
	"github.com/Codealike/Codealike-plugins-core/internal/data/signals"
	"github.com/Codealike/Codealike-plugins-core/internal/data/spool"
	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

// Collector is the remote side of the agent
type Collector interface {
	config.ProjectRegistrar
	ActivityPoster
	Authenticate(ctx context.Context) error
}

// Options configures an Agent
type Options struct {
	Settings   config.Settings
	Instance   config.Instance
	ProjectDir string
	// Credited as the start of the workspace session; zero means now
	WorkspaceStart time.Time
	// Defaults to an API client built from Settings
	Collector Collector
	Clock     util.Clock
	// Failed batches are reported instead of kept on disk
	DisableSpool bool
}

// Agent ties a tracker to a signal source and the collector
type Agent struct {
	opts    Options
	project tracking.Project
	store   *spool.Store
	shipper *Shipper
	tracker *tracking.Tracker
}

// TrackingConfig derives the tracker timing from settings
func TrackingConfig(s config.Settings) tracking.Config {
	return tracking.Config{
		IdleCheckInterval: s.Tracking.IdleCheckInterval(),
		IdleMaxPeriod:     s.Tracking.IdleMaxPeriod(),
		FlushInterval:     s.Tracking.FlushInterval(),
		ShutdownTimeout:   constants.ShutdownFlushTimeout,
	}
}

// NewCollector builds the API client for settings, authorized with the
// stored user token.
func NewCollector(s config.Settings, clientID string) (*api.Client, error) {
	token, err := s.Token()
	if err != nil {
		return nil, err
	}
	client := api.NewClient(s.APIURL, clientID)
	client.SetToken(token)
	return client, nil
}

// New authenticates against the collector, resolves the project for
// opts.ProjectDir and prepares the tracker. An unauthorized token is fatal;
// an unreachable collector is not, batches are spooled until it returns.
func New(ctx context.Context, opts Options) (*Agent, error) {
	if opts.ProjectDir == "" {
		return nil, errors.New("a project folder is required")
	}
	if opts.Clock == nil {
		opts.Clock = util.GetTimeProvider()
	}
	if opts.Collector == nil {
		client, err := NewCollector(opts.Settings, opts.Instance.ClientID)
		if err != nil {
			return nil, err
		}
		opts.Collector = client
	}

	if err := opts.Collector.Authenticate(ctx); err != nil {
		if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrNoCredentials) {
			return nil, fmt.Errorf("codealike authentication failed: %w", err)
		}
		util.LogWarn("Could not reach codealike server, continuing offline", util.F("error", err.Error()))
	}

	project, err := config.Configure(ctx, opts.ProjectDir, opts.Collector)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		opts:    opts,
		project: tracking.Project{ID: project.ProjectID, Name: project.ProjectName},
	}

	var store Spool
	if !opts.DisableSpool {
		a.store, err = spool.Open(opts.Instance.SpoolFile())
		if err != nil {
			return nil, err
		}
		store = a.store
	}

	meta := api.HostMetadata(opts.Instance.ClientID, opts.Instance.ClientVersion, opts.Instance.InstanceID)
	a.shipper = NewShipper(opts.Collector, store, meta, opts.Clock, constants.SpoolDrainLimit)

	a.tracker, err = tracking.New(TrackingConfig(opts.Settings), opts.Clock, a.shipper)
	if err != nil {
		a.closeStore()
		return nil, err
	}
	return a, nil
}

// Project returns the tracked project
func (a *Agent) Project() tracking.Project {
	return a.project
}

// Tracker exposes the underlying tracker
func (a *Agent) Tracker() *tracking.Tracker {
	return a.tracker
}

// Run starts tracking and applies signals from source until the source is
// exhausted or ctx is cancelled. Tracking then stops with a final flush.
func (a *Agent) Run(ctx context.Context, source signals.Source) error {
	if err := a.tracker.Start(a.project, a.opts.WorkspaceStart); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	sigs := make(chan signals.Signal)

	g.Go(func() error {
		defer close(sigs)
		return source.Run(gctx, sigs)
	})

	g.Go(func() error {
		// end of input ends the session
		defer cancel()
		for s := range sigs {
			if err := signals.Apply(a.tracker, s); err != nil {
				util.LogWarn("Signal rejected",
					util.F("signal", s.Signal),
					util.F("error", err.Error()))
			}
		}
		return nil
	})

	g.Go(func() error {
		return a.tracker.Run(gctx)
	})

	return g.Wait()
}

// Close disposes the tracker and releases the spool
func (a *Agent) Close(ctx context.Context) error {
	err := a.tracker.Dispose(ctx)
	return errors.Join(err, a.closeStore())
}

func (a *Agent) closeStore() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}
