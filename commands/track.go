package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Codealike/Codealike-plugins-core/internal/application/agent"
	"github.com/Codealike/Codealike-plugins-core/internal/config"
	"github.com/Codealike/Codealike-plugins-core/internal/data/signals"
	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

var (
	trackProject        string
	trackSignals        string
	trackFromStart      bool
	trackNoSpool        bool
	trackWorkspaceStart string
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Track editor activity for a project",
	Long: `Reads editor signals as JSON lines and tracks coding, debugging, navigating,
building and idle time for the project, sending a batch every flush interval.

Signals are read from stdin unless --signals names a file, which is then tailed.
One signal per line:

  {"signal":"focus","file":"main.go","line":12}
  {"signal":"edit","file":"main.go","line":14,"member":"main"}
  {"signal":"debugging"}

Tracking stops with a final flush at end of input or on interrupt.`,
	Args: cobra.NoArgs,
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().StringVarP(&trackProject, "project", "p", ".",
		"Project folder; configured on first use")
	trackCmd.Flags().StringVarP(&trackSignals, "signals", "s", "",
		"Signal file to tail (default stdin)")
	trackCmd.Flags().BoolVar(&trackFromStart, "from-start", false,
		"Read the signal file from the beginning instead of its end")
	trackCmd.Flags().BoolVar(&trackNoSpool, "no-spool", false,
		"Do not keep undelivered batches on disk")
	trackCmd.Flags().StringVar(&trackWorkspaceStart, "workspace-start", "",
		"When the workspace was opened (RFC 3339); defaults to now")
}

func runTrack(cmd *cobra.Command, args []string) error {
	now := util.GetTimeProvider().Now()

	workspaceStart, err := parseTime(trackWorkspaceStart)
	if err != nil {
		return err
	}

	inst, err := config.NewInstance("", clientID, version, now)
	if err != nil {
		return err
	}
	if err := initLogging(inst.LogFile()); err != nil {
		return err
	}
	defer util.CloseLogger()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			util.LogInfo("Interrupted, stopping tracking")
			cancel()
		case <-ctx.Done():
		}
	}()

	a, err := agent.New(ctx, agent.Options{
		Settings:       settings,
		Instance:       inst,
		ProjectDir:     expandPath(trackProject),
		WorkspaceStart: workspaceStart,
		DisableSpool:   trackNoSpool,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			util.LogWarnf("Failed to close agent: %v", err)
		}
	}()

	source, err := signalSource(cmd)
	if err != nil {
		return err
	}

	project := a.Project()
	fmt.Fprintf(cmd.ErrOrStderr(), "Tracking %s (%s), instance %s\n", project.Name, project.ID, inst.InstanceID)

	return a.Run(ctx, source)
}

func signalSource(cmd *cobra.Command) (signals.Source, error) {
	if trackSignals == "" || trackSignals == "-" {
		return signals.NewStreamSource(cmd.InOrStdin()), nil
	}
	return signals.NewWatcher(expandPath(trackSignals), trackFromStart)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected RFC 3339: %w", value, err)
	}
	return t, nil
}
