package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Codealike/Codealike-plugins-core/internal/api"
	"github.com/Codealike/Codealike-plugins-core/internal/application/agent"
	"github.com/Codealike/Codealike-plugins-core/internal/core/tracking"
	"github.com/Codealike/Codealike-plugins-core/internal/data/signals"
	"github.com/Codealike/Codealike-plugins-core/internal/presentation/formatter"
)

var (
	replayOutput      string
	replayTail        time.Duration
	replayStart       string
	replayProjectID   string
	replayProjectName string
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.jsonl>",
	Short: "Run a signal script on a simulated clock",
	Long: `Replays a signal script against a tracker running on a simulated clock and
prints the batches it would send. Each line may carry elapsed_ms, the
silence before that signal:

  {"signal":"focus","file":"file1","line":1}
  {"signal":"edit","file":"file1","line":1,"elapsed_ms":20000}

Idle checks and flushes fire at their configured intervals, and tracking
stops --tail after the last signal.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayOutput, "output", "o", formatter.FormatAuto,
		"Output format (auto, table, json)")
	replayCmd.Flags().DurationVar(&replayTail, "tail", 0,
		"Silence after the last signal before tracking stops")
	replayCmd.Flags().StringVar(&replayStart, "start", "",
		"Simulated start time (RFC 3339); defaults to now")
	replayCmd.Flags().StringVar(&replayProjectID, "project-id", "replay",
		"Project id stamped on the batches")
	replayCmd.Flags().StringVar(&replayProjectName, "project-name", "replay",
		"Project name stamped on the batches")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if replayTail < 0 {
		return fmt.Errorf("--tail must not be negative")
	}
	start, err := parseTime(replayStart)
	if err != nil {
		return err
	}

	f, err := os.Open(expandPath(args[0]))
	if err != nil {
		return err
	}
	defer f.Close()

	script, err := signals.ReadAll(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	out, err := formatter.New(replayOutput, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	flushes, err := agent.Replay(cmd.Context(), script, agent.ReplayOptions{
		Config:  agent.TrackingConfig(settings),
		Project: tracking.Project{ID: replayProjectID, Name: replayProjectName},
		Start:   start,
		Tail:    replayTail,
	})
	if err != nil {
		return err
	}

	return printFlushes(out, flushes)
}

func printFlushes(out formatter.Formatter, flushes []tracking.Flush) error {
	if _, ok := out.(*formatter.JSONFormatter); ok {
		meta := api.Metadata{Machine: "replay", Client: clientID, Extension: version, Instance: "replay"}
		infos := make([]api.ActivityInfo, 0, len(flushes))
		for _, flush := range flushes {
			info, err := api.NewActivityInfo(meta, flush.Project.ID, flush.Project.Name, flush.Batch)
			if err != nil {
				return err
			}
			infos = append(infos, info)
		}
		return out.Format(formatter.Table{}, infos)
	}

	for i, flush := range flushes {
		title := fmt.Sprintf("Batch %d of %d", i+1, len(flushes))
		if err := out.Format(formatter.BatchTable(title, flush.Batch), flush.Batch); err != nil {
			return err
		}
	}
	return nil
}
