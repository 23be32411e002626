package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Codealike/Codealike-plugins-core/internal/api"
	"github.com/Codealike/Codealike-plugins-core/internal/application/agent"
	"github.com/Codealike/Codealike-plugins-core/internal/config"
	"github.com/Codealike/Codealike-plugins-core/internal/data/spool"
	"github.com/Codealike/Codealike-plugins-core/internal/presentation/formatter"
	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

var (
	spoolOutput string
	spoolLimit  int
)

var spoolCmd = &cobra.Command{
	Use:   "spool",
	Short: "Inspect and resend batches that could not be delivered",
}

var spoolListCmd = &cobra.Command{
	Use:   "list",
	Short: "List spooled batches, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runSpoolList,
}

var spoolFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Send spooled batches now",
	Args:  cobra.NoArgs,
	RunE:  runSpoolFlush,
}

func init() {
	rootCmd.AddCommand(spoolCmd)
	spoolCmd.AddCommand(spoolListCmd, spoolFlushCmd)

	spoolListCmd.Flags().StringVarP(&spoolOutput, "output", "o", formatter.FormatAuto,
		"Output format (auto, table, json)")
	spoolFlushCmd.Flags().IntVar(&spoolLimit, "limit", 0,
		"Send at most this many batches (0 = all)")
}

func spoolPath() string {
	return config.ClientSpoolFile("", clientID)
}

func runSpoolList(cmd *cobra.Command, args []string) error {
	out, err := formatter.New(spoolOutput, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	store, err := spool.Open(spoolPath())
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Pending(cmd.Context(), 0)
	if err != nil {
		return err
	}

	table, values := formatter.SpoolTable(entries)
	return out.Format(table, values)
}

func runSpoolFlush(cmd *cobra.Command, args []string) error {
	client, err := agent.NewCollector(settings, clientID)
	if err != nil {
		return err
	}

	store, err := spool.Open(spoolPath())
	if err != nil {
		return err
	}
	defer store.Close()

	clock := util.GetTimeProvider()
	meta := api.HostMetadata(clientID, version, "")
	shipper := agent.NewShipper(client, store, meta, clock, spoolLimit)

	sent, drainErr := shipper.Drain(cmd.Context(), spoolLimit)
	remaining, err := store.Count(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Sent %d batches, %d remaining\n", sent, remaining)
	return drainErr
}
