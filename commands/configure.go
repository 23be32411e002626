package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Codealike/Codealike-plugins-core/internal/application/agent"
	"github.com/Codealike/Codealike-plugins-core/internal/config"
)

var configureOffline bool

var configureCmd = &cobra.Command{
	Use:   "configure [folder]",
	Short: "Register a project folder",
	Long: `Creates codealike.json in the project folder with a new project id and
registers the project with Codealike. Folders that already have a
codealike.json keep their id.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)

	configureCmd.Flags().BoolVar(&configureOffline, "offline", false,
		"Write codealike.json without registering the project")
}

func runConfigure(cmd *cobra.Command, args []string) error {
	folder := "."
	if len(args) == 1 {
		folder = args[0]
	}

	var registrar config.ProjectRegistrar
	if !configureOffline {
		client, err := agent.NewCollector(settings, clientID)
		if err != nil {
			return fmt.Errorf("%w (run 'token set' first or use --offline)", err)
		}
		registrar = client
	}

	project, err := config.Configure(cmd.Context(), expandPath(folder), registrar)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Project %s\nID      %s\nFile    %s\n",
		project.ProjectName, project.ProjectID, config.ProjectFile(expandPath(folder)))
	return nil
}
