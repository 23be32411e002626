package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Codealike/Codealike-plugins-core/internal/api"
	"github.com/Codealike/Codealike-plugins-core/internal/config"
)

var (
	tokenNoVerify bool
	tokenProfile  bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the Codealike user token",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set <identity/secret>",
	Short: "Verify and store the user token",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenSet,
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored user token (masked)",
	Args:  cobra.NoArgs,
	RunE:  runTokenShow,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenSetCmd, tokenShowCmd)

	tokenSetCmd.Flags().BoolVar(&tokenNoVerify, "no-verify", false,
		"Store the token without checking it against the server")
	tokenShowCmd.Flags().BoolVar(&tokenProfile, "profile", false,
		"Fetch the profile the token belongs to")
}

func runTokenSet(cmd *cobra.Command, args []string) error {
	token, err := config.ParseToken(args[0])
	if err != nil {
		return err
	}

	if !tokenNoVerify {
		client := api.NewClient(settings.APIURL, clientID)
		client.SetToken(token)
		if err := client.Authenticate(cmd.Context()); err != nil {
			return fmt.Errorf("token was not accepted: %w", err)
		}
	}

	// reload so command line overrides are not persisted
	path := resolvedSettingsPath()
	stored, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := stored.SetUserToken(token.String()); err != nil {
		return err
	}
	if err := stored.Save(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Token %s saved to %s\n", token.Masked(), path)
	return nil
}

func runTokenShow(cmd *cobra.Command, args []string) error {
	token, err := settings.Token()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Token    %s\n", token.Masked())

	if !tokenProfile {
		return nil
	}

	client := api.NewClient(settings.APIURL, clientID)
	client.SetToken(token)
	profile, err := client.GetProfile(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Identity %s\nName     %s\n", profile.Identity, profile.DisplayName)
	if profile.Email != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Email    %s\n", profile.Email)
	}
	return nil
}
