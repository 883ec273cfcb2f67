package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vulcancal/internal/token"
)

var tokenRemote bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect the eduVULCAN token file",
}

var tokenCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the token file",
	Long: `Validates the token file: required fields and the premium capability.
With --remote the token is also used to list the registered pupils.`,
	Args: cobra.NoArgs,
	RunE: runTokenCheck,
}

func init() {
	tokenCheckCmd.Flags().BoolVar(&tokenRemote, "remote", false, "also list pupils registered for the token")
	tokenCmd.AddCommand(tokenCheckCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenCheck(cmd *cobra.Command, _ []string) error {
	path := tokenPath()
	tok, err := token.Load(path)
	if err != nil {
		return fmt.Errorf("token %s: %w", path, err)
	}

	cmd.Printf("Token:  %s\n", path)
	cmd.Printf("Name:   %s\n", tok.Name)
	cmd.Printf("UID:    %s\n", tok.UID)
	cmd.Printf("Tenant: %s\n", tok.Tenant)

	if !tokenRemote {
		return nil
	}

	accounts, err := connect(tok).Accounts(cmd.Context())
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		cmd.Println("No pupils registered for this token.")
		return nil
	}
	for _, a := range accounts {
		unit := a.UnitName
		if unit == "" {
			unit = a.UnitShort
		}
		cmd.Printf("Pupil:  %s (id %d, %s)\n", a.PupilName, a.PupilID, unit)
	}
	return nil
}
