package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"comanda/pos/internal/customers"
	"comanda/pos/internal/seed"
)

var importCmd = &cobra.Command{
	Use:   "import <customers.csv>",
	Short: "Create the customers listed in a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var importUsername, importPassword string

func init() {
	credentialFlags(importCmd, &importUsername, &importPassword)
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.identity(cmd.Context(), importUsername, importPassword)
	if err != nil {
		return err
	}
	report, err := seed.ImportCustomersFile(cmd.Context(), args[0], customers.New(a.client, user.CompanyID))
	if err != nil {
		return fmt.Errorf("importing %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "imported %d, skipped %d\n", report.Imported, report.Skipped)
	for _, e := range report.Errors {
		fmt.Fprintf(out, "  %s\n", e)
	}
	return nil
}
