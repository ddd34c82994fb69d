package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"comanda/pos/internal/restaurant"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the company's tables",
	RunE:  runTables,
}

var tablesUsername, tablesPassword string

func init() {
	credentialFlags(tablesCmd, &tablesUsername, &tablesPassword)
	rootCmd.AddCommand(tablesCmd)
}

func runTables(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.identity(cmd.Context(), tablesUsername, tablesPassword)
	if err != nil {
		return err
	}
	session := restaurant.NewSession(a.client, restaurant.NewMappingStore(a.kv), user)
	if res := session.InitializeTables(cmd.Context()); res.Outcome == restaurant.Failed {
		return fmt.Errorf("loading tables: %w", res.Err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tID\tSTATUS\tDESCRIPTION")
	for _, t := range session.Tables() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.Number, t.ID, t.Status, t.Description)
	}
	return w.Flush()
}
