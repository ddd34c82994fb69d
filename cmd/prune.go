package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"comanda/pos/internal/restaurant"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove delivery mappings whose table has no active orders",
	RunE:  runPrune,
}

var pruneUsername, prunePassword string

func init() {
	credentialFlags(pruneCmd, &pruneUsername, &prunePassword)
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.identity(cmd.Context(), pruneUsername, prunePassword)
	if err != nil {
		return err
	}
	session := restaurant.NewSession(a.client, restaurant.NewMappingStore(a.kv), user)
	removed, err := session.PruneStaleDeliveryMappings(cmd.Context())
	if err != nil {
		return fmt.Errorf("pruning delivery mappings: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(removed) == 0 {
		fmt.Fprintln(out, "No stale delivery mappings")
		return nil
	}
	for _, customerID := range removed {
		fmt.Fprintf(out, "Removed mapping for customer %s\n", customerID)
	}
	return nil
}
