package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/centraunit/compose/internal/sample"
)

var scopesCmd = &cobra.Command{
	Use:   "scopes [player...]",
	Short: "Resolve a GameManager in one scope per player",
	Long: `Create one child scope per player, set its CurrentUser and resolve the
scope's GameManager. Without arguments the players are Ciuri and Buri.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"Ciuri", "Buri"}
		}
		root, logger, err := buildSample()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		defer func() { _ = root.Close() }()

		managers, err := sample.PlayAs(cmd.Context(), root, args...)
		if err != nil {
			return err
		}
		for _, gm := range managers {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", boldGreen(gm.User.Name), gm.Greeting())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scopesCmd)
}
