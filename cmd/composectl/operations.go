package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/centraunit/compose"
	"github.com/centraunit/compose/internal/sample"
)

var (
	operationsInput int
	connectKind     string
)

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "Run the operation pipeline in processing priority order",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, logger, err := buildSample()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		defer func() { _ = root.Close() }()

		names, err := sample.OperationNames(cmd.Context(), root)
		if err != nil {
			return err
		}
		p, err := compose.Resolve[*sample.Pipeline](cmd.Context(), root)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n%d -> %s\n",
			cyan(strings.Join(names, " -> ")), operationsInput, bold(p.Run(operationsInput)))
		return nil
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Open the first connection factory serving a kind",
	Long: `Filter the connection factory exports by their connectionKind metadata
and construct only the first match.

Examples:
  composectl connect --kind sql
  composectl connect --kind cache`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, logger, err := buildSample()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		defer func() { _ = root.Close() }()

		f, err := sample.OpenConnection(cmd.Context(), root, connectKind)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", connectKind, boldGreen(f.Dialect()))
		return nil
	},
}

func init() {
	operationsCmd.Flags().IntVar(&operationsInput, "input", 2, "value fed to the pipeline")
	connectCmd.Flags().StringVarP(&connectKind, "kind", "k", "sql", "connection kind (sql, nosql, document, cache)")
	rootCmd.AddCommand(operationsCmd, connectCmd)
}
