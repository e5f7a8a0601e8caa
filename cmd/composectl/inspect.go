package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/centraunit/compose"
	"github.com/centraunit/compose/internal/sample"
)

var inspectYAML bool

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List the sample registrations and the winner of each contract",
	Long: `List every contract of the sample with its registrations in ResolveAll
order. The registration Resolve would pick is marked with '*'.

Examples:
  composectl inspect
  composectl inspect --ambiguity force-priority
  composectl inspect --exclude 'sample.Redis*' --yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, logger, err := buildSample()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		defer func() { _ = root.Close() }()

		if inspectYAML {
			return writeRegistrationsYAML(cmd.OutOrStdout(), root.Catalog().Registrations())
		}
		for _, contract := range sample.Contracts() {
			infos, err := root.Inspect(contract)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n  %s\n", bold(contract), red(err))
				continue
			}
			writeContract(cmd.OutOrStdout(), contract, infos)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectYAML, "yaml", false, "print the raw catalog as YAML")
	rootCmd.AddCommand(inspectCmd)
}

func writeContract(w io.Writer, contract compose.Contract, infos []compose.RegistrationInfo) {
	fmt.Fprintln(w, bold(contract))
	if len(infos) == 0 {
		fmt.Fprintln(w, gray("  (no registrations)"))
		return
	}
	for _, info := range infos {
		marker := " "
		impl := info.Implementation
		if info.Winner {
			marker = boldGreen("*")
			impl = boldGreen(impl)
		}
		fmt.Fprintf(w, "  %s %s %s%s\n", marker, impl, gray(info.Lifetime), describePriorities(info))
	}
}

func describePriorities(info compose.RegistrationInfo) string {
	var parts []string
	if info.Name != "" {
		parts = append(parts, "name="+info.Name)
	}
	if info.ProcessingPriority != 0 {
		parts = append(parts, fmt.Sprintf("processing=%d", info.ProcessingPriority))
	}
	if info.IsOverride {
		parts = append(parts, fmt.Sprintf("override=%d", info.OverridePriority))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + cyan(strings.Join(parts, " "))
}

func writeRegistrationsYAML(w io.Writer, infos []compose.RegistrationInfo) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(infos); err != nil {
		return fmt.Errorf("encoding registrations: %w", err)
	}
	return enc.Close()
}
