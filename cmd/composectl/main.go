// Command composectl builds the sample composition and inspects it.
package main

import (
	"fmt"
	"os"
)

// Build information injected via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
