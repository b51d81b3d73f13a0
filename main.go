package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "photocons",
		Short: "Consolidate photo collections into a deduplicated archive",
		Long: `photocons gathers photo collections from multiple source trees,
detects exact and near-duplicate images, and consolidates one
canonical copy of each photo into a date-organized destination
archive. Sources are never modified; every input file's fate is
recorded in a run manifest.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newConsolidateCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
