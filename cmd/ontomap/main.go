package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/ontomap/cmd/ontomap/commands"
	"github.com/teranos/ontomap/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ontomap",
	Short: "ontomap - populate an ontology from free text and metadata",
	Long: `ontomap - populate an OWL ontology from free text and metadata records.

Text is split into sentences, candidate triplets are extracted from the
attention of a language model, and each triplet is grounded in the main
ontology: classes are resolved, instances minted or reused, properties
matched or created. New triples are drained to Turtle files.

Available commands:
  extract      - Extract triplets from text
  map-metadata - Map JSON metadata records onto the ontology
  watch        - Extract triplets from text files dropped into a directory
  db           - Manage the graph database
  am           - Show and validate configuration
  version      - Show version information

Examples:
  ontomap extract notes.txt          # Extract and drain triplets from a file
  echo "Paris is the capital of France." | ontomap extract -
  ontomap map-metadata records.json  # Map metadata records
  ontomap watch ./inbox              # Process new .txt files as they appear`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// am show prints configuration to stdout, keep it clean
		if cmd.Name() == "show" {
			return nil
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Write logs as JSON")

	rootCmd.AddCommand(commands.ExtractCmd)
	rootCmd.AddCommand(commands.MetadataCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
