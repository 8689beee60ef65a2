package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/ontomap/display"
	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/metadata"
)

// MetadataCmd maps JSON metadata records onto the ontology
var MetadataCmd = &cobra.Command{
	Use:   "map-metadata [file|-]",
	Short: "Map JSON metadata records onto the ontology",
	Long: `Map a JSON array of metadata records onto the ontology.

Each record becomes a node of the class chosen by the mapping strategy
(mapping.strategy in ontomap.toml). Keys are matched to properties of that
class, nested objects become linked nodes, and description keys are run
through triplet extraction.

Examples:
  ontomap map-metadata records.json
  ontomap map-metadata records.json --class "data resource"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMapMetadata,
}

var (
	metadataClass   string
	metadataNoDrain bool
)

func init() {
	MetadataCmd.Flags().StringVar(&metadataClass, "class", "dataset", "Text used to pick the class of each record")
	MetadataCmd.Flags().BoolVar(&metadataNoDrain, "no-drain", false, "Keep new triples in memory instead of writing them")
	MetadataCmd.Flags().Bool("json", false, "Print node URIs as JSON")
}

func runMapMetadata(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	records, err := metadata.ParseRecords([]byte(data))
	if err != nil {
		return errors.WithHint(err, "expected a JSON array of objects")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys, rec, err := openSystem(ctx)
	if err != nil {
		return err
	}
	defer sys.Close()
	serveMetrics(ctx, sys.Config.Metrics, rec)

	uris, mapErr := sys.Pipeline.MapMetadata(ctx, records, metadataClass)
	if mapErr != nil && len(uris) == 0 {
		return errors.Wrap(mapErr, "failed to map metadata")
	}

	asJSON := display.ShouldOutputJSON(cmd)
	if asJSON {
		if err := display.OutputJSON(uris); err != nil {
			return err
		}
	} else {
		pterm.Success.Printf("Mapped %d records to %d nodes\n", len(records), len(uris))
		for _, uri := range uris {
			pterm.Printf("  %s\n", uri)
		}
		if mapErr != nil {
			pterm.Warning.Printf("Some records failed: %v\n", mapErr)
		}
	}

	if metadataNoDrain {
		return nil
	}
	res, err := sys.Pipeline.Drain(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to drain new triples")
	}
	if !asJSON {
		printDrain(res)
	}
	return nil
}
