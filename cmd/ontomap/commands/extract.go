package commands

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/ontomap/display"
	"github.com/teranos/ontomap/errors"
)

// ExtractCmd extracts triplets from a text file or stdin
var ExtractCmd = &cobra.Command{
	Use:   "extract [file|-]",
	Short: "Extract triplets from text and map them onto the ontology",
	Long: `Extract candidate triplets from text and ground them in the main ontology.

Reads the named file, or stdin when the argument is "-" or missing. Mapped
triplets are printed and, unless --no-drain is set, the new triples are
drained to a Turtle file in ontology.output_dir.

Examples:
  ontomap extract notes.txt
  ontomap extract notes.txt --json
  cat notes.txt | ontomap extract`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

var extractNoDrain bool

func init() {
	ExtractCmd.Flags().BoolVar(&extractNoDrain, "no-drain", false, "Keep new triples in memory instead of writing them")
	ExtractCmd.Flags().Bool("json", false, "Print results as JSON")
}

func runExtract(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	asJSON := display.ShouldOutputJSON(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys, rec, err := openSystem(ctx)
	if err != nil {
		return err
	}
	defer sys.Close()
	serveMetrics(ctx, sys.Config.Metrics, rec)

	var spinner *pterm.SpinnerPrinter
	if !asJSON {
		spinner, _ = pterm.DefaultSpinner.Start("Extracting triplets...")
	}
	results, err := sys.Pipeline.ExtractTriplets(ctx, text)
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return errors.Wrap(err, "extraction interrupted")
	}

	if err := printResults(results, sys.Caches, asJSON); err != nil {
		return err
	}
	if extractNoDrain {
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

// readInput returns the named file, or stdin for "-" or no argument
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errors.Wrap(err, "failed to read stdin")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", args[0])
	}
	return string(data), nil
}
