// Package display chooses between table and JSON output for CLI commands.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// OutputEnv selects JSON output for every command when set to "json"
const OutputEnv = "ONTOMAP_OUTPUT"

// ShouldOutputJSON reports whether cmd should print JSON. An explicit --json
// flag wins over the environment.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd != nil && cmd.Flags().Lookup("json") != nil && cmd.Flags().Changed("json") {
		v, _ := cmd.Flags().GetBool("json")
		return v
	}
	return strings.EqualFold(os.Getenv(OutputEnv), "json")
}

// WriteJSON writes v as indented JSON followed by a newline
func WriteJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// OutputJSON prints v as JSON on stdout
func OutputJSON(v interface{}) error {
	return WriteJSON(os.Stdout, v)
}
