package commands

import (
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/teranos/ontomap/cache"
	"github.com/teranos/ontomap/display"
	"github.com/teranos/ontomap/kg"
	"github.com/teranos/ontomap/resolve"
)

// resultRows lays out mapped triplets for a table, header first
func resultRows(results []resolve.Result, caches *cache.Registry) [][]string {
	rows := [][]string{{"Head", "Class", "Property", "Tail", "Class", "Outcome"}}
	for _, r := range results {
		tail := r.Literal
		if r.Tail != "" {
			tail = kg.LocalName(r.Tail)
		}
		rows = append(rows, []string{
			kg.LocalName(r.Head),
			classLabel(caches, r.HeadClass),
			kg.LocalName(r.Property),
			tail,
			classLabel(caches, r.TailClass),
			string(r.Outcome),
		})
	}
	return rows
}

// classLabel prints a class by local name in its stable colour
func classLabel(caches *cache.Registry, classURI string) string {
	if classURI == "" {
		return ""
	}
	name := kg.LocalName(classURI)
	if caches == nil || pterm.RawOutput {
		return name
	}
	rgb, ok := hexRGB(caches.ColorFor(classURI))
	if !ok {
		return name
	}
	return rgb.Sprint(name)
}

func hexRGB(hex string) (pterm.RGB, bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return pterm.RGB{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return pterm.RGB{}, false
	}
	return pterm.NewRGB(uint8(v>>16), uint8(v>>8), uint8(v)), true
}

func printResults(results []resolve.Result, caches *cache.Registry, asJSON bool) error {
	if asJSON {
		return display.OutputJSON(results)
	}
	if len(results) == 0 {
		pterm.Info.Println("No triplets mapped onto the ontology")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(resultRows(results, caches)).Render()
}

func printDrain(res kg.DrainResult) {
	if res.File == "" {
		pterm.Info.Println("Nothing to drain")
		return
	}
	pterm.Success.Printf("Drained %d triples to %s\n", res.Triples, res.File)
	if res.Location != "" {
		pterm.Info.Printf("Imported from %s\n", res.Location)
	}
}
