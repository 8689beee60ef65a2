package am

import "reflect"

// matchSettings are the pipeline settings baked into the matcher at startup
type matchSettings struct {
	MinPathLength, Workers, LayerIndex, Head int
	AvgHeads, Trim                           bool
}

func matchSettingsOf(p PipelineConfig) matchSettings {
	return matchSettings{
		MinPathLength: p.MinPathLength,
		Workers:       p.Workers,
		LayerIndex:    p.LayerIndex,
		Head:          p.Head,
		AvgHeads:      p.AvgHeads,
		Trim:          p.Trim,
	}
}

// RestartSections lists the settings that differ between prev and next and
// only take effect after a restart. Pipeline thresholds and drain_every are
// applied live and never listed.
func RestartSections(prev, next *Config) []string {
	if prev == nil || next == nil {
		return nil
	}
	var out []string
	if prev.Database != next.Database {
		out = append(out, "database")
	}
	if !reflect.DeepEqual(prev.Ontology, next.Ontology) {
		out = append(out, "ontology")
	}
	if matchSettingsOf(prev.Pipeline) != matchSettingsOf(next.Pipeline) {
		out = append(out, "pipeline.match")
	}
	if prev.Mapping != next.Mapping {
		out = append(out, "mapping")
	}
	if prev.Services != next.Services {
		out = append(out, "services")
	}
	if prev.Metrics != next.Metrics {
		out = append(out, "metrics")
	}
	return out
}
