// Package am holds ontomap's configuration ("am" as in "I am configured as").
//
// Configuration is TOML, merged from /etc/ontomap, ~/.ontomap and the nearest
// ontomap.toml walking up from the working directory, then overridden by
// ONTOMAP_* environment variables.
package am

import "time"

// Config represents the ontomap configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Ontology OntologyConfig `mapstructure:"ontology"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Mapping  MappingConfig  `mapstructure:"mapping"`
	Services ServicesConfig `mapstructure:"services"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DatabaseConfig configures the SQLite graph store and label index
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// OntologyConfig locates the ontologies the map stage grounds against
type OntologyConfig struct {
	URI           string `mapstructure:"uri"`             // main ontology namespace, e.g. "https://w3id.org/idsa/core/"
	Path          string `mapstructure:"path"`            // main ontology file as shipped
	Format        string `mapstructure:"format"`          // "turtle" or "ntriples"
	CanonicalPath string `mapstructure:"canonical_path"`  // extended ontology file drains merge into
	OutputDir     string `mapstructure:"output_dir"`      // where drained batches are written
	ImportBaseURL string `mapstructure:"import_base_url"` // empty = import by local path

	// Secondary ontologies keyed by NER entity type (PER, LOC, ORG, MISC)
	Secondary map[string]SecondaryOntology `mapstructure:"secondary"`
}

// SecondaryOntology is a NER-type-specific fallback ontology
type SecondaryOntology struct {
	URI    string `mapstructure:"uri"`
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

// PipelineConfig configures match and map stage behaviour.
// The thresholds were tuned empirically; keep them in (0, 1).
type PipelineConfig struct {
	ClassAccept        float64 `mapstructure:"class_accept"`        // label-index score needed to accept a class (default: 0.4)
	ClassSimilarity    float64 `mapstructure:"class_similarity"`    // ontology class label similarity (default: 0.75)
	PropertySimilarity float64 `mapstructure:"property_similarity"` // relation vs property name (default: 0.75)
	ContentSimilarity  float64 `mapstructure:"content_similarity"`  // instance title dedup (default: 0.95)
	EntityReuse        float64 `mapstructure:"entity_reuse"`        // reuse a cached NER prediction (default: 0.2)

	MinPathLength int `mapstructure:"min_path_length"` // nodes, head and tail included (default: 3)
	Workers       int `mapstructure:"workers"`         // BFS pool size (default: 4)

	LayerIndex int  `mapstructure:"layer_index"` // attention layer; negative counts from the end
	AvgHeads   bool `mapstructure:"avg_heads"`
	Head       int  `mapstructure:"head"` // used when avg_heads is false
	Trim       bool `mapstructure:"trim"` // drop boundary tokens

	DrainEvery int `mapstructure:"drain_every"` // sentences between drains; 0 = caller decides
}

// MappingConfig configures metadata mapping
type MappingConfig struct {
	Strategy string `mapstructure:"strategy"`  // "default" or "dcat"
	TitleKey string `mapstructure:"title_key"` // metadata key carrying the record title
}

// ServicesConfig configures the model sidecar (NER, encoder, embeddings, lemmas)
type ServicesConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"` // 0 = unlimited
}

// Timeout returns the service timeout as a duration
func (s ServicesConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Mapping strategies
const (
	StrategyDefault = "default"
	StrategyDCAT    = "dcat"
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
