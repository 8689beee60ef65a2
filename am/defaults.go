package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "ontomap.db")

	v.SetDefault("ontology.uri", "https://w3id.org/idsa/core/")
	v.SetDefault("ontology.path", "resources/ontology/ids_core_main_ontology.ttl")
	v.SetDefault("ontology.format", "turtle")
	v.SetDefault("ontology.canonical_path", "resources/ontology/ids_core_main_ontology_modified.ttl")
	v.SetDefault("ontology.output_dir", "resources/output")
	v.SetDefault("ontology.import_base_url", "")

	v.SetDefault("pipeline.class_accept", 0.4)
	v.SetDefault("pipeline.class_similarity", 0.75)
	v.SetDefault("pipeline.property_similarity", 0.75)
	v.SetDefault("pipeline.content_similarity", 0.95)
	v.SetDefault("pipeline.entity_reuse", 0.2)
	v.SetDefault("pipeline.min_path_length", 3)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.layer_index", 0)
	v.SetDefault("pipeline.avg_heads", true)
	v.SetDefault("pipeline.head", 0)
	v.SetDefault("pipeline.trim", true)
	v.SetDefault("pipeline.drain_every", 0)

	v.SetDefault("mapping.strategy", StrategyDefault)
	v.SetDefault("mapping.title_key", "name")

	v.SetDefault("services.base_url", "http://localhost:8500")
	v.SetDefault("services.timeout_seconds", 60)
	v.SetDefault("services.requests_per_second", 20.0)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9464")
}

// BindSensitiveEnvVars binds settings commonly injected by deployment
func BindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.path", "ONTOMAP_DATABASE_PATH")
	_ = v.BindEnv("services.base_url", "ONTOMAP_SERVICES_BASE_URL")
	_ = v.BindEnv("ontology.import_base_url", "ONTOMAP_IMPORT_BASE_URL")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "ontomap.db"
	}
	return c.Database.Path
}

// GetWorkers returns the BFS pool size, at least 1
func (c *Config) GetWorkers() int {
	if c.Pipeline.Workers < 1 {
		return 1
	}
	return c.Pipeline.Workers
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Ontology: %s, Strategy: %s, Workers: %d}",
		c.Database.Path, c.Ontology.URI, c.Mapping.Strategy, c.Pipeline.Workers)
}
