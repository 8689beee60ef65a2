package am

import (
	"github.com/teranos/ontomap/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Ontology.URI == "" {
		return errors.New("ontology.uri cannot be empty")
	}
	switch c.Ontology.Format {
	case "turtle", "ntriples":
	default:
		return errors.Newf("ontology.format must be turtle or ntriples, got %q", c.Ontology.Format)
	}
	for nerType, sec := range c.Ontology.Secondary {
		if sec.URI == "" || sec.Path == "" {
			return errors.Newf("ontology.secondary.%s needs both uri and path", nerType)
		}
	}

	thresholds := []struct {
		key   string
		value float64
	}{
		{"pipeline.class_accept", c.Pipeline.ClassAccept},
		{"pipeline.class_similarity", c.Pipeline.ClassSimilarity},
		{"pipeline.property_similarity", c.Pipeline.PropertySimilarity},
		{"pipeline.content_similarity", c.Pipeline.ContentSimilarity},
		{"pipeline.entity_reuse", c.Pipeline.EntityReuse},
	}
	for _, th := range thresholds {
		if th.value < 0 || th.value > 1 {
			return errors.Newf("%s must be within [0, 1], got %f", th.key, th.value)
		}
	}

	// A path needs head, at least one relation token and tail
	if c.Pipeline.MinPathLength < 3 {
		return errors.Newf("pipeline.min_path_length must be >= 3, got %d", c.Pipeline.MinPathLength)
	}
	if c.Pipeline.Workers < 0 {
		return errors.Newf("pipeline.workers must be >= 0, got %d", c.Pipeline.Workers)
	}
	if !c.Pipeline.AvgHeads && c.Pipeline.Head < 0 {
		return errors.Newf("pipeline.head must be >= 0, got %d", c.Pipeline.Head)
	}
	if c.Pipeline.DrainEvery < 0 {
		return errors.Newf("pipeline.drain_every must be >= 0, got %d", c.Pipeline.DrainEvery)
	}

	switch c.Mapping.Strategy {
	case StrategyDefault, StrategyDCAT:
	default:
		return errors.Newf("mapping.strategy must be %q or %q, got %q", StrategyDefault, StrategyDCAT, c.Mapping.Strategy)
	}

	if c.Services.BaseURL == "" {
		return errors.WithHint(errors.New("services.base_url cannot be empty"),
			"point it at the model sidecar, e.g. http://localhost:8500")
	}
	if c.Services.TimeoutSeconds <= 0 {
		return errors.Newf("services.timeout_seconds must be > 0, got %d", c.Services.TimeoutSeconds)
	}
	if c.Services.RequestsPerSecond < 0 {
		return errors.Newf("services.requests_per_second must be >= 0, got %f", c.Services.RequestsPerSecond)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics.addr cannot be empty when metrics are enabled")
	}

	return nil
}
