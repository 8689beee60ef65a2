package pipeline

import (
	"context"
	"database/sql"
	"os"

	"go.uber.org/zap"

	"github.com/teranos/ontomap/am"
	"github.com/teranos/ontomap/cache"
	"github.com/teranos/ontomap/db"
	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/graphdb"
	"github.com/teranos/ontomap/internal/httpclient"
	"github.com/teranos/ontomap/kg"
	"github.com/teranos/ontomap/match"
	"github.com/teranos/ontomap/metadata"
	"github.com/teranos/ontomap/ontology"
	"github.com/teranos/ontomap/resolve"
	"github.com/teranos/ontomap/semantic"
	"github.com/teranos/ontomap/services"
)

// Instruments observe every layer of a built system. See metrics.Recorder.
type Instruments interface {
	Recorder
	resolve.Observer
	services.CallObserver
}

// System is a pipeline wired from configuration, with the parts commands
// reach into directly.
type System struct {
	Config     *am.Config
	DB         *sql.DB
	Store      *graphdb.Store
	Labels     *graphdb.LabelIndex
	Services   *services.Client
	Scorer     *semantic.Scorer
	Ontologies *ontology.Registry
	Caches     *cache.Registry
	Graph      *kg.WritableGraph
	Pipeline   *Pipeline
}

// Build opens the database, loads the ontologies, indexes their labels and
// wires the match and map stages. inst may be nil.
func Build(ctx context.Context, cfg *am.Config, inst Instruments, log *zap.SugaredLogger) (*System, error) {
	conn, err := db.OpenWithMigrations(cfg.GetDatabasePath(), log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open graph database")
	}
	sys, err := BuildWithDB(ctx, cfg, conn, inst, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return sys, nil
}

// BuildWithDB wires a system over an open, migrated database
func BuildWithDB(ctx context.Context, cfg *am.Config, conn *sql.DB, inst Instruments, log *zap.SugaredLogger) (*System, error) {
	registry, err := loadOntologies(cfg.Ontology)
	if err != nil {
		return nil, err
	}

	client := services.NewClient(cfg.Services, log)
	if inst != nil {
		client.WithObserver(inst)
	}

	var fetch *httpclient.Fetcher
	if cfg.Ontology.ImportBaseURL != "" {
		// import_base_url is operator configuration and commonly a local file server
		fetch = httpclient.New(httpclient.Options{Timeout: cfg.Services.Timeout(), AllowPrivate: true})
	}
	store := graphdb.NewStore(conn, fetch, log)

	labels := graphdb.NewLabelIndex(conn, client, log)
	for _, o := range registry.All() {
		n, err := labels.IndexOntology(ctx, o)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to index labels of %s", o.URI)
		}
		log.Debugw("Indexed ontology labels", "ontology", o.URI, "new", n)
	}

	graph := kg.NewWritableGraph(kg.DrainConfig{
		OutputDir:     cfg.Ontology.OutputDir,
		CanonicalPath: cfg.Ontology.CanonicalPath,
		ImportBaseURL: cfg.Ontology.ImportBaseURL,
		Prefixes:      prefixes(registry),
	}, store, log)

	detector := NewDetector()
	filter, err := match.NewFilter(client, detector.Languages(), log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load stopwords")
	}
	matcher := match.NewMatcher(client, client, filter, match.Config{
		Layer: match.LayerOptions{
			LayerIndex: cfg.Pipeline.LayerIndex,
			AvgHeads:   cfg.Pipeline.AvgHeads,
			Head:       cfg.Pipeline.Head,
			Trim:       cfg.Pipeline.Trim,
		},
		MinPathLength: cfg.Pipeline.MinPathLength,
		Workers:       cfg.GetWorkers(),
	}, log)

	scorer := semantic.NewScorer(client, log)
	caches := cache.NewRegistry()
	tuning := resolve.NewTuning(Thresholds(cfg.Pipeline))

	var observer resolve.Observer
	var recorder Recorder
	if inst != nil {
		observer, recorder = inst, inst
	}

	mapper := resolve.NewMapper(resolve.Deps{
		Ontologies: registry,
		Caches:     caches,
		Graph:      graph,
		Scorer:     scorer,
		NER:        client,
		Labels:     labels,
		Instances:  store,
		Translator: client,
		Observer:   observer,
		Tuning:     tuning,
		Logger:     log,
	})

	p := New(Deps{
		Matcher:    matcher,
		Mapper:     mapper,
		NER:        client,
		Detector:   detector,
		Graph:      graph,
		Tuning:     tuning,
		Recorder:   recorder,
		DrainEvery: cfg.Pipeline.DrainEvery,
		Logger:     log,
	})

	strategy, err := metadata.NewStrategy(cfg.Mapping.Strategy, registry.Main, scorer, caches)
	if err != nil {
		return nil, err
	}
	p.SetMetadataMapper(metadata.NewMapper(metadata.Deps{
		Strategy: strategy,
		Main:     registry.Main,
		Caches:   caches,
		Graph:    graph,
		Scorer:   scorer,
		Finder:   store,
		Linker:   p,
		Observer: observer,
		Tuning:   tuning,
		TitleKey: cfg.Mapping.TitleKey,
		Logger:   log,
	}))

	return &System{
		Config:     cfg,
		DB:         conn,
		Store:      store,
		Labels:     labels,
		Services:   client,
		Scorer:     scorer,
		Ontologies: registry,
		Caches:     caches,
		Graph:      graph,
		Pipeline:   p,
	}, nil
}

// Close releases the database
func (s *System) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// loadOntologies loads the main ontology from its canonical file when one
// exists, so properties minted by earlier runs are known, and from the
// shipped file otherwise.
func loadOntologies(cfg am.OntologyConfig) (*ontology.Registry, error) {
	path := cfg.Path
	if cfg.CanonicalPath != "" {
		if _, err := os.Stat(cfg.CanonicalPath); err == nil {
			path = cfg.CanonicalPath
		}
	}
	mainSrc, err := source(cfg.URI, path, cfg.Format)
	if err != nil {
		return nil, err
	}

	secondary := make(map[string]ontology.Source, len(cfg.Secondary))
	for nerType, s := range cfg.Secondary {
		src, err := source(s.URI, s.Path, s.Format)
		if err != nil {
			return nil, errors.Wrapf(err, "secondary ontology %s", nerType)
		}
		secondary[nerType] = src
	}

	registry, err := ontology.LoadRegistry(mainSrc, secondary)
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "failed to load ontologies"),
			"check ontology.path and ontology.secondary in ontomap.toml")
	}
	return registry, nil
}

func source(uri, path, format string) (ontology.Source, error) {
	f := kg.FormatForPath(path)
	if format != "" {
		var err error
		if f, err = kg.ParseFormat(format); err != nil {
			return ontology.Source{}, err
		}
	}
	return ontology.Source{URI: uri, Path: path, Format: f}, nil
}

// prefixes binds the well-known namespaces plus one prefix per loaded
// ontology for drained Turtle files.
func prefixes(r *ontology.Registry) map[string]string {
	out := make(map[string]string, len(kg.DefaultPrefixes)+1)
	for prefix, ns := range kg.DefaultPrefixes {
		out[prefix] = ns
	}
	out["onto"] = r.Main.URI
	return out
}
