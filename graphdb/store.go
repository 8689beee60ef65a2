// Package graphdb is the persistent side of the knowledge graph: a SQLite
// triple store that drained batches are imported into, and the label index
// the class resolver searches.
package graphdb

import (
	"context"
	"database/sql"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/internal/httpclient"
	"github.com/teranos/ontomap/kg"
	"github.com/teranos/ontomap/logger"
)

const (
	insertImportQuery      = `INSERT INTO imports (location, format) VALUES (?, ?)`
	updateImportCountQuery = `UPDATE imports SET triple_count = ? WHERE id = ?`

	insertTripleQuery = `
		INSERT OR IGNORE INTO triples (subject, predicate, object, object_kind, datatype, lang, import_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	instancesOfClassQuery = `
		SELECT t.subject, l.object
		FROM triples t
		LEFT JOIN triples l
			ON l.subject = t.subject AND l.predicate = ? AND l.object_kind = 'literal'
		WHERE t.predicate = ? AND t.object = ? AND t.object_kind = 'iri'
		ORDER BY t.id, l.id`

	// LIKE is case-insensitive for ASCII in SQLite
	findNodeByPropertyLikeQuery = `
		SELECT p.subject
		FROM triples p
		JOIN triples t
			ON t.subject = p.subject AND t.predicate = ? AND t.object = ? AND t.object_kind = 'iri'
		WHERE p.predicate = ? AND p.object_kind = 'literal' AND p.object LIKE ? ESCAPE '\'
		ORDER BY p.id
		LIMIT 1`

	countTriplesQuery = `SELECT COUNT(*) FROM triples`

	listImportsQuery = `
		SELECT id, location, format, triple_count, imported_at
		FROM imports
		ORDER BY id DESC
		LIMIT ?`
)

// Store is a SQLite-backed triple store
type Store struct {
	db     *sql.DB
	fetch  *httpclient.Fetcher
	logger *zap.SugaredLogger
}

// ImportRecord is one row of the import log
type ImportRecord struct {
	ID          int64
	Location    string
	Format      string
	TripleCount int
	ImportedAt  time.Time
}

// NewStore creates a store over a migrated database. fetch may be nil, in
// which case only local files can be imported.
func NewStore(db *sql.DB, fetch *httpclient.Fetcher, logger *zap.SugaredLogger) *Store {
	return &Store{
		db:     db,
		fetch:  fetch,
		logger: logger.Named("graphdb"),
	}
}

// ImportFile loads a serialized graph from a path or http(s) URL. All triples
// of one file land in a single transaction; duplicates of stored triples are
// ignored.
func (s *Store) ImportFile(ctx context.Context, location string, format kg.Format) error {
	start := time.Now()

	body, err := s.open(ctx, location)
	if err != nil {
		return err
	}
	defer body.Close()

	triples, err := kg.Decode(body, format)
	if err != nil {
		return errors.Wrapf(err, "failed to decode %s", location)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() // Rollback if not committed

	res, err := tx.ExecContext(ctx, insertImportQuery, location, string(format))
	if err != nil {
		return errors.Wrapf(err, "failed to record import of %s", location)
	}
	importID, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to read import id")
	}

	inserted, err := insertTriples(ctx, tx, triples, sql.NullInt64{Int64: importID, Valid: true})
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, updateImportCountQuery, inserted, importID); err != nil {
		return errors.Wrap(err, "failed to update import count")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	s.logger.Infow("Imported graph file",
		logger.FieldFile, location,
		logger.FieldCount, inserted,
		"decoded", len(triples),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return nil
}

func (s *Store) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if httpclient.IsRemote(location) {
		if s.fetch == nil {
			return nil, errors.WithHint(
				errors.Newf("cannot import %s: remote imports disabled", location),
				"create the store with an httpclient.Fetcher to import URLs")
		}
		return s.fetch.Fetch(ctx, location)
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", location)
	}
	return f, nil
}

// AddTriples writes triples outside of any import. Returns how many were new.
func (s *Store) AddTriples(ctx context.Context, triples []kg.Triple) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() // Rollback if not committed

	n, err := insertTriples(ctx, tx, triples, sql.NullInt64{})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit transaction")
	}
	return n, nil
}

func insertTriples(ctx context.Context, tx *sql.Tx, triples []kg.Triple, importID sql.NullInt64) (int, error) {
	stmt, err := tx.PrepareContext(ctx, insertTripleQuery)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prepare triple insert")
	}
	defer stmt.Close()

	inserted := 0
	for _, t := range triples {
		if !t.Valid() {
			continue
		}
		res, err := stmt.ExecContext(ctx,
			subjectValue(t.Subject),
			t.Predicate.Value,
			t.Object.Value,
			t.Object.Kind.String(),
			t.Object.Datatype,
			t.Object.Lang,
			importID,
		)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to insert triple %s", t.Key())
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}

// Blank subjects keep their "_:" marker so they never collide with IRIs.
func subjectValue(t kg.Term) string {
	if t.Kind == kg.KindBlank {
		return "_:" + t.Value
	}
	return t.Value
}

// InstancesOfClass returns the nodes typed classURI with their dcterms:title
// values, in insertion order.
func (s *Store) InstancesOfClass(ctx context.Context, classURI string) ([]kg.Instance, error) {
	rows, err := s.db.QueryContext(ctx, instancesOfClassQuery, kg.DCTermsTitle, kg.RDFType, classURI)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query instances of %s", classURI)
	}
	defer rows.Close()

	var out []kg.Instance
	index := make(map[string]int)
	for rows.Next() {
		var subject string
		var title sql.NullString
		if err := rows.Scan(&subject, &title); err != nil {
			return nil, errors.Wrap(err, "failed to scan instance")
		}
		i, ok := index[subject]
		if !ok {
			i = len(out)
			index[subject] = i
			out = append(out, kg.Instance{URI: subject})
		}
		if title.Valid {
			out[i].Titles = append(out[i].Titles, title.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate instances")
	}
	return out, nil
}

// FindNodeByPropertyLike returns the first node of classURI whose propertyURI
// literal contains value.
func (s *Store) FindNodeByPropertyLike(ctx context.Context, classURI, propertyURI, value string) (string, bool, error) {
	if strings.TrimSpace(value) == "" {
		return "", false, nil
	}

	var uri string
	err := s.db.QueryRowContext(ctx, findNodeByPropertyLikeQuery,
		kg.RDFType, classURI, propertyURI, "%"+escapeLike(value)+"%").Scan(&uri)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to search %s by %s", classURI, propertyURI)
	}
	return uri, true, nil
}

// Count returns the number of stored triples
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countTriplesQuery).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count triples")
	}
	return n, nil
}

// Imports returns the most recent import records, newest first
func (s *Store) Imports(ctx context.Context, limit int) ([]ImportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, listImportsQuery, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list imports")
	}
	defer rows.Close()

	var out []ImportRecord
	for rows.Next() {
		var r ImportRecord
		if err := rows.Scan(&r.ID, &r.Location, &r.Format, &r.TripleCount, &r.ImportedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan import")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
