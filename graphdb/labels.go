package graphdb

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/logger"
	"github.com/teranos/ontomap/ontology"
)

const (
	insertLabelQuery = `INSERT OR IGNORE INTO labels (uri, label, lang, kind) VALUES (?, ?, ?, ?)`

	// A label matches when it contains the term or the term contains it.
	// Labels with no language match every language.
	searchLabelsQuery = `
		SELECT uri, label, lang, kind
		FROM labels
		WHERE kind = 'class'
			AND (lang = ? OR lang = '')
			AND (label LIKE ? ESCAPE '\' OR (length(label) > 2 AND ? LIKE '%' || label || '%'))
		ORDER BY length(label), label
		LIMIT ?`

	countLabelsQuery = `SELECT COUNT(*) FROM labels`
)

const defaultSearchLimit = 25

// Synonymizer widens a search term with related words
type Synonymizer interface {
	Synonyms(ctx context.Context, word, lang string) ([]string, error)
}

// LabelIndex is the searchable index of class labels
type LabelIndex struct {
	db       *sql.DB
	synonyms Synonymizer
	limit    int
	logger   *zap.SugaredLogger
}

// NewLabelIndex creates an index. synonyms may be nil.
func NewLabelIndex(db *sql.DB, synonyms Synonymizer, logger *zap.SugaredLogger) *LabelIndex {
	return &LabelIndex{
		db:       db,
		synonyms: synonyms,
		limit:    defaultSearchLimit,
		logger:   logger.Named("labels"),
	}
}

// IndexOntology stores the labels of every class and property of o.
// Returns the number of new rows.
func (ix *LabelIndex) IndexOntology(ctx context.Context, o *ontology.Ontology) (int, error) {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() // Rollback if not committed

	stmt, err := tx.PrepareContext(ctx, insertLabelQuery)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prepare label insert")
	}
	defer stmt.Close()

	inserted := 0
	for _, l := range o.Labels() {
		if strings.TrimSpace(l.Label) == "" {
			continue
		}
		res, err := stmt.ExecContext(ctx, l.URI, l.Label, strings.ToLower(l.Lang), l.Kind)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to index label %q of %s", l.Label, l.URI)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit transaction")
	}

	ix.logger.Infow("Indexed ontology labels",
		logger.FieldOntology, o.URI,
		logger.FieldCount, inserted)
	return inserted, nil
}

// Search returns class labels matching query or one of its synonyms, shortest
// labels first. Results are unique per (uri, label).
func (ix *LabelIndex) Search(ctx context.Context, query, lang string) ([]ontology.Label, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	lang = strings.ToLower(lang)

	terms := []string{query}
	if ix.synonyms != nil {
		syns, err := ix.synonyms.Synonyms(ctx, query, lang)
		if err != nil {
			// Widening is best effort
			ix.logger.Warnw("Synonym lookup failed",
				"query", query,
				logger.FieldError, err)
		}
		for _, s := range syns {
			s = strings.TrimSpace(s)
			if s != "" && !strings.EqualFold(s, query) {
				terms = append(terms, s)
			}
		}
	}

	var out []ontology.Label
	seen := make(map[string]bool)
	for _, term := range terms {
		labels, err := ix.search(ctx, term, lang)
		if err != nil {
			return nil, err
		}
		for _, l := range labels {
			key := l.URI + "\x00" + l.Label
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, l)
		}
	}
	return out, nil
}

func (ix *LabelIndex) search(ctx context.Context, term, lang string) ([]ontology.Label, error) {
	rows, err := ix.db.QueryContext(ctx, searchLabelsQuery, lang, "%"+escapeLike(term)+"%", term, ix.limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search labels for %q", term)
	}
	defer rows.Close()

	var out []ontology.Label
	for rows.Next() {
		var l ontology.Label
		if err := rows.Scan(&l.URI, &l.Label, &l.Lang, &l.Kind); err != nil {
			return nil, errors.Wrap(err, "failed to scan label")
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Len returns the number of indexed labels
func (ix *LabelIndex) Len(ctx context.Context) (int, error) {
	var n int
	if err := ix.db.QueryRowContext(ctx, countLabelsQuery).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count labels")
	}
	return n, nil
}
