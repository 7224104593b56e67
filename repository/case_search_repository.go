package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"jurislens-backend/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// ErrNoCompatibleSearchFunction means every known call shape of the
// corpus search functions was rejected by the database.
var ErrNoCompatibleSearchFunction = errors.New("no compatible search function found (hybrid_search_chunks/match_ecli_chunks)")

// CaseSearchRepository queries the case-law chunk corpus through named
// search functions. The functions are managed independently of this
// service and their signatures drift, so every search probes a fixed,
// ordered list of known call shapes and keeps the first one the database
// accepts.
type CaseSearchRepository struct {
	db *pgxpool.Pool
}

// NewCaseSearchRepository creates a new case search repository.
func NewCaseSearchRepository(db *pgxpool.Pool) *CaseSearchRepository {
	return &CaseSearchRepository{db: db}
}

// searchCall is one candidate invocation of a search function.
type searchCall struct {
	name string
	sql  string
	args []any
}

// searchCandidates lists the known call shapes in precedence order: the
// combined lexical+vector function first, then the vector-only shapes.
func searchCandidates(queryText, vector string, matchCount int) []searchCall {
	return []searchCall{
		{
			name: "hybrid_search_chunks",
			sql:  `SELECT * FROM hybrid_search_chunks(query => $1, query_embedding => $2::vector, match_count => $3)`,
			args: []any{queryText, vector, matchCount},
		},
		{
			name: "match_ecli_chunks",
			sql:  `SELECT * FROM match_ecli_chunks(query_embedding => $1::vector, match_count => $2)`,
			args: []any{vector, matchCount},
		},
		{
			name: "match_ecli_chunks",
			sql:  `SELECT * FROM match_ecli_chunks(embedding => $1::vector, match_count => $2)`,
			args: []any{vector, matchCount},
		},
		{
			name: "match_ecli_chunks",
			sql:  `SELECT * FROM match_ecli_chunks(query => $1, query_embedding => $2::vector, match_count => $3)`,
			args: []any{queryText, vector, matchCount},
		},
		{
			name: "match_ecli_chunks",
			sql:  `SELECT * FROM match_ecli_chunks(query_text => $1, query_embedding => $2::vector, match_count => $3)`,
			args: []any{queryText, vector, matchCount},
		},
		{
			name: "match_ecli_chunks",
			sql:  `SELECT * FROM match_ecli_chunks(query_embedding => $1::vector, match_threshold => 0, match_count => $2)`,
			args: []any{vector, matchCount},
		},
		{
			name: "match_ecli_chunks",
			sql:  `SELECT * FROM match_ecli_chunks(embedding => $1::vector, match_threshold => 0, match_count => $2)`,
			args: []any{vector, matchCount},
		},
	}
}

// searchErrorKind classifies a failed candidate call. Only missing
// functions and stale signatures advance the probe; everything else is
// a real failure and aborts the search.
type searchErrorKind int

const (
	searchErrOther searchErrorKind = iota
	searchErrMissingFunction
	searchErrSchemaMismatch
)

func classifySearchError(err error) searchErrorKind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42883": // undefined_function, includes no-matching-signature
			return searchErrMissingFunction
		case "42703", "42P01": // undefined_column, undefined_table
			return searchErrSchemaMismatch
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "schema cache") {
		return searchErrSchemaMismatch
	}
	return searchErrOther
}

// Search runs the corpus search for an embedded query and returns at most
// matchCount cases, one per ECLI, ordered by score descending.
func (r *CaseSearchRepository) Search(
	ctx context.Context,
	queryText string,
	embedding []float64,
	matchCount int,
) ([]models.RetrievedCase, error) {
	vector := formatVector(embedding)

	var lastErr error
	for _, call := range searchCandidates(queryText, vector, matchCount) {
		rows, err := r.collectRows(ctx, call.sql, call.args)
		if err == nil {
			return dedupeRows(rows, matchCount), nil
		}

		lastErr = err
		kind := classifySearchError(err)
		if kind == searchErrOther {
			return nil, fmt.Errorf("search function %s failed: %w", call.name, err)
		}
		log.Debug().Err(err).Str("function", call.name).Msg("search call shape rejected, trying next")
	}

	return nil, fmt.Errorf("%w: %v", ErrNoCompatibleSearchFunction, lastErr)
}

// collectRows reads every result row into a field-name keyed map, because
// the search functions do not share a stable column list.
func (r *CaseSearchRepository) collectRows(ctx context.Context, sql string, args []any) ([]map[string]any, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, field := range fields {
			row[field.Name] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// dedupeRows collapses chunk rows by ECLI keeping the best-scoring chunk
// per decision, then ranks by score descending and truncates to limit.
func dedupeRows(rows []map[string]any, limit int) []models.RetrievedCase {
	best := make(map[string]models.RetrievedCase)
	for _, row := range rows {
		ecli := strings.TrimSpace(rowString(row, "ecli"))
		if ecli == "" {
			continue
		}
		score := rowScore(row)
		if prev, ok := best[ecli]; ok && score <= prev.Score {
			continue
		}
		best[ecli] = models.RetrievedCase{
			ECLI:         ecli,
			Title:        rowString(row, "title", "case_title"),
			Court:        rowString(row, "court", "instantie"),
			DecisionDate: rowString(row, "decision_date", "datum_uitspraak"),
			Score:        score,
			Content:      rowString(row, "content", "chunk_text", "text"),
		}
	}

	cases := make([]models.RetrievedCase, 0, len(best))
	for _, c := range best {
		cases = append(cases, c)
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].Score > cases[j].Score })
	if limit > 0 && len(cases) > limit {
		cases = cases[:limit]
	}
	return cases
}

// rowScore reads the first present score-like field, defaulting to 0.
func rowScore(row map[string]any) float64 {
	for _, key := range []string{"score", "similarity", "rank"} {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case float64:
			return v
		case float32:
			return float64(v)
		case int64:
			return float64(v)
		case int32:
			return float64(v)
		case pgtype.Numeric:
			if f, err := v.Float64Value(); err == nil && f.Valid {
				return f.Float64
			}
		}
	}
	return 0
}

// rowString reads the first present string-like field from the row.
func rowString(row map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if v != "" {
				return v
			}
		case time.Time:
			return v.Format("2006-01-02")
		}
	}
	return ""
}

// formatVector renders an embedding as a pgvector literal.
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, 0, len(embedding))
	for _, v := range embedding {
		parts = append(parts, fmt.Sprintf("%.6f", v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
