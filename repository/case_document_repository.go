package repository

import (
	"context"
	"errors"
	"fmt"

	"jurislens-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCaseNotFound means no document row exists for the requested ECLI.
var ErrCaseNotFound = errors.New("case not found")

// CaseDocumentRepository handles metadata lookups in the documents table.
type CaseDocumentRepository struct {
	db    *pgxpool.Pool
	table string
}

// NewCaseDocumentRepository creates a new case document repository. The
// table name is deployment-configured (RAG_DOCS_TABLE).
func NewCaseDocumentRepository(db *pgxpool.Pool, table string) *CaseDocumentRepository {
	if table == "" {
		table = "documents"
	}
	return &CaseDocumentRepository{db: db, table: table}
}

// GetByECLI loads the stored metadata for one decision.
func (r *CaseDocumentRepository) GetByECLI(ctx context.Context, ecli string) (*models.CaseDocument, error) {
	query := fmt.Sprintf(`
		SELECT
			ecli,
			COALESCE(title, ''),
			COALESCE(court, ''),
			COALESCE(decision_date::text, ''),
			COALESCE(publication_date::text, ''),
			COALESCE(inhoudsindicatie, ''),
			full_text,
			COALESCE(deeplink, ''),
			raw_xml
		FROM %s
		WHERE ecli = $1`, r.table)

	var doc models.CaseDocument
	err := r.db.QueryRow(ctx, query, ecli).Scan(
		&doc.ECLI,
		&doc.Title,
		&doc.Court,
		&doc.DecisionDate,
		&doc.PublicationDate,
		&doc.Summary,
		&doc.FullText,
		&doc.Deeplink,
		&doc.RawXML,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query case document: %w", err)
	}
	return &doc, nil
}

// ListECLIs returns the identifiers of all stored decisions, used by the
// archive tool to walk the corpus.
func (r *CaseDocumentRepository) ListECLIs(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT ecli FROM %s ORDER BY ecli`, r.table)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list eclis: %w", err)
	}
	defer rows.Close()

	var eclis []string
	for rows.Next() {
		var ecli string
		if err := rows.Scan(&ecli); err != nil {
			return nil, fmt.Errorf("failed to scan ecli: %w", err)
		}
		eclis = append(eclis, ecli)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating eclis: %w", err)
	}
	return eclis, nil
}
