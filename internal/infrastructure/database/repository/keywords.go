package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"callguard/internal/infrastructure/database"
)

// KeywordRepository reads and maintains the scam keyword list in Postgres.
// It satisfies ai.KeywordSource.
type KeywordRepository struct {
	db database.DBTX
}

// NewKeywordRepository creates a new keyword repository
func NewKeywordRepository(db database.DBTX) *KeywordRepository {
	return &KeywordRepository{db: db}
}

const keywordsSchema = `
	CREATE TABLE IF NOT EXISTS scam_keywords (
		phrase     TEXT PRIMARY KEY,
		position   INTEGER NOT NULL DEFAULT 0,
		enabled    BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// EnsureSchema creates the keyword table if it does not exist
func (r *KeywordRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, keywordsSchema); err != nil {
		return fmt.Errorf("failed to create scam_keywords table: %w", err)
	}
	return nil
}

// LoadKeywords returns enabled phrases in list order
func (r *KeywordRepository) LoadKeywords(ctx context.Context) ([]string, error) {
	query := `
		SELECT phrase
		FROM scam_keywords
		WHERE enabled
		ORDER BY position, phrase`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	defer rows.Close()

	var phrases []string
	for rows.Next() {
		var phrase string
		if err := rows.Scan(&phrase); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		phrases = append(phrases, phrase)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keywords: %w", err)
	}

	return phrases, nil
}

// Replace swaps the stored list for phrases, keeping their order. Blank
// entries are skipped and the rest stored lowercase.
func (r *KeywordRepository) Replace(ctx context.Context, phrases []string) (int, error) {
	if _, err := r.db.Exec(ctx, `DELETE FROM scam_keywords`); err != nil {
		return 0, fmt.Errorf("failed to clear keywords: %w", err)
	}

	query := `
		INSERT INTO scam_keywords (phrase, position, enabled)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (phrase) DO NOTHING`

	n := 0
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, err := r.db.Exec(ctx, query, p, n); err != nil {
			return n, fmt.Errorf("failed to insert keyword %q: %w", p, err)
		}
		n++
	}
	return n, nil
}

// SeedKeywords replaces the keyword table contents in one transaction
func SeedKeywords(ctx context.Context, db *database.PostgresDB, phrases []string) (int, error) {
	var n int
	err := db.WithTx(ctx, func(tx pgx.Tx) error {
		repo := NewKeywordRepository(tx)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		var err error
		n, err = repo.Replace(ctx, phrases)
		return err
	})
	return n, err
}
