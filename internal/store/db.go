package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/baxromumarov/job-harvester/internal/observability"
	"github.com/baxromumarov/job-harvester/internal/postdate"
	"github.com/baxromumarov/job-harvester/internal/scraper"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func NewStore(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return NewStoreFromDB(db), nil
}

// NewStoreFromDB wraps an already opened handle.
func NewStoreFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RunMigrations applies the embedded schema, or the file at schemaPath when
// one is given.
func (s *Store) RunMigrations(ctx context.Context, schemaPath string) error {
	content := schemaSQL
	if schemaPath != "" {
		b, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		content = string(b)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, content); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

func clampLimit(limit int, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

type Record struct {
	scraper.JobRecord
	ExtractedAt time.Time `json:"extracted at"`
}

func (s *Store) WriteLink(ctx context.Context, link scraper.JobLink) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO job_links (url) VALUES ($1)
ON CONFLICT (url) DO NOTHING
`, string(link))
	if err != nil {
		observability.IncError(observability.ErrorStore, observability.ComponentStore)
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

// WriteRecord upserts by link; a later extraction replaces an earlier one.
func (s *Store) WriteRecord(ctx context.Context, rec scraper.JobRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO job_records (link, company_name, company_link, description, posted_date)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (link) DO UPDATE SET
    company_name = EXCLUDED.company_name,
    company_link = EXCLUDED.company_link,
    description  = EXCLUDED.description,
    posted_date  = EXCLUDED.posted_date,
    extracted_at = NOW()
`,
		string(rec.Link),
		nullString(rec.CompanyName),
		nullString(rec.CompanyLink),
		rec.Description,
		rec.PostedDate,
	)
	if err != nil {
		observability.IncError(observability.ErrorStore, observability.ComponentStore)
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func (s *Store) ListRecords(ctx context.Context, limit, offset int) ([]Record, int, error) {
	limit = clampLimit(limit, 20, 200)
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_records`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT
    link,
    COALESCE(company_name, ''),
    COALESCE(company_link, ''),
    description,
    posted_date,
    extracted_at
FROM job_records
ORDER BY extracted_at DESC, link
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r      Record
			link   string
			posted sql.NullTime
		)
		if err := rows.Scan(&link, &r.CompanyName, &r.CompanyLink, &r.Description, &posted, &r.ExtractedAt); err != nil {
			return nil, 0, fmt.Errorf("scan record: %w", err)
		}
		r.Link = scraper.JobLink(link)
		if posted.Valid {
			r.PostedDate = postdate.DateOf(posted.Time)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (s *Store) CountLinks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_links`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count links: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
