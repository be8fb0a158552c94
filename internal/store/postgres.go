package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortener-go/internal/shortener"
)

// undefinedTable is the SQLSTATE raised when a namespace's tables are missing.
const undefinedTable = "42P01"

// PostgresStore is a PostgreSQL implementation of shortener.Repository.
// Every namespace owns a pair of tables: <ns>_shortened_urls and <ns>_audit.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed URL store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

type tableNames struct {
	urls      string
	audit     string
	codeIndex string
}

func tablesFor(ns string) tableNames {
	return tableNames{
		urls:      pgx.Identifier{ns + "_shortened_urls"}.Sanitize(),
		audit:     pgx.Identifier{ns + "_audit"}.Sanitize(),
		codeIndex: pgx.Identifier{ns + "_short_url_idx"}.Sanitize(),
	}
}

func (p *PostgresStore) CreateNamespace(ctx context.Context, ns string) (bool, error) {
	t := tablesFor(ns)

	var exists bool
	if err := p.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, t.urls).Scan(&exists); err != nil {
		return false, fmt.Errorf("check namespace %q: %w", ns, err)
	}

	if exists {
		return false, nil
	}

	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id          BIGSERIAL PRIMARY KEY,
				domain      VARCHAR(255) NOT NULL,
				user_token  VARCHAR(255) NOT NULL,
				hash        CHAR(32)     NOT NULL,
				short_url   VARCHAR(255),
				long_url    TEXT         NOT NULL,
				created_at  TIMESTAMPTZ  NOT NULL,
				UNIQUE (domain, user_token, hash)
			)`, t.urls),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (short_url)`, t.codeIndex, t.urls),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				url_id BIGINT PRIMARY KEY REFERENCES %s (id) ON DELETE CASCADE,
				hits   BIGINT NOT NULL DEFAULT 0
			)`, t.audit, t.urls),
	}

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("create namespace %q: %w", ns, err)
	}

	return true, nil
}

func (p *PostgresStore) GetOrCreate(
	ctx context.Context, ns string, candidate *shortener.ShortURL,
) (*shortener.ShortURL, bool, error) {
	t := tablesFor(ns)

	insertURL := fmt.Sprintf(`
		INSERT INTO %s (domain, user_token, hash, long_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (domain, user_token, hash) DO NOTHING
		RETURNING id
	`, t.urls)
	insertAudit := fmt.Sprintf(`INSERT INTO %s (url_id, hits) VALUES ($1, 0) ON CONFLICT (url_id) DO NOTHING`, t.audit)

	created := false

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var id int64

		err := tx.QueryRow(ctx, insertURL,
			candidate.Domain,
			candidate.UserToken,
			string(candidate.Hash),
			candidate.LongURL,
			candidate.CreatedAt,
		).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			// Another writer owns the row; it is read back below.
			return nil
		}

		if err != nil {
			return err
		}

		created = true
		_, err = tx.Exec(ctx, insertAudit, id)

		return err
	})
	if err != nil {
		return nil, false, translate(ns, err)
	}

	query := fmt.Sprintf(`
		SELECT id, domain, user_token, hash, short_url, long_url, created_at
		FROM %s
		WHERE domain = $1 AND user_token = $2 AND hash = $3
	`, t.urls)

	row, err := scanShortURL(p.pool.QueryRow(ctx, query,
		candidate.Domain, candidate.UserToken, string(candidate.Hash),
	))
	if err != nil {
		return nil, false, translate(ns, err)
	}

	return row, created, nil
}

func (p *PostgresStore) AssignCode(ctx context.Context, ns string, id int64, code shortener.Code) error {
	urls := tablesFor(ns).urls
	query := fmt.Sprintf(
		`UPDATE %s SET short_url = $2 WHERE id = $1 AND (short_url IS NULL OR short_url = $2)`, urls)

	tag, err := p.pool.Exec(ctx, query, id, string(code))
	if err != nil {
		return translate(ns, err)
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing matched: either the row is missing or it carries another code.
	var exists bool
	if err = p.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, urls), id,
	).Scan(&exists); err != nil {
		return translate(ns, err)
	}

	if !exists {
		return shortener.ErrNotFound
	}

	return shortener.ErrCodeAssigned
}

func (p *PostgresStore) GetByCode(ctx context.Context, ns string, code shortener.Code) (*shortener.ShortURL, error) {
	query := fmt.Sprintf(`
		SELECT id, domain, user_token, hash, short_url, long_url, created_at
		FROM %s
		WHERE short_url = $1
	`, tablesFor(ns).urls)

	row, err := scanShortURL(p.pool.QueryRow(ctx, query, string(code)))
	if err != nil {
		return nil, translate(ns, err)
	}

	return row, nil
}

func (p *PostgresStore) IncrementHits(ctx context.Context, ns string, id int64) error {
	t := tablesFor(ns)

	// Upsert so a missing audit row is created on first resolution.
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (url_id, hits) VALUES ($1, 1)
		ON CONFLICT (url_id) DO UPDATE SET hits = %[1]s.hits + 1
	`, t.audit)

	if _, err := p.pool.Exec(ctx, query, id); err != nil {
		return translate(ns, err)
	}

	return nil
}

func (p *PostgresStore) GetAudit(ctx context.Context, ns string, id int64) (*shortener.Audit, error) {
	query := fmt.Sprintf(`SELECT url_id, hits FROM %s WHERE url_id = $1`, tablesFor(ns).audit)

	var audit shortener.Audit
	if err := p.pool.QueryRow(ctx, query, id).Scan(&audit.URLID, &audit.Hits); err != nil {
		return nil, translate(ns, err)
	}

	return &audit, nil
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func scanShortURL(row pgx.Row) (*shortener.ShortURL, error) {
	var (
		url  shortener.ShortURL
		hash string
		code *string
	)

	err := row.Scan(
		&url.ID,
		&url.Domain,
		&url.UserToken,
		&hash,
		&code,
		&url.LongURL,
		&url.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	url.Hash = shortener.ContentHash(hash)
	if code != nil {
		url.Code = shortener.Code(*code)
	}

	return &url, nil
}

// translate maps driver errors onto the repository contract.
func translate(ns string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shortener.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return &shortener.NamespaceError{Namespace: ns}
	}

	return err
}

// Compile-time check.
var _ shortener.Repository = (*PostgresStore)(nil)
