package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const snapshotTable = "session_snapshots"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DBTX is the subset of *pgxpool.Pool used by PostgresStorage.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStorage keeps snapshots in the session_snapshots table so they
// survive restarts and are shared between portal replicas.
type PostgresStorage struct {
	db  DBTX
	ttl time.Duration
	now func() time.Time
}

func NewPostgresStorage(db DBTX, ttl time.Duration) *PostgresStorage {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &PostgresStorage{db: db, ttl: ttl, now: time.Now}
}

func (p *PostgresStorage) Load(ctx context.Context, key string) (string, bool, error) {
	query, args, err := psql.Select("payload").
		From(snapshotTable).
		Where(sq.Eq{"storage_key": key}).
		Where("expires_at > now()").
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build snapshot query: %w", err)
	}

	var payload string
	err = p.db.QueryRow(ctx, query, args...).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load snapshot: %w", err)
	}
	return payload, true, nil
}

func (p *PostgresStorage) Save(ctx context.Context, key, payload string) error {
	query, args, err := psql.Insert(snapshotTable).
		Columns("storage_key", "payload", "expires_at").
		Values(key, payload, p.now().Add(p.ttl).UTC()).
		Suffix("ON CONFLICT (storage_key) DO UPDATE SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at, updated_at = now()").
		ToSql()
	if err != nil {
		return fmt.Errorf("build snapshot upsert: %w", err)
	}
	if _, err := p.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Delete(ctx context.Context, key string) error {
	query, args, err := psql.Delete(snapshotTable).
		Where(sq.Eq{"storage_key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build snapshot delete: %w", err)
	}
	if _, err := p.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
