// Package records provides the PostgreSQL-backed store of registry records
// and the sequential id counter.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/dbx"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// NextID bumps the single-row counter. Inside a transaction the row stays
// locked until commit, and a rollback gives the id back.
func (r *PostgresRepository) NextID(ctx context.Context) (int64, error) {
	query :=
		`UPDATE record_counter SET last_id = last_id + 1
		 WHERE id = 1
		 RETURNING last_id
		 `

	var id int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&id); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return id, nil
}

func (r *PostgresRepository) Create(ctx context.Context, record *models.Record) error {
	query :=
		`INSERT INTO records (id, content_locator, content_digest, created_at, creator, active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 `

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.ContentLocator, record.ContentDigest[:], record.CreatedAt, record.Creator, record.Active)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Record, error) {
	query :=
		`SELECT id, content_locator, content_digest, created_at, creator, active FROM records
		 WHERE id = $1
		 `

	record := &models.Record{}
	var digest []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID, &record.ContentLocator, &digest, &record.CreatedAt, &record.Creator, &record.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if len(digest) != models.DigestLength {
		return nil, fmt.Errorf("record %d: unexpected digest length %d", id, len(digest))
	}
	copy(record.ContentDigest[:], digest)

	return record, nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE records SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) ListIDsByCreator(ctx context.Context, creator identity.Address) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM records WHERE creator = $1 ORDER BY id`, creator)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
