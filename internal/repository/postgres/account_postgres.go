package postgres

import (
	"context"
	"database/sql"
	"errors"

	"imgapi/internal/repository"
)

// AccountPostgres is a PostgreSQL implementation of repository.AccountRepository.
type AccountPostgres struct {
	db *sql.DB
}

// NewAccountPostgres creates a new AccountPostgres repository.
func NewAccountPostgres(db *sql.DB) *AccountPostgres {
	return &AccountPostgres{db: db}
}

var _ repository.AccountRepository = (*AccountPostgres)(nil)

// Exists reports whether an account row with the given id is present.
func (r *AccountPostgres) Exists(ctx context.Context, accountID string) (bool, error) {
	const q = `SELECT 1 FROM account WHERE account_id = $1`
	var one int
	if err := r.db.QueryRowContext(ctx, q, accountID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
