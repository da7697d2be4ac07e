package repository

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evep-health/evep/internal/entity"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, role, organization_id, password_hash, is_blocked, created_at, updated_at`

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (entity.UserAccount, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	return r.scanAccount(r.db.QueryRow(ctx, q, email))
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (entity.UserAccount, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return r.scanAccount(r.db.QueryRow(ctx, q, id))
}

func (r *UserRepository) scanAccount(row pgx.Row) (entity.UserAccount, error) {
	var account entity.UserAccount

	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.FirstName,
		&account.LastName,
		&account.Role,
		&account.OrganizationID,
		&account.PasswordHash,
		&account.IsBlocked,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.UserAccount{}, entity.ErrNotFound
		}

		return entity.UserAccount{}, err
	}

	return account, nil
}
