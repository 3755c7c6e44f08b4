package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/tasklist-api/internal/model"
)

const userColumns = `id, username, email, given_name, family_name, created_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (model.User, error) {
	return r.findOne(ctx, "username = $1", username)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx, "email = $1", email)
}

// Create inserts a new user. A duplicate username or email yields ErrorConflict.
func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, username, email, given_name, family_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		u.ID, u.Username, u.Email, u.GivenName, u.FamilyName,
	)
	created, err := scanUser(row)
	return created, mapError(err)
}

func (r *UserRepo) findOne(ctx context.Context, where string, arg any) (model.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	return u, mapError(err)
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.GivenName, &u.FamilyName, &u.CreatedAt)
	return u, err
}
