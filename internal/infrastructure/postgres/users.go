package postgres

import (
	"context"
	"errors"

	"github.com/hearthshare/stay-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserDirectory reads household members. Provisioning lives elsewhere; this
// service only ever looks users up.
type UserDirectory struct {
	pool *pgxpool.Pool
}

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

func (d *UserDirectory) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var u domain.User
	err := d.pool.QueryRow(ctx, `
		SELECT user_id, name, is_host, is_admin
		FROM users
		WHERE user_id = $1
	`, userID).Scan(&u.UserID, &u.Name, &u.IsHost, &u.IsAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}
