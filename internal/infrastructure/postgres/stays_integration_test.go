//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/hearthshare/stay-service/internal/domain"
	"github.com/hearthshare/stay-service/internal/infrastructure/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (*postgres.StayRepository, *pgxpool.Pool) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)

	_, err = pool.Exec(context.Background(), "TRUNCATE TABLE stays, users, outbox RESTART IDENTITY CASCADE")
	require.NoError(t, err)

	return postgres.NewStayRepository(pool), pool
}

func TestStayRepository_CreateAndReadBack(t *testing.T) {
	repo, pool := setupRepo(t)
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	date := domain.Date{Y: 2017, M: 1, D: 14}
	err := repo.CreateStay(ctx, "trace-1", date, domain.NewStay{
		UserID: "dolores@example.com",
		IsHost: true,
	})
	require.NoError(t, err)

	stays, err := repo.GetStays(ctx, domain.StayQuery{Y: 2017, M: 1, D: 14})
	require.NoError(t, err)
	require.Len(t, stays, 1)
	assert.Equal(t, domain.DateInt(20170114), stays[0].StayDate)
	assert.Equal(t, "dolores@example.com", stays[0].UserID)
	assert.Nil(t, stays[0].HostID)
	assert.True(t, stays[0].IsHost)
	assert.False(t, stays[0].DateCreated.IsZero())

	// The write and its stay.created outbox row commit together.
	var count int
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT count(*) FROM outbox WHERE routing_key='stay.created' AND trace_id='trace-1'").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestStayRepository_DuplicatesPermitted(t *testing.T) {
	repo, pool := setupRepo(t)
	defer pool.Close()

	ctx := context.Background()
	date := domain.Date{Y: 2017, M: 1, D: 14}

	require.NoError(t, repo.CreateStay(ctx, "t1", date, domain.NewStay{UserID: "dolores@example.com", IsHost: true}))
	require.NoError(t, repo.CreateStay(ctx, "t2", date, domain.NewStay{UserID: "dolores@example.com", IsHost: true}))

	stays, err := repo.GetStays(ctx, domain.StayQuery{Y: 2017, M: 1, D: 14, UserID: "dolores@example.com"})
	require.NoError(t, err)
	assert.Len(t, stays, 2)
}

func TestStayRepository_RangeQueries(t *testing.T) {
	repo, pool := setupRepo(t)
	defer pool.Close()

	ctx := context.Background()
	host := domain.NewStay{UserID: "dolores@example.com", IsHost: true}

	require.NoError(t, repo.CreateStay(ctx, "t1", domain.Date{Y: 2016, M: 12, D: 31}, host))
	require.NoError(t, repo.CreateStay(ctx, "t2", domain.Date{Y: 2017, M: 1, D: 1}, host))
	require.NoError(t, repo.CreateStay(ctx, "t3", domain.Date{Y: 2017, M: 1, D: 14}, host))
	require.NoError(t, repo.CreateStay(ctx, "t4", domain.Date{Y: 2017, M: 2, D: 1}, host))

	t.Run("year and month", func(t *testing.T) {
		stays, err := repo.GetStays(ctx, domain.StayQuery{Y: 2017, M: 1})
		require.NoError(t, err)
		require.Len(t, stays, 2)
		assert.Equal(t, domain.DateInt(20170101), stays[0].StayDate)
		assert.Equal(t, domain.DateInt(20170114), stays[1].StayDate)
	})

	t.Run("december does not bleed into january", func(t *testing.T) {
		stays, err := repo.GetStays(ctx, domain.StayQuery{Y: 2016, M: 12})
		require.NoError(t, err)
		require.Len(t, stays, 1)
		assert.Equal(t, domain.DateInt(20161231), stays[0].StayDate)
	})

	t.Run("whole year", func(t *testing.T) {
		stays, err := repo.GetStays(ctx, domain.StayQuery{Y: 2017})
		require.NoError(t, err)
		assert.Len(t, stays, 3)
	})

	t.Run("no filter is an error", func(t *testing.T) {
		_, err := repo.GetStays(ctx, domain.StayQuery{})
		require.Error(t, err)
	})
}

func TestStayRepository_CountHostGuestNights_StrictlyBefore(t *testing.T) {
	repo, pool := setupRepo(t)
	defer pool.Close()

	ctx := context.Background()
	hostID := "dolores@example.com"
	guest := domain.NewStay{UserID: "william@example.com", HostID: &hostID, IsHost: false}

	require.NoError(t, repo.CreateStay(ctx, "t1", domain.Date{Y: 2017, M: 1, D: 10}, guest))
	require.NoError(t, repo.CreateStay(ctx, "t2", domain.Date{Y: 2017, M: 1, D: 12}, guest))
	// same day and later never count
	require.NoError(t, repo.CreateStay(ctx, "t3", domain.Date{Y: 2017, M: 1, D: 14}, guest))
	require.NoError(t, repo.CreateStay(ctx, "t4", domain.Date{Y: 2017, M: 1, D: 20}, guest))
	// a host's own stay never counts
	require.NoError(t, repo.CreateStay(ctx, "t5", domain.Date{Y: 2017, M: 1, D: 10}, domain.NewStay{UserID: hostID, IsHost: true}))

	n, err := repo.CountHostGuestNights(ctx, hostID, domain.Date{Y: 2017, M: 1, D: 14})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.CountHostGuestNights(ctx, "bernard@example.com", domain.Date{Y: 2017, M: 1, D: 14})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUserDirectory_GetUser(t *testing.T) {
	_, pool := setupRepo(t)
	defer pool.Close()

	ctx := context.Background()
	dir := postgres.NewUserDirectory(pool)

	_, err := pool.Exec(ctx, `
		INSERT INTO users (user_id, name, is_host, is_admin)
		VALUES ('dolores@example.com', 'Dolores', TRUE, FALSE)
	`)
	require.NoError(t, err)

	u, err := dir.GetUser(ctx, "dolores@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Dolores", u.Name)
	assert.True(t, u.IsHost)

	_, err = dir.GetUser(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
