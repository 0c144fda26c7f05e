package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-registry/internal/domain/apperror"
	"github.com/oksasatya/user-registry/internal/domain/entity"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	poolOnce sync.Once
	testPool *pgxpool.Pool
	poolErr  error
)

// testDB returns a pool against TEST_POSTGRES_DSN with an empty users table.
func testDB(tb testing.TB) *pgxpool.Pool {
	tb.Helper()
	poolOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			poolErr = errMissingDSN
			return
		}
		testPool, poolErr = NewPool(context.Background(), dsn, PoolOptions{MaxConns: 8})
		if poolErr != nil {
			return
		}
		schema, err := os.ReadFile("../../../db/migrations/000001_create_users_table.up.sql")
		if err != nil {
			poolErr = err
			return
		}
		_, poolErr = testPool.Exec(context.Background(), string(schema))
	})
	if errors.Is(poolErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run repository integration tests")
	}
	if poolErr != nil {
		tb.Fatalf("failed to init test db: %v", poolErr)
	}
	_, err := testPool.Exec(context.Background(), `TRUNCATE users RESTART IDENTITY`)
	require.NoError(tb, err)
	return testPool
}

func countUsers(tb testing.TB, pool *pgxpool.Pool) int {
	tb.Helper()
	var n int
	require.NoError(tb, pool.QueryRow(context.Background(), `SELECT count(*) FROM users`).Scan(&n))
	return n
}

func TestUserRepository_SaveAndFind(t *testing.T) {
	pool := testDB(t)
	repo := NewUserRepository(pool, time.Second)
	ctx := context.Background()

	u := &entity.User{Name: "Leon", Email: "leon@example.com", Age: 24}
	id, err := repo.Save(ctx, u)
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, id, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Leon", got.Name)
	assert.Equal(t, "leon@example.com", got.Email)
	assert.Equal(t, 24, got.Age)
	assert.WithinDuration(t, u.CreatedAt, got.CreatedAt, time.Millisecond)

	byEmail, err := repo.FindByEmail(ctx, "leon@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, id, byEmail.ID)

	// exact, case-sensitive match
	miss, err := repo.FindByEmail(ctx, "LEON@example.com")
	require.NoError(t, err)
	assert.Nil(t, miss)

	missing, err := repo.FindByID(ctx, id+1000)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_FindAll(t *testing.T) {
	pool := testDB(t)
	repo := NewUserRepository(pool, time.Second)
	ctx := context.Background()

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.NotNil(t, all)
	assert.Empty(t, all)

	for i := 0; i < 3; i++ {
		_, err := repo.Save(ctx, &entity.User{Name: "U", Email: fmt.Sprintf("u%d@example.com", i), Age: i})
		require.NoError(t, err)
	}
	all, err = repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Less(t, all[0].ID, all[1].ID)
	assert.Less(t, all[1].ID, all[2].ID)
}

func TestUserRepository_DuplicateEmailConstraint(t *testing.T) {
	pool := testDB(t)
	repo := NewUserRepository(pool, time.Second)
	ctx := context.Background()

	_, err := repo.Save(ctx, &entity.User{Name: "A", Email: "dup@example.com", Age: 1})
	require.NoError(t, err)

	u := &entity.User{Name: "B", Email: "dup@example.com", Age: 2}
	_, err = repo.Save(ctx, u)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindDuplicateEmail))
	assert.Zero(t, u.ID)
	assert.Equal(t, 1, countUsers(t, pool))
}

func TestUserRepository_Update(t *testing.T) {
	pool := testDB(t)
	repo := NewUserRepository(pool, time.Second)
	ctx := context.Background()

	u := &entity.User{Name: "A", Email: "a@example.com", Age: 1}
	_, err := repo.Save(ctx, u)
	require.NoError(t, err)
	created := u.CreatedAt

	u.Name, u.Email, u.Age = "B", "b@example.com", 2
	require.NoError(t, repo.Update(ctx, u))

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "B", got.Name)
	assert.Equal(t, "b@example.com", got.Email)
	assert.Equal(t, 2, got.Age)
	assert.WithinDuration(t, created, got.CreatedAt, time.Millisecond)

	err = repo.Update(ctx, &entity.User{ID: u.ID + 99, Name: "X", Email: "x@example.com", Age: 3})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindPersistenceFailure))
}

func TestUserRepository_Delete(t *testing.T) {
	pool := testDB(t)
	repo := NewUserRepository(pool, time.Second)
	ctx := context.Background()

	id, err := repo.Save(ctx, &entity.User{Name: "A", Email: "a@example.com", Age: 1})
	require.NoError(t, err)

	ok, err := repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserRepository_TimeoutRollsBack(t *testing.T) {
	pool := testDB(t)
	repo := NewUserRepository(pool, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Save(ctx, &entity.User{Name: "A", Email: "a@example.com", Age: 1})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindPersistenceFailure))
	assert.Equal(t, 0, countUsers(t, pool))
}

func TestMapError(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: EmailUniqueConstraint}
	err := mapError("op", "", fmt.Errorf("exec: %w", dup))
	assert.True(t, apperror.Is(err, apperror.KindDuplicateEmail))
	assert.ErrorIs(t, err, dup)

	otherUnique := &pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"}
	assert.True(t, apperror.Is(mapError("op", "", otherUnique), apperror.KindPersistenceFailure))

	check := &pgconn.PgError{Code: "23514"}
	assert.True(t, apperror.Is(mapError("op", "", check), apperror.KindPersistenceFailure))

	timeout := mapError("op", "commit", context.DeadlineExceeded)
	assert.True(t, apperror.Is(timeout, apperror.KindPersistenceFailure))
	assert.Equal(t, "commit failed (timeout)", apperror.MessageOf(timeout))

	kept := apperror.New(apperror.KindPersistenceFailure, "inner", "gone")
	assert.Same(t, kept, mapError("op", "", kept))
}
