package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/user-registry/internal/domain/apperror"
	"github.com/oksasatya/user-registry/internal/domain/entity"
	"github.com/oksasatya/user-registry/internal/domain/repository"
)

const (
	// EmailUniqueConstraint is the constraint name created by the users migration.
	EmailUniqueConstraint = "users_email_key"

	uniqueViolationCode = "23505"

	defaultOpTimeout = 5 * time.Second
	rollbackTimeout  = 2 * time.Second
)

type UserRepository struct {
	pool      *pgxpool.Pool
	opTimeout time.Duration
}

// NewUserRepository returns a repository that bounds every call by
// opTimeout on top of the caller's context.
func NewUserRepository(pool *pgxpool.Pool, opTimeout time.Duration) *UserRepository {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &UserRepository{pool: pool, opTimeout: opTimeout}
}

var (
	readOnly  = pgx.TxOptions{AccessMode: pgx.ReadOnly}
	readWrite = pgx.TxOptions{AccessMode: pgx.ReadWrite}
)

// inTx runs fn inside a fresh transaction. The transaction is committed when
// fn returns nil and rolled back on every other path, including deadline
// expiry.
func (r *UserRepository) inTx(ctx context.Context, op string, opts pgx.TxOptions, fn func(context.Context, pgx.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		return mapError(op, "begin transaction", err)
	}
	defer func() {
		// the op context may already be expired; rollback still has to reach the server
		rctx, rcancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer rcancel()
		_ = tx.Rollback(rctx)
	}()

	if err := fn(ctx, tx); err != nil {
		return mapError(op, "", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(op, "commit", err)
	}
	return nil
}

func (r *UserRepository) Save(ctx context.Context, u *entity.User) (int64, error) {
	var (
		id        int64
		createdAt time.Time
	)
	err := r.inTx(ctx, "postgres.user.save", readWrite, func(ctx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO users (name, email, age)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, u.Name, u.Email, u.Age).Scan(&id, &createdAt)
	})
	if err != nil {
		return 0, err
	}
	u.ID = id
	u.CreatedAt = createdAt
	return id, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	var u *entity.User
	err := r.inTx(ctx, "postgres.user.find_by_id", readOnly, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		u, err = scanUser(tx.QueryRow(ctx, `
			SELECT id, name, email, age, created_at
			FROM users
			WHERE id = $1
		`, id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u *entity.User
	err := r.inTx(ctx, "postgres.user.find_by_email", readOnly, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		u, err = scanUser(tx.QueryRow(ctx, `
			SELECT id, name, email, age, created_at
			FROM users
			WHERE email = $1
		`, email))
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	out := make([]*entity.User, 0)
	err := r.inTx(ctx, "postgres.user.find_all", readOnly, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, name, email, age, created_at
			FROM users
			ORDER BY id
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u := &entity.User{}
			if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Age, &u.CreatedAt); err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	const op = "postgres.user.update"
	return r.inTx(ctx, op, readWrite, func(ctx context.Context, tx pgx.Tx) error {
		res, err := tx.Exec(ctx, `
			UPDATE users
			SET name = $1, email = $2, age = $3
			WHERE id = $4
		`, u.Name, u.Email, u.Age, u.ID)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return apperror.New(apperror.KindPersistenceFailure, op, fmt.Sprintf("user %d no longer exists", u.ID))
		}
		return nil
	})
}

func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := r.inTx(ctx, "postgres.user.delete", readWrite, func(ctx context.Context, tx pgx.Tx) error {
		res, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		deleted = res.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Age, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// mapError converts driver errors into apperror kinds. Errors that already
// carry a kind pass through untouched.
func mapError(op, stage string, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	if isUniqueViolation(err, EmailUniqueConstraint) {
		return apperror.Wrap(apperror.KindDuplicateEmail, op, "email already registered", err)
	}
	msg := "database operation failed"
	if stage != "" {
		msg = stage + " failed"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		msg += " (timeout)"
	}
	return apperror.Wrap(apperror.KindPersistenceFailure, op, msg, err)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return false
	}
	if strings.TrimSpace(constraint) == "" || pgErr.ConstraintName == "" {
		return true
	}
	return strings.EqualFold(pgErr.ConstraintName, constraint)
}

var _ repository.UserRepository = (*UserRepository)(nil)
