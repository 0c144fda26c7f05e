package repository

import (
	"context"

	"github.com/oksasatya/user-registry/internal/domain/entity"
)

// UserRepository defines the persistence port for users.
//
// Every method runs in its own transaction; implementations must not share a
// transaction or connection across calls. Lookups return (nil, nil) when no
// row matches. Store failures come back as apperror.KindPersistenceFailure,
// and a store-level email uniqueness violation as apperror.KindDuplicateEmail.
type UserRepository interface {
	// Save inserts u, assigning u.ID and u.CreatedAt, and returns the new id.
	Save(ctx context.Context, u *entity.User) (int64, error)
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	// FindByEmail matches the email exactly (case-sensitive).
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// FindAll returns every user ordered by id; an empty store yields an empty slice.
	FindAll(ctx context.Context) ([]*entity.User, error)
	// Update replaces name, email and age of the row identified by u.ID.
	Update(ctx context.Context, u *entity.User) error
	// Delete removes the row and reports whether it existed.
	Delete(ctx context.Context, id int64) (bool, error)
}
