// Package memory provides a map-backed UserRepository with the same
// contract as the Postgres one. It backs the service tests and the
// -store=memory mode of the console client.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oksasatya/user-registry/internal/domain/apperror"
	"github.com/oksasatya/user-registry/internal/domain/entity"
	"github.com/oksasatya/user-registry/internal/domain/repository"
)

// UserRepository is safe for concurrent use. Email uniqueness is enforced
// under the write lock, mirroring the unique index of the SQL schema.
type UserRepository struct {
	mu      sync.RWMutex
	users   map[int64]*entity.User
	byEmail map[string]int64
	nextID  int64
	now     func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[int64]*entity.User),
		byEmail: make(map[string]int64),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *UserRepository) Save(ctx context.Context, u *entity.User) (int64, error) {
	const op = "memory.user.save"
	if err := ctx.Err(); err != nil {
		return 0, apperror.Wrap(apperror.KindPersistenceFailure, op, "context done", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[u.Email]; taken {
		return 0, apperror.New(apperror.KindDuplicateEmail, op, "email already registered")
	}
	r.nextID++
	stored := u.Clone()
	stored.ID = r.nextID
	stored.CreatedAt = r.now()
	r.users[stored.ID] = stored
	r.byEmail[stored.Email] = stored.ID

	u.ID = stored.ID
	u.CreatedAt = stored.CreatedAt
	return stored.ID, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Wrap(apperror.KindPersistenceFailure, "memory.user.find_by_id", "context done", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[id].Clone(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Wrap(apperror.KindPersistenceFailure, "memory.user.find_by_email", "context done", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	return r.users[id].Clone(), nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Wrap(apperror.KindPersistenceFailure, "memory.user.find_all", "context done", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	const op = "memory.user.update"
	if err := ctx.Err(); err != nil {
		return apperror.Wrap(apperror.KindPersistenceFailure, op, "context done", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.users[u.ID]
	if !ok {
		return apperror.New(apperror.KindPersistenceFailure, op, fmt.Sprintf("user %d no longer exists", u.ID))
	}
	if owner, taken := r.byEmail[u.Email]; taken && owner != u.ID {
		return apperror.New(apperror.KindDuplicateEmail, op, "email already registered")
	}
	delete(r.byEmail, cur.Email)
	cur.Name = u.Name
	cur.Email = u.Email
	cur.Age = u.Age
	r.byEmail[cur.Email] = cur.ID
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperror.Wrap(apperror.KindPersistenceFailure, "memory.user.delete", "context done", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return false, nil
	}
	delete(r.users, id)
	delete(r.byEmail, u.Email)
	return true, nil
}

// Len reports the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

var _ repository.UserRepository = (*UserRepository)(nil)
