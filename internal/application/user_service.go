package application

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-registry/internal/domain/apperror"
	"github.com/oksasatya/user-registry/internal/domain/entity"
	"github.com/oksasatya/user-registry/internal/domain/event"
	repo "github.com/oksasatya/user-registry/internal/domain/repository"
)

const (
	opCreate = "user.create"
	opGet    = "user.get"
	opList   = "user.list"
	opUpdate = "user.update"
	opDelete = "user.delete"

	defaultNotifyTimeout = 3 * time.Second
)

// EventNotifier receives user lifecycle events after the mutation has
// committed. Delivery is best-effort.
type EventNotifier interface {
	Publish(ctx context.Context, evt event.UserEvent) error
}

// UserInput carries the mutable user fields. Age is a pointer so a missing
// value can be told apart from zero.
type UserInput struct {
	Name  string
	Email string
	Age   *int
}

type Service struct {
	Repo          repo.UserRepository
	Notifier      EventNotifier
	Logger        *logrus.Logger
	NotifyTimeout time.Duration
}

func NewService(repo repo.UserRepository, notifier EventNotifier, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Service{
		Repo:          repo,
		Notifier:      notifier,
		Logger:        logger,
		NotifyTimeout: defaultNotifyTimeout,
	}
}

// CreateUser validates the input, rejects an email that is already taken and
// persists a new user. The Created event is published after the commit.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (int64, error) {
	log := s.Logger.WithField("op", opCreate)
	log.WithFields(logrus.Fields{"name": in.Name, "email": in.Email}).Debug("create user requested")

	if err := entity.ValidateUser(in.Name, in.Email, in.Age); err != nil {
		log.WithError(err).Debug("create user rejected")
		return 0, err
	}
	name, email := strings.TrimSpace(in.Name), strings.TrimSpace(in.Email)

	existing, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		log.WithError(err).Error("lookup by email failed")
		return 0, err
	}
	if existing != nil {
		log.WithField("email", email).Warn("email already in use")
		return 0, duplicateEmail(opCreate, email)
	}

	u := &entity.User{Name: name, Email: email, Age: *in.Age}
	id, err := s.Repo.Save(ctx, u)
	if err != nil {
		if apperror.Is(err, apperror.KindDuplicateEmail) {
			// lost the race against a concurrent writer; the unique index caught it
			log.WithField("email", email).Warn("email taken by concurrent create")
			return 0, duplicateEmail(opCreate, email)
		}
		log.WithError(err).Error("save user failed")
		return 0, err
	}

	s.notify(ctx, event.Created(id, email, name))
	log.WithFields(logrus.Fields{"user_id": id, "email": email}).Info("user created")
	return id, nil
}

// GetUser returns the user with id, or nil when there is none.
func (s *Service) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	if err := checkID(opGet, id); err != nil {
		s.Logger.WithField("op", opGet).WithField("user_id", id).Warn("invalid user id")
		return nil, err
	}
	s.Logger.WithField("op", opGet).WithField("user_id", id).Debug("get user requested")
	return s.Repo.FindByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]*entity.User, error) {
	users, err := s.Repo.FindAll(ctx)
	if err != nil {
		s.Logger.WithField("op", opList).WithError(err).Error("list users failed")
		return nil, err
	}
	s.Logger.WithField("op", opList).WithField("count", len(users)).Debug("users listed")
	return users, nil
}

// UpdateUser replaces name, email and age of an existing user. The
// uniqueness lookup only runs when the email actually changes.
func (s *Service) UpdateUser(ctx context.Context, id int64, in UserInput) error {
	log := s.Logger.WithField("op", opUpdate).WithField("user_id", id)

	if err := checkID(opUpdate, id); err != nil {
		log.Warn("invalid user id")
		return err
	}
	if err := entity.ValidateUser(in.Name, in.Email, in.Age); err != nil {
		log.WithError(err).Debug("update user rejected")
		return err
	}
	name, email := strings.TrimSpace(in.Name), strings.TrimSpace(in.Email)

	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		log.WithError(err).Error("load user failed")
		return err
	}
	if u == nil {
		log.Warn("user to update not found")
		return apperror.New(apperror.KindNotFound, opUpdate, fmt.Sprintf("user with id %d not found", id))
	}

	if u.Email != email {
		other, err := s.Repo.FindByEmail(ctx, email)
		if err != nil {
			log.WithError(err).Error("lookup by email failed")
			return err
		}
		if other != nil {
			log.WithField("email", email).Warn("email already in use")
			return duplicateEmail(opUpdate, email)
		}
	}

	u.Name = name
	u.Email = email
	u.Age = *in.Age
	if err := s.Repo.Update(ctx, u); err != nil {
		if apperror.Is(err, apperror.KindDuplicateEmail) {
			log.WithField("email", email).Warn("email taken by concurrent write")
			return duplicateEmail(opUpdate, email)
		}
		log.WithError(err).Error("update user failed")
		return err
	}
	log.Info("user updated")
	return nil
}

// DeleteUser removes the user and reports whether it existed. Deleting a
// missing user is not an error.
func (s *Service) DeleteUser(ctx context.Context, id int64) (bool, error) {
	log := s.Logger.WithField("op", opDelete).WithField("user_id", id)

	if err := checkID(opDelete, id); err != nil {
		log.Warn("invalid user id")
		return false, err
	}
	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		log.WithError(err).Error("load user failed")
		return false, err
	}
	if u == nil {
		log.Warn("user to delete not found")
		return false, nil
	}

	deleted, err := s.Repo.Delete(ctx, id)
	if err != nil {
		log.WithError(err).Error("delete user failed")
		return false, err
	}
	if !deleted {
		log.Info("user already removed by a concurrent delete")
		return false, nil
	}

	s.notify(ctx, event.Deleted(id, u.Email, u.Name))
	log.WithField("email", u.Email).Info("user deleted")
	return true, nil
}

// notify publishes evt detached from the caller's cancellation. Failures are
// logged and dropped; the mutation has already committed.
func (s *Service) notify(ctx context.Context, evt event.UserEvent) {
	if s.Notifier == nil {
		return
	}
	timeout := s.NotifyTimeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := s.Notifier.Publish(c, evt); err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"event":   evt.Type,
			"user_id": evt.UserID,
			"email":   evt.Email,
		}).Error("publish user event failed")
	}
}

func checkID(op string, id int64) error {
	if id <= 0 {
		return apperror.New(apperror.KindInvalidArgument, op, "id must be a positive integer")
	}
	return nil
}

func duplicateEmail(op, email string) error {
	return apperror.New(apperror.KindDuplicateEmail, op, fmt.Sprintf("user with email '%s' already exists", email))
}
