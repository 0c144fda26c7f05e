package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-registry/config"
	"github.com/oksasatya/user-registry/internal/application"
	"github.com/oksasatya/user-registry/internal/container"
	"github.com/oksasatya/user-registry/internal/domain/apperror"
	"github.com/oksasatya/user-registry/pkg/helpers"
)

type seedUser struct {
	name  string
	email string
	age   int
}

var users = []seedUser{
	{"Demo User", "demo@example.com", 30},
	{"Ada Lovelace", "ada@example.com", 36},
	{"Alan Turing", "alan@example.com", 41},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	if err := run(context.Background(), cfg, logger); err != nil {
		helpers.LogError(logger, "seed failed", err, nil)
		os.Exit(1)
	}
}

// run creates the demo users through the service. Existing emails are
// left untouched.
func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	c, err := container.New(ctx, cfg, logger, container.Options{SkipRedis: true})
	if err != nil {
		return err
	}
	defer c.Close()

	for _, u := range users {
		age := u.age
		id, err := c.Users.CreateUser(ctx, application.UserInput{Name: u.name, Email: u.email, Age: &age})
		switch {
		case apperror.Is(err, apperror.KindDuplicateEmail):
			logger.WithField("email", u.email).Info("already seeded")
		case err != nil:
			return fmt.Errorf("seed %s: %w", u.email, err)
		default:
			logger.WithFields(logrus.Fields{"id": id, "email": u.email}).Info("seeded user")
		}
	}
	return nil
}
