package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oksasatya/user-registry/config"
	"github.com/oksasatya/user-registry/internal/container"
	"github.com/oksasatya/user-registry/internal/interface/cli"
	"github.com/oksasatya/user-registry/pkg/helpers"
)

// errCommandFailed signals a command whose error was already printed.
var errCommandFailed = errors.New("command failed")

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, errCommandFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run executes the command given after the flags, or starts the
// interactive console when there is none.
func run(args []string) error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("usercli", flag.ContinueOnError)
	store := fs.String("store", "postgres", "backing store: postgres or memory")
	verbose := fs.Bool("verbose", false, "log service activity to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Load()
	var logOut io.Writer = io.Discard
	if *verbose {
		logOut = os.Stderr
	}
	logger := helpers.NewLoggerTo(logOut, cfg.AppName+"-cli", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var c *container.Container
	switch *store {
	case "memory":
		c = container.NewInMemory(cfg, logger)
	case "postgres":
		var err error
		c, err = container.New(ctx, cfg, logger, container.Options{SkipRedis: true})
		if err != nil {
			return err
		}
		defer c.Close()
	default:
		return fmt.Errorf("unknown store %q", *store)
	}

	console := cli.New(c.Users, os.Stdout)
	if fs.NArg() == 0 {
		return console.Run(ctx, os.Stdin)
	}
	if err := console.Exec(ctx, fs.Args()); err != nil && !errors.Is(err, cli.ErrExit) {
		return errCommandFailed
	}
	return nil
}
