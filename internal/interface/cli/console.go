// Package cli implements the interactive and one-shot console client for
// user records.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	userapp "github.com/oksasatya/user-registry/internal/application"
	"github.com/oksasatya/user-registry/internal/domain/apperror"
)

// Command names accepted by the console.
const (
	CmdAdd    = "add"
	CmdList   = "list"
	CmdGet    = "get"
	CmdUpdate = "update"
	CmdDelete = "delete"
	CmdHelp   = "help"
	CmdExit   = "exit"
)

// ErrExit is returned by Exec for the exit command.
var ErrExit = errors.New("exit")

const usage = `commands:
  add    -name NAME -email EMAIL -age AGE   create a user
  list                                      list all users
  get    ID                                 show one user
  update ID -name NAME -email EMAIL -age AGE replace a user's fields
  delete ID                                 delete a user
  help                                      show this help
  exit                                      leave the console
`

type Console struct {
	Svc *userapp.Service
	Out io.Writer
}

func New(svc *userapp.Service, out io.Writer) *Console {
	return &Console{Svc: svc, Out: out}
}

// Exec runs a single command. Service errors are printed and returned.
func (c *Console) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	var err error
	switch strings.ToLower(args[0]) {
	case CmdAdd:
		err = c.add(ctx, args[1:])
	case CmdList:
		err = c.list(ctx)
	case CmdGet:
		err = c.get(ctx, args[1:])
	case CmdUpdate:
		err = c.update(ctx, args[1:])
	case CmdDelete:
		err = c.delete(ctx, args[1:])
	case CmdHelp:
		_, _ = io.WriteString(c.Out, usage)
	case CmdExit:
		return ErrExit
	default:
		err = fmt.Errorf("unknown command %q, try help", args[0])
	}
	if err != nil {
		fmt.Fprintf(c.Out, "error: %s\n", apperror.MessageOf(err))
	}
	return err
}

// Run reads commands line by line until exit or EOF. Command errors do not
// stop the loop.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(c.Out, "> ")
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Exec(ctx, strings.Fields(sc.Text())); errors.Is(err, ErrExit) {
			return nil
		}
		fmt.Fprint(c.Out, "> ")
	}
	return sc.Err()
}

func (c *Console) add(ctx context.Context, args []string) error {
	in, err := parseInput(CmdAdd, args)
	if err != nil {
		return err
	}
	id, err := c.Svc.CreateUser(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "created user %d\n", id)
	return nil
}

func (c *Console) list(ctx context.Context) error {
	users, err := c.Svc.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(c.Out, "no users")
		return nil
	}
	tw := tabwriter.NewWriter(c.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tAGE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", u.ID, u.Name, u.Email, u.Age, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func (c *Console) get(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	u, err := c.Svc.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return apperror.New(apperror.KindNotFound, "cli.get", fmt.Sprintf("user with id %d not found", id))
	}
	fmt.Fprintf(c.Out, "%d %s <%s> age %d, created %s\n", u.ID, u.Name, u.Email, u.Age, u.CreatedAt.Format("2006-01-02 15:04"))
	return nil
}

func (c *Console) update(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	in, err := parseInput(CmdUpdate, args[1:])
	if err != nil {
		return err
	}
	if err := c.Svc.UpdateUser(ctx, id, in); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "updated user %d\n", id)
	return nil
}

func (c *Console) delete(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	deleted, err := c.Svc.DeleteUser(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintf(c.Out, "user %d does not exist\n", id)
		return nil
	}
	fmt.Fprintf(c.Out, "deleted user %d\n", id)
	return nil
}

func parseID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errors.New("missing user id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", args[0])
	}
	return id, nil
}

// parseInput reads -name, -email and -age. An absent -age stays nil so the
// service reports it as missing.
func parseInput(cmd string, args []string) (userapp.UserInput, error) {
	var (
		in  userapp.UserInput
		age ageFlag
	)
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&in.Name, "name", "", "user name")
	fs.StringVar(&in.Email, "email", "", "user email")
	fs.Var(&age, "age", "user age")
	if err := fs.Parse(args); err != nil {
		return in, err
	}
	in.Age = age.v
	return in, nil
}

type ageFlag struct{ v *int }

func (a *ageFlag) String() string {
	if a == nil || a.v == nil {
		return ""
	}
	return strconv.Itoa(*a.v)
}

func (a *ageFlag) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("age must be an integer")
	}
	a.v = &n
	return nil
}
