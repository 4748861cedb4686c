package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/hesabu/core"
	"github.com/trezcool/hesabu/core/assignment"
	"github.com/trezcool/hesabu/core/auth"
	"github.com/trezcool/hesabu/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword      // mockable
	gooseRunFunc     = database.RunMigrations // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf     *core.Config
	db       *sqlx.DB
	asgSvc   *assignment.Service
	validate *validator.Validate
	out      io.Writer
}

func newValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	assignment.InitValidators(validate, translator)
	return validate
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]            - run a goose migrations command (up, down, status...)")
	_, _ = fmt.Fprintln(cli.out, "  hashpassword                      - hash the instructor password, for AUTH_INSTRUCTORPASSWORDHASH")
	_, _ = fmt.Fprintln(cli.out, "  token -name NAME                  - print an instructor token")
	_, _ = fmt.Fprintln(cli.out, "  nextid                            - print the id of the next assignment")
	_, _ = fmt.Fprintln(cli.out, "  add -interval SECONDS QUESTION... - create an assignment")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	tokenCmd := cli.newFlagSet("token")
	tokenName := tokenCmd.String("name", "", "The instructor's name.")

	addCmd := cli.newFlagSet("add")
	addInterval := addCmd.Float64("interval", 1, "Seconds between two reveals.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "hashpassword":
		_, _ = fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		_, _ = fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.hashPassword(string(pwd))

	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if strings.TrimSpace(*tokenName) == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(strings.TrimSpace(*tokenName))

	case "nextid":
		return cli.nextID()

	case "add":
		if err := addCmd.Parse(args[2:]); err != nil {
			return err
		}
		if addCmd.NArg() == 0 {
			addCmd.Usage()
			return errHelp
		}
		return cli.add(*addInterval, addCmd.Args())

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(cli.db, args[0], args[1:]...)
}

func (cli *commandLine) hashPassword(pwd string) error {
	hash, err := auth.HashPassword(pwd)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cli.out, hash)
	return nil
}

func (cli *commandLine) token(name string) error {
	token, err := auth.GenerateToken(auth.NewInstructorClaims(name, cli.conf), cli.conf.SecretKey)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cli.out, token)
	return nil
}

func (cli *commandLine) nextID() error {
	id, err := cli.asgSvc.NextID(context.Background())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cli.out, id)
	return nil
}

func (cli *commandLine) add(interval float64, questions []string) error {
	ctx := context.Background()
	na := assignment.NewAssignment{NumQuestions: len(questions), TimeInterval: interval, Questions: questions}
	if err := na.Validate(cli.validate); err != nil {
		return err
	}

	draft, err := cli.asgSvc.AddNew(ctx)
	if err != nil {
		return err
	}
	asg, err := cli.asgSvc.Save(ctx, draft.ID, na)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cli.out, asg)
	return nil
}
