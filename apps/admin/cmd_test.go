package main

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/hesabu/core"
	"github.com/trezcool/hesabu/core/assignment"
	"github.com/trezcool/hesabu/core/auth"
	"github.com/trezcool/hesabu/storage/database/sqlx"
	"github.com/trezcool/hesabu/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	db := testutil.PrepareDB(t)
	var out bytes.Buffer

	// start CLI
	return &commandLine{
		conf:     core.NewTestConfig(),
		db:       db,
		asgSvc:   assignment.NewService(sqlxrepos.NewAssignmentRepository(db), nil),
		validate: newValidator(),
		out:      &out,
	}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
	extra      interface{}
}

func runCLITest(t *testing.T, cli *commandLine, out *bytes.Buffer, tt cliTest) {
	out.Reset()
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		require.NoError(t, err)
		if tt.wantOut != "" {
			assert.Equal(t, tt.wantOut, out.String())
		}
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)

	gooseRunFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return errors.New(command + " must be of form: goose [OPTIONS] DRIVER DBSTRING " + command + " VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return errors.New("version must be a number (got '" + args[0] + "')")
			}
		default:
			return errors.New(strconv.Quote(command) + ": no such command")
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCLITest(t, cli, out, tt)
		})
	}
}

func Test_commandLine_hashPassword(t *testing.T) {
	cli, out := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no password", args: []string{"hashpassword"}, wantErr: errHelp},
		{name: "hashed", args: []string{"hashpassword"}, extra: extra{pwd: "abacus"}},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			runCLITest(t, cli, out, tt)
			if extra, ok := tt.extra.(extra); ok {
				lines := strings.Split(strings.TrimSpace(out.String()), "\n")
				hash := lines[len(lines)-1]
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(extra.pwd)))
			}
		})
	}
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no name", args: []string{"token"}, wantErr: errHelp},
		{name: "blank name", args: []string{"token", "-name", "  "}, wantErr: errHelp},
		{name: "token", args: []string{"token", "-name", "mrs k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCLITest(t, cli, out, tt)
		})
	}

	claims := new(auth.Claims)
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cli.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "mrs k", claims.Name)
	assert.True(t, claims.IsInstructor())
}

func Test_commandLine_nextIDAndAdd(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "next id on empty store", args: []string{"nextid"}, wantOut: "Assignment-1\n"},
		{name: "add: no questions", args: []string{"add", "-interval", "2"}, wantErr: errHelp},
		{name: "add", args: []string{"add", "-interval", "1.5", "1+2", "3*4"}, wantOut: "Assignment-1 (2 questions, 1.5s)\n"},
		{name: "next id", args: []string{"nextid"}, wantOut: "Assignment-2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCLITest(t, cli, out, tt)
		})
	}

	asg, err := cli.asgSvc.Get(context.Background(), "Assignment-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1+2", "3*4"}, asg.Questions())

	for _, args := range [][]string{
		{"admin", "add", "-interval", "0", "1+2"},
		{"admin", "add", "-interval", "1", "  "},
	} {
		var verrs validator.ValidationErrors
		err = cli.run(args)
		assert.True(t, errors.As(err, &verrs), "%v: %v", args, err)
	}

	// invalid submissions never reserve an id
	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "nextid"}))
	assert.Equal(t, "Assignment-2\n", out.String())
}
