package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/course"
	"github.com/included-edu/included/core/user"
	"github.com/included-edu/included/storage/database/sqlxrepos"
	testutil "github.com/included-edu/included/tests"
)

var (
	usrRepo    user.Repository
	courseRepo course.Repository
)

func setup(t *testing.T) *commandLine {
	conf := testutil.NewConfig(t)

	// set up DB & repos
	db := testutil.PrepareDB(t, conf)
	usrRepo = sqlxrepos.NewUserRepository(db)
	courseRepo = sqlxrepos.NewCourseRepository(db)
	validate, _ := testutil.NewValidator()

	// start CLI
	return &commandLine{
		conf:      conf,
		db:        db,
		usrSvc:    user.NewService(usrRepo),
		courseSvc: course.NewService(db, courseRepo, nil, core.NopLogger{}, conf),
		validate:  validate,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		if pwd == "" {
			return nil, nil
		}
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var gotEngine string
	gooseRunFunc = func(ctx context.Context, engine, command string, db *sql.DB, args ...string) error {
		gotEngine = engine
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
	assert.Equal(t, cli.conf.Database.Engine, gotEngine)
}

func Test_commandLine_addTeacher(t *testing.T) {
	cli := setup(t)
	testutil.CreateUser(t, usrRepo, "Taken", "taken", "taken@test.rw", "", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"addteacher"}, wantErr: errHelp},
		{name: "no name", args: []string{"addteacher", "-username", "amina"}, extra: extra{pwd: "Kig@li2024"}, wantErr: errHelp},
		{name: "no password", args: []string{"addteacher", "-name", "Amina", "-username", "amina"}, wantErr: errHelp},
		{
			name:    "username taken",
			args:    []string{"addteacher", "-name", "Amina", "-username", "taken"},
			extra:      extra{pwd: "Kig@li2024"},
			wantErrStr: user.ErrUserExists.Error(),
		},
		{
			name:  "created",
			args:  []string{"addteacher", "-name", "Amina Uwase", "-username", "amina", "-email", "amina@test.rw", "-school", "Kigali Primary"},
			extra: extra{pwd: "Kig@li2024"},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd := ""
		if e, ok := tt.extra.(extra); ok {
			pwd = e.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	ctx := context.Background()
	usr, err := usrRepo.GetUser(ctx, user.GetFilter{Username: "amina"})
	require.NoError(t, err)
	assert.True(t, usr.IsTeacher())
	assert.NoError(t, usr.CheckPassword("Kig@li2024"))

	teacher, err := courseRepo.GetTeacherByUserID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kigali Primary", teacher.School)
	assert.Equal(t, "amina@test.rw", teacher.Email)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd := ""
		if e, ok := tt.extra.(extra); ok {
			pwd = e.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				require.NoError(t, err)
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
				assert.NoError(t, refreshedUsr.CheckPassword(pwd))
			}
		})
	}
}
