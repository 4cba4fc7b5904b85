package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/student"
	"github.com/biilasha/biilasha/core/user"
	"github.com/biilasha/biilasha/services/email"
	"github.com/biilasha/biilasha/storage/database/inmem"
	"github.com/biilasha/biilasha/tests"
)

type cliEnv struct {
	*commandLine
	usrRepo     user.Repository
	studentRepo student.Repository
	out         *bytes.Buffer
}

func setup(t *testing.T) cliEnv {
	t.Helper()
	conf := core.NewTestConfig()

	// set up DB & repos
	db := inmemdb.Open()
	env := cliEnv{
		usrRepo:     inmemdb.NewUserRepository(db),
		studentRepo: inmemdb.NewStudentRepository(db),
		out:         new(bytes.Buffer),
	}
	validate, _ := testutil.NewValidator()

	// start CLI
	env.commandLine = &commandLine{
		db:         new(sql.DB), // only handed to the mocked goose runner
		usrSvc:     user.NewServiceMock(env.usrRepo, emailsvc.NewConsoleServiceMock(conf), conf),
		studentSvc: student.NewService(env.studentRepo, core.NewCache(conf.Billing.CacheTTL)),
		validate:   validate,
		out:        env.out,
	}
	return env
}

// mockPasswords makes the password prompts answer pwds, in order.
func mockPasswords(pwds ...string) {
	i := 0
	readPasswordFunc = func(fd int) ([]byte, error) {
		if i >= len(pwds) {
			return nil, nil
		}
		i++
		return []byte(pwds[i-1]), nil
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwds       []string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	env := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"adduser", "-lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.out.Reset()
			tt.check(t, env.run(append([]string{"admin"}, tt.args...)))
			assert.Contains(t, env.out.String(), "Usage")
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	env := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
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
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "discounts", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, env.run(append([]string{"admin"}, tt.args...)))
		})
	}

	t.Run("memory engine", func(t *testing.T) {
		env.db = nil
		defer func() { env.db = new(sql.DB) }()
		assert.Equal(t, errNoDBConn, env.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_addUser(t *testing.T) {
	env := setup(t)
	testutil.CreateUser(t, env.usrRepo, "Amina", "amina@school.so", "Dug$4-Tribe9", true)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"adduser", "-email", "bile@school.so"}, wantErr: errHelp},
		{
			name: "email taken", args: []string{"adduser", "-email", "AMINA@school.so"}, pwds: []string{"Dug$4-Tribe9", "Dug$4-Tribe9"},
			wantErrStr: "a user with this email already exists",
		},
		{
			name: "passwords differ", args: []string{"adduser", "-email", "bile@school.so"}, pwds: []string{"Dug$4-Tribe9", "Dug$4-Tribe8"},
			wantErrStr: "failed on the 'eqfield' tag",
		},
		{name: "created", args: []string{"adduser", "-email", " Bile@school.so", "-name", "Bile"}, pwds: []string{"Ruun#7-Gacan", "Ruun#7-Gacan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPasswords(tt.pwds...)
			tt.check(t, env.run(append([]string{"admin"}, tt.args...)))
		})
	}

	usr, err := env.usrRepo.GetUserByEmail(context.Background(), "bile@school.so")
	require.NoError(t, err)
	assert.Equal(t, "Bile", usr.Name)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("Ruun#7-Gacan"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.usrRepo, "Amina", "amina@school.so", "Dug$4-Tribe9", true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@school.so"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@school.so"}, pwds: []string{"Ruun#7-Gacan"}, wantErr: user.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "-email", usr.Email}, pwds: []string{"12345678"}, wantErrStr: "password: password cannot be entirely numeric"},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, pwds: []string{"Ruun#7-Gacan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPasswords(tt.pwds...)
			tt.check(t, env.run(append([]string{"admin"}, tt.args...)))
		})
	}

	refreshed, err := env.usrRepo.GetUserByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("Ruun#7-Gacan"))
}

func Test_commandLine_importStudents(t *testing.T) {
	env := setup(t)
	roster := filepath.Join(t.TempDir(), "roster.csv")
	content := "student_name,parent_name,parent_phone,monthly_fee\n" +
		"Ayaan,Hodan,0612345678,50\n" +
		"Bile,,,\n"
	require.NoError(t, os.WriteFile(roster, []byte(content), 0o600))

	tests := []cliTest{
		{name: "no args", args: []string{"importstudents"}, wantErr: errHelp},
		{name: "missing file", args: []string{"importstudents", "-file", roster + ".lol"}, wantErrStr: "no such file or directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, env.run(append([]string{"admin"}, tt.args...)))
		})
	}

	t.Run("dry run", func(t *testing.T) {
		env.out.Reset()
		require.NoError(t, env.run([]string{"admin", "importstudents", "-file", roster, "-dry-run"}))
		assert.Contains(t, env.out.String(), "Ayaan")
		assert.Contains(t, env.out.String(), "1 students to import, 1 rows dropped")

		students, err := env.studentRepo.QueryStudents(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Empty(t, students)
	})

	t.Run("import", func(t *testing.T) {
		env.out.Reset()
		require.NoError(t, env.run([]string{"admin", "importstudents", "-file", roster}))
		assert.Contains(t, env.out.String(), "1 students imported, 1 rows dropped")

		students, err := env.studentRepo.QueryStudents(context.Background(), nil, nil)
		require.NoError(t, err)
		require.Len(t, students, 1)
		assert.Equal(t, "Ayaan", students[0].Name)
		assert.Equal(t, student.StatusActive, students[0].Status)
	})
}
