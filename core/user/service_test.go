package user_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biilasha/biilasha/assets"
	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/user"
	emailsvc "github.com/biilasha/biilasha/services/email"
	inmemdb "github.com/biilasha/biilasha/storage/database/inmem"
	testutil "github.com/biilasha/biilasha/tests"
)

func setup(t *testing.T) (user.Service, user.Repository, *core.Config) {
	t.Helper()
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(assets.FS, core.NopLogger{}, true)
	emailsvc.ClearSentMessages()

	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return user.NewServiceMock(repo, emailsvc.NewConsoleServiceMock(conf), conf), repo, conf
}

func TestNewUser_Validate(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	validate, _ := testutil.NewValidator()
	testutil.CreateUser(t, repo, "Amina", "amina@school.so", "Dug$4-Tribe9", true)

	tests := []struct {
		name    string
		nu      user.NewUser
		wantErr string
	}{
		{name: "valid", nu: user.NewUser{Name: "Bashir", Email: " Bashir@School.so ", Password: "Kite#Lamp-72", PasswordConfirm: "Kite#Lamp-72"}},
		{name: "email taken", nu: user.NewUser{Email: "AMINA@school.so", Password: "Kite#Lamp-72", PasswordConfirm: "Kite#Lamp-72"}, wantErr: "a user with this email already exists"},
		{name: "passwords differ", nu: user.NewUser{Email: "x@school.so", Password: "Kite#Lamp-72", PasswordConfirm: "Kite#Lamp-73"}, wantErr: "password_confirm"},
		{name: "weak password", nu: user.NewUser{Email: "x@school.so", Password: "12345678", PasswordConfirm: "12345678"}, wantErr: "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(ctx, validate, svc)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	svc, repo, conf := setup(t)
	usr := testutil.CreateUser(t, repo, "Amina", "amina@school.so", "Dug$4-Tribe9", true)
	testutil.CreateUser(t, repo, "Gone", "gone@school.so", "Dug$4-Tribe9", false)

	t.Run("request", func(t *testing.T) {
		require.NoError(t, svc.RequestPasswordReset(ctx, "AMINA@school.so"))

		sent := emailsvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "amina@school.so", sent[0].To[0].Address)
		uid, token := user.MakeResetToken(usr, conf)
		assert.True(t, strings.Contains(sent[0].TextContent, "/password-reset/"+uid+"/"+token), sent[0].TextContent)
		assert.Contains(t, sent[0].HTMLContent, "Hello Amina")
	})

	t.Run("unknown or inactive user", func(t *testing.T) {
		assert.Equal(t, user.ErrNotFound, errors.Cause(svc.RequestPasswordReset(ctx, "nobody@school.so")))
		assert.Equal(t, user.ErrNotFound, svc.RequestPasswordReset(ctx, "gone@school.so"))
	})

	t.Run("confirm", func(t *testing.T) {
		uid, token := user.MakeResetToken(usr, conf)
		tests := []struct {
			name    string
			data    user.ResetUserPassword
			wantErr string
		}{
			{name: "bad uid", data: user.ResetUserPassword{UID: "!!", Token: token, Password: "New#Pass-2025"}, wantErr: "invalid or expired password reset link"},
			{name: "bad token", data: user.ResetUserPassword{UID: uid, Token: "x-y-z", Password: "New#Pass-2025"}, wantErr: "invalid or expired password reset link"},
			{name: "weak password", data: user.ResetUserPassword{UID: uid, Token: token, Password: "short"}, wantErr: "password"},
			{name: "valid", data: user.ResetUserPassword{UID: uid, Token: token, Password: "New#Pass-2025"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := svc.ResetPassword(ctx, tt.data)
				if tt.wantErr != "" {
					require.Error(t, err)
					assert.Contains(t, err.Error(), tt.wantErr)
					return
				}
				require.NoError(t, err)
				assert.NoError(t, got.CheckPassword("New#Pass-2025"))
			})
		}

		// the token is single-use: the password it was made for changed
		_, err := svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "Other#Pass-2025"})
		assert.True(t, core.IsValidationError(err))
	})
}
