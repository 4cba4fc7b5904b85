package user

import (
	"context"

	"github.com/biilasha/biilasha/core"
)

type serviceMock struct {
	*service
}

// NewServiceMock returns a Service that sends its emails synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &serviceMock{service: newService(repo, mailSvc, conf)}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}

// MakeResetToken returns the uid & token that a password reset email would carry for usr.
func MakeResetToken(usr User, conf *core.Config) (uid, token string) {
	return encodeUID(usr), newTokenGenerator(conf.SecretKey, conf.Server.PasswordResetTimeoutDelta).makeToken(usr)
}
