package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/biilasha/biilasha/core/user"
)

// addUser creates an active operator account.
func (cli *commandLine) addUser(name, email, pwd, pwdConfirm string) error {
	ctx := context.Background()
	nu := user.NewUser{
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwdConfirm,
	}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return err
	}

	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	fmt.Fprintf(cli.out, "operator %s created (id %d)\n", usr.Email, usr.ID)
	return nil
}
