package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/user"
)

// addUser creates a user, or updates the name, role attributes and password
// of the user already registered with that email.
func (cli *commandLine) addUser(ctx context.Context, nu user.NewUser) error {
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}

	usr, err := cli.usrSvc.GetByEmail(ctx, nu.Email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		_, err = cli.usrSvc.Create(ctx, nu)
		return err
	}

	if usr.Role() != user.Role(nu.Role) {
		return errors.Errorf("%s is already registered as %s", usr.Email, usr.Role())
	}
	uu := user.UpdateUser{Name: &nu.Name}
	switch usr.Role() {
	case user.RoleTeacher:
		uu.Subject = &nu.Subject
	case user.RoleStudent:
		uu.ClassID = &nu.ClassID
	}
	if usr, err = cli.usrSvc.Update(ctx, usr, uu); err != nil {
		return err
	}
	if err = usr.ChangePassword(nu.Password); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}
