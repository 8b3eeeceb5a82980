package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/ssriya/grader/core"
	"github.com/ssriya/grader/core/user"
)

// addUser updates or creates a user.User. Accounts are students unless teacher or admin is set.
func (cli *commandLine) addUser(name, email, pwd string, teacher, admin bool) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email}
	}
	usr.Name = core.CleanString(name)

	switch {
	case admin:
		for _, role := range user.AllRoles {
			usr.AddRole(role)
		}
	case teacher:
		usr.AddRole(user.RoleTeacher)
	case len(usr.Roles) == 0:
		usr.AddRole(user.RoleStudent)
	}

	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	if usr, err = cli.usrSvc.Save(ctx, usr); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "saved user %s <%s> %v\n", usr.ID, usr.Email, usr.Roles)
	return nil
}
