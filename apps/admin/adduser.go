package main

import (
	"context"
	"fmt"

	"github.com/mtokoni/tathmini/core"
	"github.com/mtokoni/tathmini/core/user"
)

// addUser updates or creates a user.User with the given role.
func (cli *commandLine) addUser(uname, email, pwd, role string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	created := false
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username: uname,
			Email:    email,
		}
		created = true
	}
	usr.Role = role
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}

	if created {
		fmt.Printf("created %s %q\n", usr.Role, usr.Username)
	} else {
		fmt.Printf("updated %s %q\n", usr.Role, usr.Username)
	}
	return nil
}
