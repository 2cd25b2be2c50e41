package main

import (
	"context"
	"fmt"

	"github.com/mtokoni/tathmini/core"
	"github.com/mtokoni/tathmini/core/user"
)

// resetPassword replaces the password of an existing user looked up by
// username or email.
func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, uname}})
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}

	fmt.Printf("password reset for %q\n", usr.Username)
	return nil
}
