package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/included-edu/included/core/user"
)

// addTeacher creates a user with the teacher role and its teacher profile.
func (cli *commandLine) addTeacher(name, uname, email, school, pwd string) error {
	ctx := context.Background()
	nu := user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           user.TeacherRoles,
	}
	if err := nu.Validate(cli.validate, cli.usrSvc); err != nil {
		return err
	}

	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	t, err := cli.courseSvc.RegisterTeacher(ctx, usr.ID, school)
	if err != nil {
		return errors.Wrap(err, "registering teacher")
	}
	fmt.Printf("teacher %s created (user %s)\n", t.ID, usr.ID)
	return nil
}
