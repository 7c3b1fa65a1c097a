package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/course"
	"github.com/included-edu/included/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf      *core.Config
	db        *sqlx.DB
	usrSvc    *user.Service
	courseSvc *course.Service
	validate  *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, version, ...)")
	fmt.Println("  addteacher -name NAME -username USERNAME [-email EMAIL] [-school SCHOOL] - create a teacher account")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addTeacherCmd := flag.NewFlagSet("addteacher", flag.ContinueOnError)
	addTeacherName := addTeacherCmd.String("name", "", "The teacher's full name.")
	addTeacherUname := addTeacherCmd.String("username", "", "The teacher's username.")
	addTeacherEmail := addTeacherCmd.String("email", "", "The teacher's email. Course notifications are sent there.")
	addTeacherSchool := addTeacherCmd.String("school", "", "The teacher's school.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addteacher":
		if err := addTeacherCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTeacherName == "" || (*addTeacherUname == "" && *addTeacherEmail == "") {
			addTeacherCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addTeacherCmd.Usage()
			return errHelp
		}
		return cli.addTeacher(*addTeacherName, *addTeacherUname, *addTeacherEmail, *addTeacherSchool, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
