package main

import (
	"context"

	"github.com/included-edu/included/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(context.Background(), cli.conf.Database.Engine, args[0], cli.db.DB, arguments...)
}
