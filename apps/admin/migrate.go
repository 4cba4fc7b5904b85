package main

import (
	"github.com/biilasha/biilasha/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDBConn
	}
	return gooseRunFunc(args[0], cli.db, args[1:]...)
}
