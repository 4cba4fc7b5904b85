package main

import (
	"fmt"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/student"
	"github.com/biilasha/biilasha/core/user"
	"github.com/biilasha/biilasha/services/email"
	"github.com/biilasha/biilasha/services/logger"
	"github.com/biilasha/biilasha/storage/database"
	"github.com/biilasha/biilasha/storage/database/sqlxdb"
)

var translator ut.Translator

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: setting up zap logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("ADMIN"), conf)
	logger.Enable(!conf.Debug)

	if err = run(conf, logger); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", describe(err))
		}
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

func run(conf *core.Config, logger core.Logger) error {
	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		return errors.Wrap(err, "setting up database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close DB", err)
		}
	}()

	validate := validator.New()
	translator, _ = ut.New(en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:         db.DB,
		usrSvc:     user.NewService(sqlxrepos.NewUserRepository(db), emailsvc.NewConsoleService(conf, logger), conf),
		studentSvc: student.NewService(sqlxrepos.NewStudentRepository(db), core.NewCache(conf.Billing.CacheTTL)),
		validate:   validate,
		out:        os.Stdout,
	}
	return cli.run(os.Args)
}

// describe lists the field errors of validation failures, one per line.
func describe(err error) string {
	switch cause := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		var msg string
		for _, fe := range cause {
			msg += fmt.Sprintf("\n  %s: %s", fe.Field(), fe.Translate(translator))
		}
		return "invalid input:" + msg
	case *core.ValidationError:
		if len(cause.Fields) == 0 {
			return cause.Error()
		}
		var msg string
		for _, fe := range cause.Fields {
			msg += fmt.Sprintf("\n  %s: %s", fe.Field, fe.Error)
		}
		return "invalid input:" + msg
	}
	return err.Error()
}
