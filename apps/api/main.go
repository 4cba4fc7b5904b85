package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/biilasha/biilasha/apps/api/echo"
	"github.com/biilasha/biilasha/assets"
	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/fee"
	"github.com/biilasha/biilasha/core/invoice"
	"github.com/biilasha/biilasha/core/payment"
	"github.com/biilasha/biilasha/core/report"
	"github.com/biilasha/biilasha/core/student"
	"github.com/biilasha/biilasha/core/user"
	"github.com/biilasha/biilasha/services/email"
	"github.com/biilasha/biilasha/services/logger"
	"github.com/biilasha/biilasha/storage/database"
	"github.com/biilasha/biilasha/storage/database/inmem"
	"github.com/biilasha/biilasha/storage/database/sqlxdb"
)

// memoryEngine runs the API on the in-memory store (local demo). Nothing is persisted.
const memoryEngine = "memory"

type repositories struct {
	fee     fee.Repository
	student student.Repository
	invoice invoice.Repository
	payment payment.Repository
	report  report.Repository
	user    user.Repository
	tx      core.Transactor
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		return fmt.Errorf("setting up zap logger: %w", err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("API"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(zl.Named("DB"), conf)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	repos, closeDB, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err := closeDB(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.SendgridAPIKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	cache := core.NewCache(conf.Billing.CacheTTL)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)

	core.ParseEmailTemplates(assets.FS, logger, false)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(&echoapi.Options{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		FeeSvc:     fee.NewService(repos.fee, cache),
		StudentSvc: student.NewService(repos.student, cache),
		InvoiceSvc: invoice.NewService(repos.invoice, repos.fee, repos.student, cache, conf.Billing),
		PaymentSvc: payment.NewService(repos.payment, repos.invoice, repos.tx, cache, conf.Billing),
		ReportSvc:  report.NewService(repos.report, repos.invoice, repos.payment, cache),
		UserSvc:    user.NewService(repos.user, mailSvc, conf),
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		return fmt.Errorf("server error: %w", err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				return fmt.Errorf("could not force stop server: %w", err)
			}
		}
	}
	return nil
}

func setUpRepositories(conf *core.Config) (repositories, func() error, error) {
	if conf.Database.Engine == memoryEngine {
		db := inmemdb.Open()
		return repositories{
			fee:     inmemdb.NewFeeRepository(db),
			student: inmemdb.NewStudentRepository(db),
			invoice: inmemdb.NewInvoiceRepository(db),
			payment: inmemdb.NewPaymentRepository(db),
			report:  inmemdb.NewReportRepository(db),
			user:    inmemdb.NewUserRepository(db),
			tx:      inmemdb.NewTransactor(db),
		}, func() error { return nil }, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return repositories{}, nil, err
	}
	return repositories{
		fee:     sqlxrepos.NewFeeRepository(db),
		student: sqlxrepos.NewStudentRepository(db),
		invoice: sqlxrepos.NewInvoiceRepository(db),
		payment: sqlxrepos.NewPaymentRepository(db),
		report:  sqlxrepos.NewReportRepository(db),
		user:    sqlxrepos.NewUserRepository(db),
		tx:      sqlxrepos.NewTransactor(db),
	}, db.Close, nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
