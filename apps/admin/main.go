package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/bala2006-m/smart-school-server-sub001/core"
	"github.com/bala2006-m/smart-school-server-sub001/core/attendance"
	"github.com/bala2006-m/smart-school-server-sub001/core/school"
	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
	emailsvc "github.com/bala2006-m/smart-school-server-sub001/services/email"
	"github.com/bala2006-m/smart-school-server-sub001/storage/database"
	sqlxrepos "github.com/bala2006-m/smart-school-server-sub001/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up the tenant store registry
	errAndDie(database.CreateIfNotExist(conf))
	registry := tenant.NewRegistry(conf, database.Open, nil)
	defer registry.Close()

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, nopLogger{})
	}

	attRepo := sqlxrepos.NewAttendanceRepository()

	// start CLI
	cli := commandLine{
		conf:      conf,
		registry:  registry,
		schoolSvc: school.NewService(registry, sqlxrepos.NewSchoolRepository()),
		reportSvc: attendance.NewReportService(registry, attRepo, mailSvc, conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(msg string, _ ...interface{}) {
	logger.Println(msg)
}
func (nopLogger) Fatal(msg string, _ ...interface{}) {
	logger.Fatal(msg)
}
