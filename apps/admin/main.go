package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/course"
	"github.com/included-edu/included/core/user"
	logsvc "github.com/included-edu/included/services/logger"
	"github.com/included-edu/included/storage/database"
	"github.com/included-edu/included/storage/database/sqlxrepos"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	ctx := context.Background()

	// set up DB
	errAndDie(database.CreateIfNotExist(ctx, conf))
	db, err := database.Open(conf)
	errAndDie(err)
	errAndDie(database.Ping(ctx, db))

	// set up services
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!conf.Debug)
	courseRepo := sqlxrepos.NewCourseRepository(db)

	// start CLI
	cli := commandLine{
		conf:      conf,
		db:        db,
		usrSvc:    user.NewService(sqlxrepos.NewUserRepository(db)),
		courseSvc: course.NewService(db, courseRepo, nil, appLogger, conf),
		validate:  validate,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
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
