package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/included-edu/included/apps/api/echo"
	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/course"
	"github.com/included-edu/included/core/extract"
	"github.com/included-edu/included/core/generate"
	"github.com/included-edu/included/core/user"
	emailsvc "github.com/included-edu/included/services/email"
	llmsvc "github.com/included-edu/included/services/llm"
	logsvc "github.com/included-edu/included/services/logger"
	"github.com/included-edu/included/storage/database"
	"github.com/included-edu/included/storage/database/sqlxrepos"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	UserSvc    *user.Service
	CourseSvc  *course.Service
	Pipeline   *course.Pipeline
	Validate   *validator.Validate
	Translator ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func(ctx context.Context) (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Ping(ctx, db); err != nil {
			return nil, err
		}

		if err = database.Migrate(ctx, conf.Database.Engine, db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp(context.Background())
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	loggerParam.Logger.Info(fmt.Sprintf("%s database ready", conf.Database.Engine))
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newCompleter falls back to canned outlines when no API key is configured in debug mode.
func newCompleter(conf *core.Config, logger core.Logger) generate.Completer {
	if conf.Debug && conf.Generation.OpenAIApiKey == "" {
		logger.Info("no language model API key: using canned course outlines")
		return llmsvc.NewDummyClient()
	}
	return llmsvc.NewOpenAIClient(conf)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(p.Conf, p.Logger, &echoapi.Deps{
		UserSvc:    p.UserSvc,
		CourseSvc:  p.CourseSvc,
		Pipeline:   p.Pipeline,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewCourseRepository, dig.As(new(course.Repository))))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(newCompleter))
	must(c.Provide(extract.NewExtractor))
	must(c.Provide(generate.NewGenerator))
	must(c.Provide(course.NewService))
	must(c.Provide(course.NewPipeline))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
