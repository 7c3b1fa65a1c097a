package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/course"
	"github.com/included-edu/included/core/user"
)

// RollbarLogger prints every entry to std and reports warnings and errors to rollbar.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std, debug: conf.Debug}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

type person struct {
	id, username, email string
}

// expected fmt: msg | error, map[string]interface{}, user.User or course.Identity
func (l RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, *person) {
	var p *person
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if p == nil { // only set one person
				p = &person{id: v.ID, username: v.Username, email: v.Email}
			}
		case course.Identity:
			if p == nil && v.UserID != "" {
				p = &person{id: v.UserID}
			}
		default:
			newArgs = append(newArgs, arg)
		}
	}
	return newArgs, p
}

func (l RollbarLogger) report(level string, msg string, args []interface{}) {
	rbArgs, p := l.prepare(msg, args)
	if p != nil {
		rollbar.SetPerson(p.id, p.username, p.email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, rbArgs...)
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("%s: %s", level, msg)
	for _, arg := range args {
		if _, ok := arg.(course.Identity); ok {
			continue
		}
		if _, ok := arg.(user.User); ok {
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.print(rollbar.DEBUG, msg, args)
	}
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.print(rollbar.INFO, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.WARN, msg, args)
	l.print(rollbar.WARN, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.ERR, msg, args)
	l.print(rollbar.ERR, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	l.print(rollbar.CRIT, msg, args)
	rollbar.Close()
	l.std.Fatal(msg)
}
