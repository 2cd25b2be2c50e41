package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	rberrors "github.com/rollbar/rollbar-go/errors"

	"github.com/mtokoni/tathmini/core"
	"github.com/mtokoni/tathmini/core/user"
)

// RollbarLogger reports to rollbar and echoes everything to a standard logger
// so local output stays useful when reporting is disabled.
type RollbarLogger struct {
	std    *log.Logger
	client *rollbar.Client
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	client := rollbar.NewAsync(conf.RollbarToken, conf.Env, conf.Build, conf.Server.Host, "")
	client.SetStackTracer(rberrors.StackTracer)
	return &RollbarLogger{std: std, client: client}
}

func (l *RollbarLogger) Enable(enabled bool) {
	l.client.SetEnabled(enabled)
}

// report tags the request principal (at most one user.User among args) on the
// occurrence and forwards the rest as extra context.
func (l *RollbarLogger) report(level, msg string, args []interface{}) {
	extras := make([]interface{}, 0, len(args)+1)
	extras = append(extras, msg)

	tagged := false
	for _, arg := range args {
		usr, ok := arg.(user.User)
		if ok && !tagged {
			l.client.SetPerson(usr.ID, usr.Username, usr.Email)
			extras = append(extras, map[string]interface{}{"role": usr.Role})
			tagged = true
			continue
		}
		extras = append(extras, arg)
	}
	if !tagged {
		l.client.ClearPerson()
	}

	switch level {
	case rollbar.CRIT:
		l.client.Critical(extras...)
	case rollbar.ERR:
		l.client.Error(extras...)
	case rollbar.WARN:
		l.client.Warning(extras...)
	case rollbar.INFO:
		l.client.Info(extras...)
	default:
		l.client.Debug(extras...)
	}

	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.report(rollbar.DEBUG, msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.report(rollbar.INFO, msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.WARN, msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.ERR, msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	l.client.Close()
	l.std.Fatal(msg)
}
