package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLogger forwards cron's internal logging to slog. Cron's routine
// messages go out at debug level.
type cronLogger struct {
	logger *slog.Logger
}

var _ cron.Logger = cronLogger{}

// NewCronLogger adapts logger to cron.Logger.
func NewCronLogger(logger *slog.Logger) cron.Logger {
	return cronLogger{logger: logger}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
