package mailbox

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LogrusLogger adapts a logrus logger (or entry) to the Logger interface.
// Key/value pairs become logrus fields.
func LogrusLogger(logger logrus.FieldLogger) Logger {
	if logger == nil {
		return nil
	}
	return logrusAdapter{logger: logger}
}

type logrusAdapter struct {
	logger logrus.FieldLogger
}

func (l logrusAdapter) Debug(msg string, args ...any) {
	l.logger.WithFields(logrusFields(args)).Debug(msg)
}

func (l logrusAdapter) Info(msg string, args ...any) {
	l.logger.WithFields(logrusFields(args)).Info(msg)
}

func (l logrusAdapter) Warn(msg string, args ...any) {
	l.logger.WithFields(logrusFields(args)).Warn(msg)
}

func (l logrusAdapter) Error(msg string, args ...any) {
	l.logger.WithFields(logrusFields(args)).Error(msg)
}

func (l logrusAdapter) WithAttrs(args ...any) Logger {
	return logrusAdapter{logger: l.logger.WithFields(logrusFields(args))}
}

// logrusFields pairs up slog-style alternating key/value arguments. A
// trailing key without a value is kept under "!BADKEY", the way slog does.
func logrusFields(args []any) logrus.Fields {
	fields := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			fields["!BADKEY"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		fields[key] = args[i+1]
	}
	return fields
}
