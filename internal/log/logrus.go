package log

import "github.com/sirupsen/logrus"

// logrusLogger adapts logrus.FieldLogger to Logger.
type logrusLogger struct {
	entry logrus.FieldLogger
}

// NewLogrusLogger returns a Logger backed by the given logrus entry.
func NewLogrusLogger(entry logrus.FieldLogger) Logger {
	return &logrusLogger{entry: entry}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) With(keyvals ...interface{}) Logger {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		fields[key] = keyvals[i+1]
	}
	return &logrusLogger{entry: l.entry.WithFields(fields)}
}

// NewLogger builds the process-wide logrus-backed logger for the given
// level name ("debug", "info", "warn", "error") and format ("text"/"json").
func NewLogger(level, format string) (Logger, error) {
	l := logrus.New()

	switch format {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, &formatError{format: format}
	}

	lvl, err := logrus.ParseLevel(levelOrDefault(level))
	if err != nil {
		return nil, err
	}
	l.SetLevel(lvl)

	return NewLogrusLogger(l), nil
}

func levelOrDefault(level string) string {
	if level == "" {
		return "info"
	}
	return level
}

type formatError struct{ format string }

func (e *formatError) Error() string {
	return "log format is not one of the supported values (text, json): " + e.format
}
