// Package log provides a small leveled logger interface so the rest of
// this module does not depend on a logging library directly.
package log

// Logger is the adapter interface every package in this module logs
// through. Concrete implementations wrap a real logging library.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// With returns a logger that includes the given alternating
	// key/value pairs on every subsequent call. Implementations must
	// not be handed a TenantConfig directly — callers pass its
	// LogFields() so a secret field can never reach a log line by
	// omission.
	With(keyvals ...interface{}) Logger
}
