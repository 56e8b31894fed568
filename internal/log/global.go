package log

import "sync"

// The process default logger is configured once by the root command's
// persistent flags and read by everything that logs without an injected
// logger, so access goes through a lock.
var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

// SetDefaultLogger replaces the process default logger.
func SetDefaultLogger(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// DefaultLogger returns the process default logger, creating one with the
// standard configuration on first use.
func DefaultLogger() *Logger {
	defaultMu.RLock()
	if defaultLogger != nil {
		defer defaultMu.RUnlock()
		return defaultLogger
	}
	defaultMu.RUnlock()

	l := Default()
	SetDefaultLogger(l)
	return l
}
