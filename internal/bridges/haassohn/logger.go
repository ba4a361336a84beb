package haassohn

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

func logDebug(l Logger, msg string, keysAndValues ...any) {
	if l != nil {
		l.Debug(msg, keysAndValues...)
	}
}

func logInfo(l Logger, msg string, keysAndValues ...any) {
	if l != nil {
		l.Info(msg, keysAndValues...)
	}
}

func logWarn(l Logger, msg string, keysAndValues ...any) {
	if l != nil {
		l.Warn(msg, keysAndValues...)
	}
}

func logError(l Logger, msg string, keysAndValues ...any) {
	if l != nil {
		l.Error(msg, keysAndValues...)
	}
}
