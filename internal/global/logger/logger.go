package logger

import "gitlab.com/scenecast.net/internal/adapter/logging"

// Logger is the process-wide logger used before dependencies are wired.
var Logger = logging.NewZapLogger()

// Configure replaces the process-wide logger, normally once config is loaded.
func Configure(l *logging.ZapLogger) {
	Logger = l
}

func Info(msg string, args ...interface{}) {
	Logger.Info(msg, args...)
}

func Error(msg string, args ...interface{}) {
	Logger.Error(msg, args...)
}

func Debug(msg string, args ...interface{}) {
	Logger.Debug(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	Logger.Warn(msg, args...)
}
