package config

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logMu  sync.RWMutex
	logger = newLogger(os.Stderr)
)

func newLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(StringValue("HEALTH_LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if BoolValue("HEALTH_DEBUG") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("component", "health").Logger()
}

// SetLogOutput redirects the side-channel logger, mostly for tests.
func SetLogOutput(w io.Writer) {
	logMu.Lock()
	logger = newLogger(w)
	logMu.Unlock()
}

// Logger returns the side-channel logger.
func Logger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// Public methods
func LogInfo(ctx context.Context, msg string) {
	writeToLog(ctx, zerolog.InfoLevel, msg)
}

func LogWarn(ctx context.Context, msg string) {
	writeToLog(ctx, zerolog.WarnLevel, msg)
}

func LogError(ctx context.Context, msg string) {
	writeToLog(ctx, zerolog.ErrorLevel, msg)
}

func LogDebug(ctx context.Context, msg string) {
	if GetContextDebug(ctx) {
		writeToLog(ctx, zerolog.DebugLevel, msg)
	}
}

// Private methods
func writeToLog(ctx context.Context, level zerolog.Level, msg string) {
	l := Logger()
	event := l.WithLevel(level).Str("cid", GetContextCorrelationId(ctx))
	if created := GetContextTimeCreated(ctx); created != -1 {
		event = event.Str("elapsed", sinceCreated(created))
	}
	if subject := GetContextSubject(ctx); subject != "" {
		event = event.Str("subject", subject)
	}
	if module := GetContextModule(ctx); module != "" {
		event = event.Str("module", module)
	}
	event.Msg(msg)
}

func sinceCreated(created int64) string {
	return time.Since(time.Unix(created, 0)).Round(100 * time.Millisecond).String()
}
