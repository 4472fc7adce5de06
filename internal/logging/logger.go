// Package logging provides structured logging for devsolo using slog.
//
// Usage:
//
//	if err := logging.Init(); err != nil { ... }
//	defer logging.Close()
//
//	ctx = logging.WithSession(ctx, sessionID)
//	ctx = logging.WithBranch(ctx, branch)
//	ctx = logging.WithTool(ctx, "workflow.ship")
//	logging.Info(ctx, "pre-flight passed", slog.Int("checks", 5))
package logging

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/devsolo-dev/devsolo/internal/paths"
)

// LogLevelEnvVar is the environment variable that controls log level.
const LogLevelEnvVar = "LOG_LEVEL"

// DebugEnvVar, when set to "1", is equivalent to LOG_LEVEL=debug.
const DebugEnvVar = "DEBUG"

// LogsDirName is the directory (under the base dir) where logs are stored.
const LogsDirName = "logs"

var (
	logger       *slog.Logger
	logFile      *os.File
	logBufWriter *bufio.Writer
	mu           sync.RWMutex

	// levelGetter is an optional callback to read the configured log level
	// without creating an import cycle with the config package.
	levelGetter func() string
)

// SetLevelGetter registers a fallback used when no env var is set.
func SetLevelGetter(getter func() string) {
	mu.Lock()
	defer mu.Unlock()
	levelGetter = getter
}

// Init initializes the process-wide logger, writing JSON logs to
// <base>/logs/<YYYY-MM-DD>.log. Falls back to stderr if the log directory
// can't be created. Log level is monotonic within a run: once raised it is
// never silently lowered except by an explicit re-Init.
func Init() error {
	mu.Lock()
	defer mu.Unlock()

	if logBufWriter != nil {
		_ = logBufWriter.Flush()
		logBufWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	levelStr := os.Getenv(LogLevelEnvVar)
	if levelStr == "" && os.Getenv(DebugEnvVar) == "1" {
		levelStr = "debug"
	}
	if levelStr == "" && levelGetter != nil {
		levelStr = levelGetter()
	}
	level := parseLogLevel(levelStr)

	base, err := paths.Base()
	if err != nil {
		logger = createLogger(os.Stderr, level)
		return nil //nolint:nilerr // fallback to stderr is an acceptable degraded mode
	}

	logsPath := filepath.Join(base, LogsDirName)
	if err := os.MkdirAll(logsPath, 0o750); err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	name := time.Now().Format("2006-01-02") + ".log"
	f, err := os.OpenFile(filepath.Join(logsPath, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	logFile = f
	logBufWriter = bufio.NewWriterSize(f, 8192)
	logger = createLogger(logBufWriter, level)
	return nil
}

// Close flushes and closes the log file, if one is open. Safe to call
// multiple times.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logBufWriter != nil {
		_ = logBufWriter.Flush()
		logBufWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func createLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none":
		return slog.Level(100) // effectively disables output below this
	default:
		return slog.LevelInfo
	}
}

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	branchKey
	toolKey
	actorKey
)

func WithSession(ctx context.Context, id string) context.Context { return context.WithValue(ctx, sessionIDKey, id) }
func WithBranch(ctx context.Context, b string) context.Context   { return context.WithValue(ctx, branchKey, b) }
func WithTool(ctx context.Context, t string) context.Context     { return context.WithValue(ctx, toolKey, t) }
func WithActor(ctx context.Context, a string) context.Context    { return context.WithValue(ctx, actorKey, a) }

func Debug(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelDebug, msg, attrs...) }
func Info(ctx context.Context, msg string, attrs ...any)  { log(ctx, slog.LevelInfo, msg, attrs...) }
func Warn(ctx context.Context, msg string, attrs ...any)  { log(ctx, slog.LevelWarn, msg, attrs...) }
func Error(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelError, msg, attrs...) }

func log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	l := getLogger()
	all := make([]any, 0, len(attrs)+4)
	all = append(all, attrsFromContext(ctx)...)
	all = append(all, attrs...)
	l.Log(nil, level, msg, all...) //nolint:staticcheck // context values already flattened into attrs
}

func attrsFromContext(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	var attrs []any
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("session_id", v))
	}
	if v, ok := ctx.Value(branchKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("branch", v))
	}
	if v, ok := ctx.Value(toolKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("tool", v))
	}
	if v, ok := ctx.Value(actorKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("actor", v))
	}
	return attrs
}

// Sprintf is a small helper so callers building one-off log messages don't
// need a direct fmt import purely for that.
func Sprintf(format string, args ...any) string { return fmt.Sprintf(format, args...) }
