package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelWarn  Level = "WARN"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	mu       sync.RWMutex
	sugar    *zap.SugaredLogger
	atom     = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	initOnce sync.Once
)

// initLogger installs the default sink: console encoding on stderr.
func initLogger() {
	initOnce.Do(func() {
		mu.Lock()
		sugar = build(os.Stderr)
		mu.Unlock()
	})
}

func build(w io.Writer) *zap.SugaredLogger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), atom)
	return zap.New(core).Sugar()
}

// SetOutput redirects log output. Mostly useful in tests.
func SetOutput(w io.Writer) {
	initLogger()
	mu.Lock()
	sugar = build(w)
	mu.Unlock()
}

func SetLevel(l Level) {
	atom.SetLevel(toZap(l))
}

// ParseLevel maps a config string ("debug", "info", ...) to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	logger().Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	logger().Infow(msg, kv...)
}

func Warn(msg string, kv ...any) {
	logger().Warnw(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logger().Errorw(msg, extended...)
}

// Sync flushes buffered entries; call before exit.
func Sync() {
	_ = logger().Sync()
}

func logger() *zap.SugaredLogger {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func toZap(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
