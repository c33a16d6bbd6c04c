package logging

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options configures New. Service, Version and Env become fields on every
// entry when set.
type Options struct {
	Format  string
	Level   Level
	Service string
	Version string
	Env     string
	Output  zapcore.WriteSyncer
}

// Logger is a key/value front for zap that adds trace ids from the context.
type Logger struct {
	zap *zap.Logger
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(NewNop())
}

// New builds a JSON logger on stdout or, for FormatConsole, a colored
// console logger on stderr.
func New(opts Options) *Logger {
	var (
		encoder zapcore.Encoder
		out     = opts.Output
		zapOpts = []zap.Option{zap.AddCaller()}
	)

	if strings.EqualFold(strings.TrimSpace(opts.Format), FormatConsole) {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
		if out == nil {
			out = os.Stderr
		}
	} else {
		encoder = zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		})
		if out == nil {
			out = os.Stdout
		}
		zapOpts = append(zapOpts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	var base []zap.Field
	for _, kv := range [][2]string{{"service", opts.Service}, {"version", opts.Version}, {"env", opts.Env}} {
		if value := strings.TrimSpace(kv[1]); value != "" {
			base = append(base, zap.String(kv[0], value))
		}
	}
	if len(base) > 0 {
		zapOpts = append(zapOpts, zap.Fields(base...))
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(out), opts.Level)
	return FromZap(zap.New(core, zapOpts...))
}

// ParseLevel maps debug, info, warn and error to a Level. Anything else is info.
func ParseLevel(raw string) Level {
	level, err := zapcore.ParseLevel(strings.TrimSpace(strings.ToLower(raw)))
	if err != nil {
		return LevelInfo
	}
	return level
}

func NewNop() *Logger {
	return FromZap(zap.NewNop())
}

func FromZap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{zap: z}
}

func Default() *Logger {
	if logger := defaultLogger.Load(); logger != nil {
		return logger
	}
	return NewNop()
}

func SetDefault(logger *Logger) {
	if logger == nil {
		logger = NewNop()
	}
	defaultLogger.Store(logger)
}

func (l *Logger) Zap() *zap.Logger {
	return l.orDefault().zap
}

// Sync flushes buffered entries. Terminals and pipes reject fsync, so that
// error is dropped.
func (l *Logger) Sync() error {
	err := l.orDefault().zap.Sync()
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && (pathErr.Path == "/dev/stdout" || pathErr.Path == "/dev/stderr") {
		return nil
	}
	return err
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{zap: l.orDefault().zap.With(zapFields(args)...)}
}

// Named returns a child logger tagged with a component name.
func (l *Logger) Named(component string) *Logger {
	return &Logger{zap: l.orDefault().zap.Named(component)}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.write(nil, zap.DebugLevel, msg, args)
}

func (l *Logger) Info(msg string, args ...any) {
	l.write(nil, zap.InfoLevel, msg, args)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.write(nil, zap.WarnLevel, msg, args)
}

func (l *Logger) Error(msg string, args ...any) {
	l.write(nil, zap.ErrorLevel, msg, args)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.write(ctx, zap.DebugLevel, msg, args)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.write(ctx, zap.InfoLevel, msg, args)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.write(ctx, zap.WarnLevel, msg, args)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.write(ctx, zap.ErrorLevel, msg, args)
}

func (l *Logger) orDefault() *Logger {
	if l == nil || l.zap == nil {
		return Default()
	}
	return l
}

func (l *Logger) write(ctx context.Context, level zapcore.Level, msg string, args []any) {
	ce := l.orDefault().zap.Check(level, msg)
	if ce == nil {
		return
	}
	fields := zapFields(args)
	fields = append(fields, traceFields(ctx)...)
	ce.Write(fields...)
}

func traceFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	}
}

// zapFields pairs args as key, value. A non-string key becomes "arg" and a
// trailing key gets a nil value.
func zapFields(args []any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	out := make([]zap.Field, 0, (len(args)+1)/2+2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok || key == "" {
			key = "arg"
		}
		if i+1 >= len(args) {
			out = append(out, zap.Any(key, nil))
			break
		}

		switch value := args[i+1].(type) {
		case error:
			out = append(out, zap.NamedError(key, value))
		case zap.Field:
			out = append(out, value)
		default:
			out = append(out, zap.Any(key, value))
		}
	}
	return out
}
