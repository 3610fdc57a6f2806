package telemetry

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a zerolog logger carrying workspace provider fields. Every With
// method returns a child; the receiver is never modified.
type Logger struct {
	zlog   zerolog.Logger
	config LoggingConfig
}

type loggerContextKey struct{}

// NewLogger creates a logger from cfg. Output is stdout, stderr or a file
// path opened for append.
func NewLogger(cfg LoggingConfig) (*Logger, error) {
	writer, err := logWriter(cfg.Output)
	if err != nil {
		return nil, err
	}

	switch cfg.TimeFormat {
	case "unix":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	case "unixms":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	case "unixmicro":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	default:
		zerolog.TimeFieldFormat = time.RFC3339
	}

	if cfg.Format == "console" {
		consoleTime := time.RFC3339
		if cfg.TimeFormat == "unix" {
			consoleTime = "unix"
		}
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: consoleTime}
	}

	zctx := zerolog.New(writer).With().Timestamp()
	if cfg.EnableCaller {
		zctx = zctx.Caller()
	}
	zlog := zctx.Logger().Level(parseLogLevel(cfg.Level))

	if cfg.EnableSampling {
		zlog = zlog.Sample(&zerolog.BurstSampler{
			Burst:       uint32(cfg.SamplingInitial),
			Period:      time.Second,
			NextSampler: &zerolog.BasicSampler{N: uint32(cfg.SamplingThereafter)},
		})
	}

	return &Logger{zlog: zlog, config: cfg}, nil
}

func logWriter(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "", "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
}

// NewWriterLogger creates a JSON logger writing to w at the given level.
func NewWriterLogger(w io.Writer, level string) *Logger {
	return &Logger{
		zlog:   zerolog.New(w).With().Timestamp().Logger().Level(parseLogLevel(level)),
		config: LoggingConfig{Level: level, Format: "json"},
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// WithContext returns a copy of ctx carrying l.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// FromContext returns the logger carried by ctx, or a stderr logger at info
// level when there is none.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*Logger); ok {
		return l
	}
	return NewWriterLogger(os.Stderr, "info")
}

func (l *Logger) child(zctx zerolog.Context) *Logger {
	return &Logger{zlog: zctx.Logger(), config: l.config}
}

// NewComponentLogger creates a child logger for a specific component.
func (l *Logger) NewComponentLogger(component string) *Logger {
	return l.child(l.zlog.With().Str("component", component))
}

// WithField returns a logger with a single additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.child(l.zlog.With().Interface(key, value))
}

// WithOperation adds the lifecycle operation.
func (l *Logger) WithOperation(operation string) *Logger {
	return l.child(l.zlog.With().Str("operation", operation))
}

// WithWorkspace adds the workspace name.
func (l *Logger) WithWorkspace(name string) *Logger {
	return l.child(l.zlog.With().Str("workspace", name))
}

// WithRequestToken adds the client request token.
func (l *Logger) WithRequestToken(token string) *Logger {
	return l.child(l.zlog.With().Str("request_token", token))
}

// WithAPI adds the remote API name.
func (l *Logger) WithAPI(api string) *Logger {
	return l.child(l.zlog.With().Str("api", api))
}

// WithError adds error information.
func (l *Logger) WithError(err error) *Logger {
	return l.child(l.zlog.With().Err(err))
}

// Zerolog returns the underlying zerolog logger for event-style logging.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.zlog.Debug().Msgf(format, args...) }

func (l *Logger) Info(msg string) { l.zlog.Info().Msg(msg) }

func (l *Logger) Infof(format string, args ...interface{}) { l.zlog.Info().Msgf(format, args...) }

func (l *Logger) Warn(msg string) { l.zlog.Warn().Msg(msg) }

func (l *Logger) Warnf(format string, args ...interface{}) { l.zlog.Warn().Msgf(format, args...) }

// parseLogLevel maps a configured level name to zerolog; unknown names are info.
func parseLogLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
