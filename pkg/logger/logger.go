package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes structured entries through zerolog. Error entries are also
// handed to the log collector when one is attached. Child loggers created
// with With share the parent's collector.
type Logger struct {
	zl     zerolog.Logger
	fields []Field
	sink   *collectorSink
}

type collectorSink struct {
	mu sync.RWMutex
	c  *LogCollector
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string

	// Rotation applies when Output is a file path.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// callerSkip covers zerolog, Logger.log and the level method.
const callerSkip = 4

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	case "":
		return nil, fmt.Errorf("log output is required")
	default:
		output = &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	}

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: cfg.TimeFormat}
	}

	zl := zerolog.New(output).With().Timestamp().CallerWithSkipFrameCount(callerSkip).Logger()
	return &Logger{zl: zl, sink: &collectorSink{}}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.New(io.Discard), sink: &collectorSink{}}
}

// With returns a child logger that adds fields to every entry, e.g. a run id.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.addToContext(ctx)
	}
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{zl: ctx.Logger(), fields: merged, sink: l.sink}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(l.zl.Warn(), msg, fields) }

func (l *Logger) Error(msg string, fields ...Field) {
	l.log(l.zl.Error(), msg, fields)
	l.collect("error", msg, fields)
}

func (l *Logger) log(event *zerolog.Event, msg string, fields []Field) {
	if event == nil {
		return
	}
	for _, f := range fields {
		f.add(event)
	}
	event.Msg(msg)
}

func (l *Logger) collect(level, msg string, fields []Field) {
	l.sink.mu.RLock()
	c := l.sink.c
	l.sink.mu.RUnlock()
	if c == nil {
		return
	}

	// collect <- Error <- caller
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		parts := strings.Split(file, "FinWalk")
		caller = fmt.Sprintf("%s:%d", parts[len(parts)-1], line)
	}

	values := make(map[string]interface{}, len(l.fields)+len(fields))
	for _, f := range l.fields {
		values[f.Key] = f.Value
	}
	for _, f := range fields {
		values[f.Key] = f.Value
	}
	c.AddLog(level, msg, values, caller)
}

// AddCollector attaches a collector, closing the previous one.
func (l *Logger) AddCollector(config *CollectionConfig) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.c != nil {
		l.sink.c.Close()
	}
	l.sink.c = NewLogCollector(config)
}

// RemoveCollector flushes and detaches the collector.
func (l *Logger) RemoveCollector() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.c != nil {
		l.sink.c.Close()
		l.sink.c = nil
	}
}

// Field is one typed key/value of a log entry. Value is what the collector
// aggregates on.
type Field struct {
	Key   string
	Value interface{}
	add   func(e *zerolog.Event)
	ctx   func(c zerolog.Context) zerolog.Context
}

func (f Field) addToContext(c zerolog.Context) zerolog.Context {
	if f.ctx == nil {
		return c.Interface(f.Key, f.Value)
	}
	return f.ctx(c)
}

func String(key, value string) Field {
	return Field{
		Key: key, Value: value,
		add: func(e *zerolog.Event) { e.Str(key, value) },
		ctx: func(c zerolog.Context) zerolog.Context { return c.Str(key, value) },
	}
}

func Int(key string, value int) Field {
	return Field{
		Key: key, Value: value,
		add: func(e *zerolog.Event) { e.Int(key, value) },
		ctx: func(c zerolog.Context) zerolog.Context { return c.Int(key, value) },
	}
}

func Float64(key string, value float64) Field {
	return Field{
		Key: key, Value: value,
		add: func(e *zerolog.Event) { e.Float64(key, value) },
		ctx: func(c zerolog.Context) zerolog.Context { return c.Float64(key, value) },
	}
}

func Bool(key string, value bool) Field {
	return Field{
		Key: key, Value: value,
		add: func(e *zerolog.Event) { e.Bool(key, value) },
		ctx: func(c zerolog.Context) zerolog.Context { return c.Bool(key, value) },
	}
}

// Duration logs whole milliseconds.
func Duration(key string, value time.Duration) Field {
	ms := value.Milliseconds()
	return Field{
		Key: key, Value: ms,
		add: func(e *zerolog.Event) { e.Int64(key, ms) },
		ctx: func(c zerolog.Context) zerolog.Context { return c.Int64(key, ms) },
	}
}

func Error(err error) Field {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Field{
		Key: zerolog.ErrorFieldName, Value: msg,
		add: func(e *zerolog.Event) { e.Err(err) },
		ctx: func(c zerolog.Context) zerolog.Context { return c.Err(err) },
	}
}
