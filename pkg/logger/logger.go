package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	case FATAL:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel accepts the zerolog level names, case-insensitively.
func ParseLevel(s string) (LogLevel, bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || s == "" {
		return INFO, false
	}
	switch lvl {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return DEBUG, true
	case zerolog.WarnLevel:
		return WARN, true
	case zerolog.ErrorLevel:
		return ERROR, true
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return FATAL, true
	default:
		return INFO, true
	}
}

type Format string

const (
	FormatAuto    Format = "auto"    // console on a terminal, JSON otherwise
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

type Config struct {
	Level      LogLevel
	Component  string
	Format     Format
	Colorize   bool
	ShowCaller bool
	ShowTime   bool
	TimeFormat string
	Output     io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Format:     FormatAuto,
		Colorize:   true,
		ShowTime:   true,
		TimeFormat: "2006-01-02 15:04:05",
		Output:     os.Stderr,
	}
}

type Logger struct {
	mu  sync.RWMutex
	cfg Config
	zl  zerolog.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02 15:04:05"
	}
	if cfg.Format == "" {
		cfg.Format = FormatAuto
	}
	l := &Logger{cfg: cfg}
	l.rebuild()
	return l
}

// GetLogger returns the process-wide logger, configured from LOG_LEVEL and
// LOG_FORMAT on first use.
func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if lvl, ok := ParseLevel(os.Getenv("LOG_LEVEL")); ok {
			cfg.Level = lvl
		}
		switch Format(strings.ToLower(os.Getenv("LOG_FORMAT"))) {
		case FormatJSON:
			cfg.Format = FormatJSON
		case FormatConsole:
			cfg.Format = FormatConsole
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// rebuild must be called with mu held for writing, or before l is shared.
func (l *Logger) rebuild() {
	cfg := l.cfg

	var w io.Writer = cfg.Output
	format := cfg.Format
	if format == FormatAuto {
		format = FormatJSON
		if isTerminal(cfg.Output) {
			format = FormatConsole
		}
	}
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			NoColor:    !cfg.Colorize,
			TimeFormat: cfg.TimeFormat,
		}
	}

	ctx := zerolog.New(w).Level(cfg.Level.zerolog()).With()
	if cfg.ShowTime {
		ctx = ctx.Timestamp()
	}
	if cfg.Component != "" {
		ctx = ctx.Str("component", cfg.Component)
	}
	if cfg.ShowCaller {
		// Infof -> log -> Msgf
		ctx = ctx.CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 2)
	}
	l.zl = ctx.Logger()
}

func (l *Logger) update(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.cfg)
	l.rebuild()
}

func (l *Logger) SetLevel(level LogLevel) {
	l.update(func(c *Config) { c.Level = level })
}

func (l *Logger) SetOutput(w io.Writer) {
	l.update(func(c *Config) { c.Output = w })
}

func (l *Logger) SetColorize(colorize bool) {
	l.update(func(c *Config) { c.Colorize = colorize })
}

func (l *Logger) SetShowCaller(show bool) {
	l.update(func(c *Config) { c.ShowCaller = show })
}

func (l *Logger) SetFormat(f Format) {
	l.update(func(c *Config) { c.Format = f })
}

func (l *Logger) Level() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg.Level
}

// With returns a child logger tagged with a component name.
func (l *Logger) With(component string) *Logger {
	l.mu.RLock()
	cfg := l.cfg
	l.mu.RUnlock()
	cfg.Component = component
	return New(cfg)
}

// Zerolog exposes the underlying logger for structured fields.
func (l *Logger) Zerolog() zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.zl
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	l.mu.RLock()
	zl := l.zl
	l.mu.RUnlock()

	var ev *zerolog.Event
	switch level {
	case DEBUG:
		ev = zl.Debug()
	case INFO:
		ev = zl.Info()
	case WARN:
		ev = zl.Warn()
	case ERROR:
		ev = zl.Error()
	case FATAL:
		ev = zl.Fatal()
	default:
		ev = zl.Info()
	}
	if len(args) > 0 {
		ev.Msgf(msg, args...)
		return
	}
	ev.Msg(msg)
}

func (l *Logger) Debugf(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(WARN, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(ERROR, format, args...) }

// Fatalf logs at FATAL level and exits the program.
func (l *Logger) Fatalf(format string, args ...any) { l.log(FATAL, format, args...) }

// Package-level convenience functions using the default logger

func Debugf(format string, args ...any) { GetLogger().Debugf(format, args...) }
func Infof(format string, args ...any)  { GetLogger().Infof(format, args...) }
func Warnf(format string, args ...any)  { GetLogger().Warnf(format, args...) }
func Errorf(format string, args ...any) { GetLogger().Errorf(format, args...) }
func Fatalf(format string, args ...any) { GetLogger().Fatalf(format, args...) }

func SetLevel(level LogLevel) { GetLogger().SetLevel(level) }
func SetOutput(w io.Writer)   { GetLogger().SetOutput(w) }
func SetFormat(f Format)      { GetLogger().SetFormat(f) }

// SetTimeFormat changes the timestamp layout used in JSON output.
func SetTimeFormat(layout string) {
	zerolog.TimeFieldFormat = layout
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
