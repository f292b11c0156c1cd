package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured logger handed to components.
type Logger = logrus.FieldLogger

// Fields is a set of structured log fields.
type Fields = logrus.Fields

// Options configures the process-wide logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text, json or auto
	File   string // optional rotated log file; empty logs to stderr only
}

var std = newStd()

func newStd() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Setup applies opts to the process-wide logger.
func Setup(opts Options) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	std.SetLevel(level)

	var out io.Writer = os.Stderr
	if opts.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	std.SetOutput(out)

	switch strings.ToLower(opts.Format) {
	case "json":
		std.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "", "auto":
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		} else {
			std.SetFormatter(&logrus.JSONFormatter{})
		}
	default:
		return fmt.Errorf("invalid log format %q", opts.Format)
	}

	return nil
}

// SetLevel changes the minimum level that is emitted.
func SetLevel(level logrus.Level) {
	std.SetLevel(level)
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// Base returns the process-wide logger.
func Base() *logrus.Logger {
	return std
}

func WithField(key string, value interface{}) Logger {
	return std.WithField(key, value)
}

func WithFields(fields Fields) Logger {
	return std.WithFields(fields)
}

func WithError(err error) Logger {
	return std.WithError(err)
}

func Debug(args ...interface{}) { std.Debug(args...) }
func Info(args ...interface{})  { std.Info(args...) }
func Warn(args ...interface{})  { std.Warn(args...) }
func Error(args ...interface{}) { std.Error(args...) }
