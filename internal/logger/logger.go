package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger is the global logger instance
	Logger *log.Logger
)

const (
	defaultFileName   = "habitflow.log"
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
	defaultMaxAgeDays = 28
)

// Config holds logger configuration
type Config struct {
	Debug     bool
	ConfigDir string
	// FileName defaults to habitflow.log; the server uses its own file
	FileName string
	// Stderr mirrors output to stderr even outside debug mode (serve/watch)
	Stderr bool
	// Level is a charm log level name; empty means info. Debug overrides it.
	Level string
	// JSON switches the formatter from text to one JSON object per line
	JSON bool

	// Rotation limits for the log file; zero picks the default
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ParseLevel accepts the level names used in the config file.
func ParseLevel(name string) (log.Level, error) {
	if name == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(name)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	if cfg.Debug {
		level = log.DebugLevel
	}

	// Logs live next to the config file
	logDir := filepath.Join(cfg.ConfigDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	name := cfg.FileName
	if name == "" {
		name = defaultFileName
	}

	// Create rotating file handler
	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, name),
		MaxSize:    orDefault(cfg.MaxSizeMB, defaultMaxSizeMB), // megabytes
		MaxBackups: orDefault(cfg.MaxBackups, defaultMaxBackups),
		MaxAge:     orDefault(cfg.MaxAgeDays, defaultMaxAgeDays), // days
		Compress:   true,
	}

	// Long-running commands and debug mode also write to stderr
	var writer io.Writer = fileWriter
	if cfg.Debug || cfg.Stderr {
		writer = io.MultiWriter(os.Stderr, fileWriter)
	}

	formatter := log.TextFormatter
	if cfg.JSON {
		formatter = log.JSONFormatter
	}

	Logger = log.NewWithOptions(writer, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "habitflow",
		Formatter:       formatter,
	})

	return nil
}

// SetOutput points the global logger at w, used by tests to capture output
func SetOutput(w io.Writer) {
	Logger = log.NewWithOptions(w, log.Options{
		Level:  log.DebugLevel,
		Prefix: "habitflow",
	})
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

// Info logs an info message
func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

// Error logs an error message
func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}
