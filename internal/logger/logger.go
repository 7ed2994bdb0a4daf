package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines the configuration options for the logger.
type Config struct {
	// LogLevel sets the minimum enabled level: "debug", "info", "warn" or "error".
	LogLevel string

	// LogFile is the path of the log file. The terminal belongs to the TUI,
	// so nothing is ever written to stdout.
	LogFile string

	// LogFileSize is the maximum size in megabytes before rotation. Defaults to 10.
	LogFileSize int

	// LogFileCount is the number of rotated files to keep. Defaults to 3.
	LogFileCount int

	LogCompress bool
}

var log = zerolog.Nop()

// InitLogger initializes the package logger. An empty LogFile disables logging.
func InitLogger(config Config) error {
	if config.LogFile == "" {
		log = zerolog.Nop()
		return nil
	}
	if config.LogFileSize == 0 {
		config.LogFileSize = 10
	}
	if config.LogFileCount == 0 {
		config.LogFileCount = 3
	}
	if err := os.MkdirAll(filepath.Dir(config.LogFile), 0755); err != nil {
		return err
	}
	SetOutput(&lumberjack.Logger{
		Filename:   config.LogFile,
		MaxSize:    config.LogFileSize,
		MaxBackups: config.LogFileCount,
		MaxAge:     28,
		Compress:   config.LogCompress,
	}, config.LogLevel)
	return nil
}

// SetOutput points the package logger at w.
func SetOutput(w io.Writer, level string) {
	log = zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func Debug() *zerolog.Event { return log.Debug() }
func Info() *zerolog.Event  { return log.Info() }
func Warn() *zerolog.Event  { return log.Warn() }
func Error() *zerolog.Event { return log.Error() }

// With returns a child logger carrying a component name.
func With(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
