package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"

	"github.com/puntomapa/puntomapa/internal/config"
)

// ParseLevel converts a string log level to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// OpenLogFile creates the logs directory if needed and opens a timestamped
// log file inside it.
func OpenLogFile(logsDir string) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating logs dir: %w", err)
	}
	name := fmt.Sprintf("puntomapa-%s.log", time.Now().UTC().Format("2006-01-02T15-04-05"))
	file, err := os.OpenFile(filepath.Join(logsDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}
	return file, nil
}

// Setup builds the service logger: colored console output, plain console
// format to the log file, and an optional GELF writer when Graylog shipping
// is enabled. A nil file skips the file writer.
func Setup(level string, file *os.File, graylog config.GraylogConfig) (zerolog.Logger, error) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	writers := []io.Writer{
		// write console format with colors to console
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
	}

	if file != nil {
		// write console format without colors to file
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}

	if graylog.Enabled {
		gw, err := gelf.NewWriter(graylog.Address)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("error creating GELF writer: %w", err)
		}
		writers = append(writers, gw)
	}

	mlw := zerolog.MultiLevelWriter(writers...)
	logger := zerolog.New(mlw).With().Timestamp().Logger()
	logger.Info().Str("level", level).Msg("Logging initialized")
	return logger, nil
}
