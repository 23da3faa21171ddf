package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Field names shared by every component so log queries stay uniform.
const (
	FieldService    = "service"
	FieldComponent  = "component"
	FieldGiveawayID = "giveaway_id"
	FieldRequestID  = "request_id"
)

// FormatJSON selects one JSON object per line instead of console output.
const FormatJSON = "json"

// Init replaces the global logger.
func Init(serviceName string, debug bool, format string) {
	log.Logger = New(os.Stdout, serviceName, debug, format)
	log.Info().Str("format", format).Msg("Logger initialized")
}

// New builds a logger writing to out. Any format other than FormatJSON
// produces console output.
func New(out io.Writer, serviceName string, debug bool, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.MessageFieldName = "message"

	if format != FormatJSON {
		out = consoleWriter(out)
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str(FieldService, serviceName).
		Logger()
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    out != os.Stdout,
		TimeFormat: time.RFC3339,
		FormatLevel: func(i interface{}) string {
			return fmt.Sprintf("| %-6s|", i)
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("| %s", i)
		},
	}
}

// Component returns a child of the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return WithComponent(log.Logger, name)
}

func WithComponent(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(FieldComponent, name).Logger()
}

func WithGiveaway(l zerolog.Logger, giveawayID string) zerolog.Logger {
	return l.With().Str(FieldGiveawayID, giveawayID).Logger()
}

func WithRequest(l zerolog.Logger, requestID string) zerolog.Logger {
	return l.With().Str(FieldRequestID, requestID).Logger()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

// Fatal logs and exits the process.
func Fatal() *zerolog.Event {
	return log.Fatal()
}
