// Package logging configures zerolog for the binaries and carries the
// structured error helper shared by the packages.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrorCode classifies a logged failure.
type ErrorCode string

const (
	ErrCodeConfigLoadFailed  ErrorCode = "CONFIG_LOAD_FAILED"
	ErrCodeSinkOpenFailed    ErrorCode = "SINK_OPEN_FAILED"
	ErrCodeFetchFailed       ErrorCode = "FETCH_FAILED"
	ErrCodeTaskAttemptFailed ErrorCode = "TASK_ATTEMPT_FAILED"
	ErrCodeTaskFailed        ErrorCode = "TASK_FAILED"
	ErrCodeScheduleFailed    ErrorCode = "SCHEDULE_FAILED"
)

func (c ErrorCode) String() string {
	return string(c)
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Setup builds the process logger, installs it as log.Logger and returns it.
// pretty switches to the human-readable console writer on stderr.
func Setup(level string, pretty bool) zerolog.Logger {
	var out io.Writer = os.Stderr
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// Error logs err with its code and optional key/value fields.
func Error(l zerolog.Logger, err error, code ErrorCode, msg string, fields ...any) {
	event := l.Error().Err(err).Str("error_code", code.String())
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		event = event.Interface(key, fields[i+1])
	}
	event.Msg(msg)
}
