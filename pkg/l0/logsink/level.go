package logsink

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Level is the severity of a log line.
type Level int

// Levels in increasing severity. LevelOff is only meaningful as a filter.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "OFF"}

// String implements fmt.Stringer.
func (l Level) String() string {
	if l < LevelTrace || l > LevelOff {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel parses a level name, case-insensitive.
func ParseLevel(s string) (Level, error) {
	for n, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(n), nil
		}
	}
	return LevelOff, errors.Newf("unknown log level %q", s)
}
