package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLevel is returned when a level name cannot be parsed.
var ErrUnknownLevel = errors.New("unknown log level")

// Level is the severity of a log entry. The numeric value is the filtering
// priority: an entry passes a threshold when its priority is greater than or
// equal to the threshold's priority.
//
// Debug ranks below trace. The ordering is part of the wire contract with
// existing configurations and must not be "fixed".
type Level int

const (
	LevelDebug Level = iota
	LevelTrace
	LevelInfo
	LevelSuccess
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{
	LevelDebug:   "debug",
	LevelTrace:   "trace",
	LevelInfo:    "info",
	LevelSuccess: "success",
	LevelWarn:    "warn",
	LevelError:   "error",
	LevelFatal:   "fatal",
}

// Levels returns every level in display order.
func Levels() []Level {
	return []Level{LevelTrace, LevelDebug, LevelInfo, LevelSuccess, LevelWarn, LevelError, LevelFatal}
}

// Priority returns the filtering rank of the level.
func (l Level) Priority() int {
	return int(l)
}

// Valid reports whether l is one of the seven known levels.
func (l Level) Valid() bool {
	return l >= LevelDebug && l <= LevelFatal
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// Enabled reports whether l passes the min threshold.
func (l Level) Enabled(min Level) bool {
	return l.Priority() >= min.Priority()
}

// MarshalText encodes the level by name so JSON and TOML carry "info" rather
// than a number.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, int(l))
	}
	return []byte(levelNames[l]), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	case "info":
		return LevelInfo, nil
	case "success":
		return LevelSuccess, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	}
	return LevelDebug, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// RemoteEligible reports whether entries at this level may ever be forwarded
// to a remote collector. Only info, warn, error and fatal qualify, whatever
// the configured remote threshold.
func RemoteEligible(l Level) bool {
	switch l {
	case LevelInfo, LevelWarn, LevelError, LevelFatal:
		return true
	}
	return false
}
