package logging

import (
	"log/slog"
	"strings"
)

// DefaultLevel applies when log_level is empty or unrecognised.
const DefaultLevel = slog.LevelInfo

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// ParseLevel maps a log_level value to a slog.Level, ignoring case and
// surrounding space. ok is false for unknown names, in which case level is
// DefaultLevel.
func ParseLevel(s string) (level slog.Level, ok bool) {
	level, ok = levelNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return DefaultLevel, false
	}
	return level, true
}

// ParseLevelOrDefault is ParseLevel without the ok flag.
func ParseLevelOrDefault(s string) slog.Level {
	level, _ := ParseLevel(s)
	return level
}
