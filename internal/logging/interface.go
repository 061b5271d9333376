package logging

import "github.com/demyz/dou-jobs-feed/internal/logging/types"

type LogLevel = types.LogLevel
type LogEntry = types.LogEntry
type LogAdapter = types.LogAdapter
type Logger = types.Logger
type AdapterConfig = types.AdapterConfig

const (
	DebugLevel = types.DebugLevel
	InfoLevel  = types.InfoLevel
	WarnLevel  = types.WarnLevel
	ErrorLevel = types.ErrorLevel
	FatalLevel = types.FatalLevel
)

// ParseLogLevel converts a string level into a LogLevel
func ParseLogLevel(level string) LogLevel {
	return types.ParseLogLevel(level)
}
