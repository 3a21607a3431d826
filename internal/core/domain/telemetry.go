package domain

import "strings"

// VertexStatus represents the outcome of one entrypoint within one run.
type VertexStatus string

const (
	// VertexStatusPending indicates the entrypoint has not been reached yet.
	VertexStatusPending VertexStatus = "pending"
	// VertexStatusRunning indicates the entrypoint is executing.
	VertexStatusRunning VertexStatus = "running"
	// VertexStatusCompleted indicates the entrypoint executed successfully.
	VertexStatusCompleted VertexStatus = "completed"
	// VertexStatusFailed indicates the entrypoint returned an error.
	VertexStatusFailed VertexStatus = "failed"
	// VertexStatusCached indicates the run was served from the result cache.
	VertexStatusCached VertexStatus = "cached"
	// VertexStatusSkipped indicates a failed constraint or an absent required import.
	VertexStatusSkipped VertexStatus = "skipped"
)

// LogLevel represents the severity of a log message, mirroring the standard slog levels.
type LogLevel int

const (
	// LogLevelDebug represents debug-level verbosity.
	LogLevelDebug LogLevel = -4
	// LogLevelInfo represents informational verbosity.
	LogLevelInfo LogLevel = 0
	// LogLevelWarn represents warning verbosity.
	LogLevelWarn LogLevel = 4
	// LogLevelError represents error verbosity.
	LogLevelError LogLevel = 8
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// IsTerminal checks if a status is a terminal state.
func (s VertexStatus) IsTerminal() bool {
	switch s {
	case VertexStatusCompleted, VertexStatusFailed, VertexStatusCached, VertexStatusSkipped:
		return true
	default:
		return false
	}
}

// NormalizeVertexStatus converts a string to a VertexStatus, defaulting to pending if unknown.
func NormalizeVertexStatus(s string) VertexStatus {
	switch st := VertexStatus(strings.ToLower(s)); st {
	case VertexStatusRunning, VertexStatusCompleted, VertexStatusFailed, VertexStatusCached, VertexStatusSkipped:
		return st
	default:
		return VertexStatusPending
	}
}
