package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds per-connection/session logging context threaded through
// the dispatch chain so handler log lines automatically carry routing
// identity without every handler having to repeat it.
type LogContext struct {
	TraceID      string
	SpanID       string
	ConnectionID string
	SessionID    uint64
	TreeID       uint32
	ClientIP     string
	Command      string
	StartTime    time.Time
}

// WithContext returns a new context carrying the given LogContext.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from ctx, or nil if absent.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext scoped to a freshly accepted connection.
func NewLogContext(connectionID, clientIP string) *LogContext {
	return &LogContext{
		ConnectionID: connectionID,
		ClientIP:     clientIP,
		StartTime:    time.Now(),
	}
}

// Clone returns a shallow copy of lc (nil-safe).
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithSession returns a copy of lc with the session id set.
func (lc *LogContext) WithSession(sessionID uint64) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.SessionID = sessionID
	}
	return clone
}

// WithTree returns a copy of lc with the tree id set.
func (lc *LogContext) WithTree(treeID uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TreeID = treeID
	}
	return clone
}

// WithCommand returns a copy of lc with the command name set.
func (lc *LogContext) WithCommand(command string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Command = command
	}
	return clone
}

// DurationMs returns the elapsed time since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
