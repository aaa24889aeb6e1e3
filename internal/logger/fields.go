package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging across the SMB protocol core.
// Use these keys consistently so downstream aggregation/querying stays
// uniform across connection, session, tree, and open-level log statements.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Protocol & dispatch
	KeyDialect   = "dialect"
	KeyCommand   = "command"
	KeyMessageID = "message_id"
	KeyStatus    = "status"
	KeyStatusMsg = "status_msg"

	// Session / connection / tree / open identity
	KeyConnectionID = "connection_id"
	KeySessionID    = "session_id"
	KeyTreeID       = "tree_id"
	KeyFileID       = "file_id"
	KeyShare        = "share"
	KeyPath         = "path"

	// Client identification
	KeyClientIP   = "client_ip"
	KeyClientPort = "client_port"
	KeyUsername   = "username"
	KeyDomain     = "domain"

	// I/O
	KeyOffset       = "offset"
	KeyCount        = "count"
	KeyBytesRead    = "bytes_read"
	KeyBytesWritten = "bytes_written"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
)

// Dialect returns a slog.Attr for a negotiated dialect, formatted as hex
// (e.g. "0x0311") since that is how dialect values are conventionally read.
func Dialect(d uint16) slog.Attr {
	return slog.String(KeyDialect, fmt.Sprintf("0x%04x", d))
}

// Command returns a slog.Attr for an SMB2 command name.
func Command(name string) slog.Attr {
	return slog.String(KeyCommand, name)
}

// MessageID returns a slog.Attr for the SMB2 header MessageId field.
func MessageID(id uint64) slog.Attr {
	return slog.Uint64(KeyMessageID, id)
}

// Status returns a slog.Attr for an NT_STATUS code, formatted as hex.
func Status(code uint32) slog.Attr {
	return slog.String(KeyStatus, fmt.Sprintf("0x%08x", code))
}

// ConnectionID returns a slog.Attr for the connection identifier.
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// SessionID returns a slog.Attr for the session identifier.
func SessionID(id uint64) slog.Attr {
	return slog.Uint64(KeySessionID, id)
}

// TreeID returns a slog.Attr for the tree-connect identifier.
func TreeID(id uint32) slog.Attr {
	return slog.Uint64(KeyTreeID, uint64(id))
}

// FileID returns a slog.Attr for an open's persistent file id.
func FileID(id uint64) slog.Attr {
	return slog.Uint64(KeyFileID, id)
}

// Share returns a slog.Attr for the share name.
func Share(name string) slog.Attr {
	return slog.String(KeyShare, name)
}

// Path returns a slog.Attr for a file/directory path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// ClientIP returns a slog.Attr for the client's IP address.
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// Username returns a slog.Attr for the authenticated username.
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// Domain returns a slog.Attr for the authentication domain.
func Domain(name string) slog.Attr {
	return slog.String(KeyDomain, name)
}

// Offset returns a slog.Attr for a read/write byte offset.
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// Count returns a slog.Attr for a requested byte count.
func Count(c uint32) slog.Attr {
	return slog.Uint64(KeyCount, uint64(c))
}

// BytesRead returns a slog.Attr for actual bytes read.
func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

// BytesWritten returns a slog.Attr for actual bytes written.
func BytesWritten(n int) slog.Attr {
	return slog.Int(KeyBytesWritten, n)
}

// DurationMs returns a slog.Attr for an operation duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error, or a zero Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
