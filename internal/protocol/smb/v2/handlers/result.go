// Package handlers implements the per-command SMB2 request handlers: the
// glue between a decoded v2 message-catalog record and the share/session
// packages that actually hold state. Each handler method takes a decoded
// request body (plus whatever connection/session/tree identity it needs)
// and returns a HandlerResult the dispatch package's RequestContext wraps
// in a response header.
package handlers

import "github.com/coredoor/smbd/internal/protocol/smb/types"

// HandlerResult is the outcome of a command handler: an encoded response
// body paired with the NT_STATUS the header should carry. Data is nil for
// pure-error results, where the dispatch package's makeErrorBody supplies the (empty) error body.
type HandlerResult struct {
	Data   []byte
	Status types.Status

	// TreeID is set only by TreeConnect, carrying the freshly generated tree
	// ID so dispatch can echo it in the response header (required by
	// [MS-SMB2] 3.3.5.7) and propagate it to any later request in the same
	// compound chain that reuses this connection via SMB2_FLAGS_RELATED_OPERATIONS.
	TreeID uint32
}

// NewResult builds a successful or partially-successful result.
func NewResult(status types.Status, data []byte) *HandlerResult {
	return &HandlerResult{Data: data, Status: status}
}

// NewErrorResult builds a result carrying no body, just a failing status.
func NewErrorResult(status types.Status) *HandlerResult {
	return &HandlerResult{Status: status}
}
