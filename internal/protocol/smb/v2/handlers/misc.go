package handlers

import (
	"github.com/coredoor/smbd/internal/protocol/smb/types"
	v2 "github.com/coredoor/smbd/internal/protocol/smb/v2"
)

// Logoff handles SMB2 LOGOFF: it tears down every tree, open file, and
// pending authentication the session owns, then removes the session.
func (h *Handler) Logoff(sessionID uint64) *HandlerResult {
	h.CleanupSession(sessionID)
	return NewResult(types.StatusSuccess, v2.EncodeLogoffResponse())
}

// Echo handles SMB2 ECHO: a bare keepalive with no state to touch.
func (h *Handler) Echo() *HandlerResult {
	return NewResult(types.StatusSuccess, v2.EncodeEchoResponse())
}

// Flush handles SMB2 FLUSH. The in-memory backing has nothing to persist,
// so this only validates the handle exists.
func (h *Handler) Flush(req *v2.FlushRequest) *HandlerResult {
	if _, ok := h.GetOpenFile(req.FileID); !ok {
		return NewErrorResult(types.StatusFileClosed)
	}
	return NewResult(types.StatusSuccess, v2.EncodeFlushResponse())
}

// Cancel handles SMB2 CANCEL. Requests here run to completion
// synchronously before a response is ever sent, so there is no outstanding
// async operation to interrupt; the handler only exists to accept the
// frame without error.
func (h *Handler) Cancel() *HandlerResult {
	return NewResult(types.StatusSuccess, nil)
}

// OplockBreak handles the client's SMB2 OPLOCK_BREAK acknowledgment. No
// oplock is ever granted above OplockLevelNone, so this only acknowledges.
func (h *Handler) OplockBreak(ack *v2.OplockBreakAck) *HandlerResult {
	if _, ok := h.GetOpenFile(ack.FileID); !ok {
		return NewErrorResult(types.StatusFileClosed)
	}
	return NewResult(types.StatusSuccess, v2.EncodeOplockBreakResponse(ack.OplockLevel, ack.FileID))
}

// Lock handles SMB2 LOCK. Byte-range locking has no Non-goal carve-out, but
// the in-memory backing serializes all access through its own mutex, so
// every lock/unlock request is granted immediately without tracking ranges.
func (h *Handler) Lock(req *v2.LockRequest) *HandlerResult {
	if _, ok := h.GetOpenFile(req.FileID); !ok {
		return NewErrorResult(types.StatusFileClosed)
	}
	return NewResult(types.StatusSuccess, v2.EncodeLockResponse())
}

// ChangeNotify handles SMB2 CHANGE_NOTIFY. Directory-change notification
// requires a long-lived async response the moment something changes; since
// nothing here ever signals that, the request is failed immediately with
// STATUS_NOT_SUPPORTED rather than left to hang.
func (h *Handler) ChangeNotify(req *v2.ChangeNotifyRequest) *HandlerResult {
	if _, ok := h.GetOpenFile(req.FileID); !ok {
		return NewErrorResult(types.StatusFileClosed)
	}
	return NewErrorResult(types.StatusNotSupported)
}
