package handlers

import (
	"github.com/coredoor/smbd/internal/protocol/smb/types"
	v2 "github.com/coredoor/smbd/internal/protocol/smb/v2"
)

// SetInfo handles SMB2 SET_INFO for the three FileInfoClasses this server
// acts on: rename (tracked only — the in-memory backing has no rename
// primitive, so the path change is rejected with NOT_SUPPORTED rather than
// silently ignored), delete-on-close, and end-of-file. End-of-file is
// applied as a zero-length write at the new size: with the in-memory backing
// this extends the file, and a size smaller than the current one leaves the
// file unchanged.
func (h *Handler) SetInfo(req *v2.SetInfoRequest) *HandlerResult {
	if req.InfoType != types.InfoTypeFile {
		return NewErrorResult(types.StatusNotSupported)
	}

	f, ok := h.GetOpenFile(req.FileID)
	if !ok {
		return NewErrorResult(types.StatusFileClosed)
	}

	switch req.FileInfoClass {
	case types.FileDispositionInformation:
		info, err := v2.DecodeDispositionInformation(req.Data)
		if err != nil {
			return NewErrorResult(types.StatusInvalidParameter)
		}
		f.DeletePending = info.DeletePending
		return NewResult(types.StatusSuccess, v2.EncodeSetInfoResponse())

	case types.FileEndOfFileInformation:
		info, err := v2.DecodeEndOfFileInformation(req.Data)
		if err != nil {
			return NewErrorResult(types.StatusInvalidParameter)
		}
		if f.Handle == nil {
			return NewErrorResult(types.StatusInvalidParameter)
		}
		if _, err := f.Handle.Write(int64(info.EndOfFile), nil); err != nil {
			return NewErrorResult(types.StatusUnsuccessful)
		}
		return NewResult(types.StatusSuccess, v2.EncodeSetInfoResponse())

	case types.FileRenameInformation:
		if _, err := v2.DecodeRenameInformation(req.Data); err != nil {
			return NewErrorResult(types.StatusInvalidParameter)
		}
		return NewErrorResult(types.StatusNotSupported)

	default:
		return NewErrorResult(types.StatusNotSupported)
	}
}
