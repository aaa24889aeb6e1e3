package handlers

import (
	"github.com/coredoor/smbd/internal/protocol/smb/types"
	v2 "github.com/coredoor/smbd/internal/protocol/smb/v2"
)

// Close handles SMB2 CLOSE: it releases the underlying handle (or pipe) and
// removes the file from the open table, optionally echoing back final
// attributes when CloseFlagPostQuery was set.
func (h *Handler) Close(req *v2.CloseRequest) *HandlerResult {
	f, ok := h.GetOpenFile(req.FileID)
	if !ok {
		return NewErrorResult(types.StatusFileClosed)
	}

	if f.IsPipe {
		h.PipeManager.ClosePipe(f.FileID)
	} else if f.Handle != nil {
		if err := f.Handle.Close(); err != nil {
			return NewErrorResult(types.StatusUnsuccessful)
		}
	}
	h.DeleteOpenFile(req.FileID)

	resp := &v2.CloseResponse{}
	if req.Flags&v2.CloseFlagPostQuery != 0 && f.Handle != nil {
		if meta, err := f.Handle.Metadata(); err == nil {
			resp.Flags = req.Flags
			resp.Times = v2.CreateTimes{
				Creation:   toFILETIME(meta.Times.Created),
				LastAccess: toFILETIME(meta.Times.LastAccess),
				LastWrite:  toFILETIME(meta.Times.LastWrite),
				Change:     toFILETIME(meta.Times.Change),
			}
			resp.AllocationSize = meta.AllocationSize
			resp.EndOfFile = meta.EndOfFile
			resp.FileAttributes = uint32(meta.Attributes)
		}
	}

	return NewResult(types.StatusSuccess, resp.Encode())
}
