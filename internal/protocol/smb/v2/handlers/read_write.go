package handlers

import (
	"github.com/coredoor/smbd/internal/protocol/smb/types"
	v2 "github.com/coredoor/smbd/internal/protocol/smb/v2"
)

// Read handles SMB2 READ against both regular files and IPC$ named pipes,
// where it drains whatever the pipe's last WRITE left buffered.
func (h *Handler) Read(req *v2.ReadRequest) *HandlerResult {
	f, ok := h.GetOpenFile(req.FileID)
	if !ok {
		return NewErrorResult(types.StatusFileClosed)
	}

	if f.IsPipe {
		pipe := h.PipeManager.GetPipe(req.FileID)
		if pipe == nil {
			return NewErrorResult(types.StatusFileClosed)
		}
		data := pipe.ProcessRead(int(req.Length))
		if len(data) == 0 {
			return NewErrorResult(types.StatusEndOfFile)
		}
		resp := &v2.ReadResponse{Data: data}
		return NewResult(types.StatusSuccess, resp.Encode())
	}

	if f.Handle == nil {
		return NewErrorResult(types.StatusFileClosed)
	}
	data, err := f.Handle.Read(int64(req.Offset), int(req.Length))
	if err != nil {
		return NewErrorResult(types.StatusUnsuccessful)
	}
	if len(data) == 0 {
		return NewErrorResult(types.StatusEndOfFile)
	}

	resp := &v2.ReadResponse{Data: data}
	return NewResult(types.StatusSuccess, resp.Encode())
}

// Write handles SMB2 WRITE against both regular files and IPC$ named
// pipes, where the payload is handed to ProcessWrite for DCE/RPC framing.
func (h *Handler) Write(req *v2.WriteRequest) *HandlerResult {
	f, ok := h.GetOpenFile(req.FileID)
	if !ok {
		return NewErrorResult(types.StatusFileClosed)
	}

	if f.IsPipe {
		pipe := h.PipeManager.GetPipe(req.FileID)
		if pipe == nil {
			return NewErrorResult(types.StatusFileClosed)
		}
		if err := pipe.ProcessWrite(req.Data); err != nil {
			return NewErrorResult(types.StatusInvalidParameter)
		}
		resp := &v2.WriteResponse{Count: uint32(len(req.Data))}
		return NewResult(types.StatusSuccess, resp.Encode())
	}

	if f.Handle == nil {
		return NewErrorResult(types.StatusFileClosed)
	}
	n, err := f.Handle.Write(int64(req.Offset), req.Data)
	if err != nil {
		return NewErrorResult(types.StatusUnsuccessful)
	}

	resp := &v2.WriteResponse{Count: uint32(n)}
	return NewResult(types.StatusSuccess, resp.Encode())
}
