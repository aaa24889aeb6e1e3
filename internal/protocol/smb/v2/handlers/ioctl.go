package handlers

import (
	"github.com/coredoor/smbd/internal/protocol/smb/conn"
	"github.com/coredoor/smbd/internal/protocol/smb/types"
	v2 "github.com/coredoor/smbd/internal/protocol/smb/v2"
)

// Ioctl handles SMB2 IOCTL. Two FSCTLs are implemented: PIPE_TRANSCEIVE,
// the write+read round trip named-pipe RPC (SRVSVC share enumeration)
// rides on, and VALIDATE_NEGOTIATE_INFO, the downgrade-attack check
// clients run right after NEGOTIATE. Every other control code is reported
// unsupported rather than silently accepted.
func (h *Handler) Ioctl(c *conn.Connection, req *v2.IoctlRequest) *HandlerResult {
	switch req.CtlCode {
	case v2.FsctlPipeTranceive:
		return h.ioctlPipeTransceive(req)
	case v2.FsctlValidateNegotiateInfo:
		return h.ioctlValidateNegotiateInfo(c, req)
	default:
		return NewErrorResult(types.StatusNotSupported)
	}
}

func (h *Handler) ioctlPipeTransceive(req *v2.IoctlRequest) *HandlerResult {
	pipe := h.PipeManager.GetPipe(req.FileID)
	if pipe == nil {
		return NewErrorResult(types.StatusFileClosed)
	}

	output, err := pipe.Transact(req.InputData, int(req.MaxOutputResponse))
	if err != nil {
		return NewErrorResult(types.StatusInvalidParameter)
	}

	resp := &v2.IoctlResponse{
		CtlCode:    req.CtlCode,
		FileID:     req.FileID,
		OutputData: output,
		Flags:      req.Flags,
	}
	return NewResult(types.StatusSuccess, resp.Encode())
}

func (h *Handler) ioctlValidateNegotiateInfo(c *conn.Connection, req *v2.IoctlRequest) *HandlerResult {
	info, err := v2.DecodeValidateNegotiateInfoRequest(req.InputData)
	if err != nil {
		return NewErrorResult(types.StatusInvalidParameter)
	}

	if info.ClientGUID != c.Crypto.ClientGUID || types.Capabilities(info.Capabilities) != c.Crypto.ClientCapabilities {
		return NewErrorResult(types.StatusAccessDenied)
	}

	out := v2.ValidateNegotiateInfoResponse{
		Capabilities:    uint32(c.Crypto.ServerCapabilities),
		ServerGUID:      h.ServerGUID,
		SecurityMode:    uint16(c.Crypto.ServerSecurityMode),
		DialectRevision: uint16(c.Crypto.Dialect),
	}.Encode()

	resp := &v2.IoctlResponse{
		CtlCode:    req.CtlCode,
		FileID:     req.FileID,
		OutputData: out,
		Flags:      req.Flags,
	}
	return NewResult(types.StatusSuccess, resp.Encode())
}
