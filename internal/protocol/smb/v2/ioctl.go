package v2

import (
	"fmt"

	"github.com/coredoor/smbd/internal/wire"
)

// IOCTL control codes the handler layer recognizes. [MS-SMB2] 2.2.31.
const (
	FsctlPipeTranceive          uint32 = 0x0011C017
	FsctlValidateNegotiateInfo  uint32 = 0x00140204
	FsctlSrvRequestResumeKey    uint32 = 0x00140078
	FsctlSrvCopyChunk           uint32 = 0x001440F2
	FsctlSrvEnumerateSnapshots  uint32 = 0x00144064
	FsctlDfsGetReferrals        uint32 = 0x00060194
)

// IOCTL request Flags. [MS-SMB2] 2.2.31.
const IoctlFlagIsFsctl uint32 = 0x00000001

// ioctlReqFixedSize is the 56-byte fixed IOCTL request structure.
const ioctlReqFixedSize = 56

// IoctlRequest is the SMB2 IOCTL request body. [MS-SMB2] 2.2.31.
type IoctlRequest struct {
	CtlCode           uint32
	FileID            [16]byte
	InputData         []byte
	MaxInputResponse  uint32
	MaxOutputResponse uint32
	Flags             uint32
}

// DecodeIoctlRequest parses an IOCTL request body.
func DecodeIoctlRequest(body []byte) (*IoctlRequest, error) {
	if len(body) < ioctlReqFixedSize {
		return nil, fmt.Errorf("ioctl request: body too short: %d bytes", len(body))
	}
	r := wire.NewReader(body)
	r.ExpectUint16(57) // StructureSize
	r.Skip(2)          // Reserved
	req := &IoctlRequest{}
	req.CtlCode = r.ReadUint32()
	copy(req.FileID[:], r.ReadBytes(16))
	inputOffset := r.ReadUint32()
	inputCount := r.ReadUint32()
	req.MaxInputResponse = r.ReadUint32()
	r.Skip(8) // OutputOffset(4) + OutputCount(4), unused on requests
	req.MaxOutputResponse = r.ReadUint32()
	req.Flags = r.ReadUint32()
	r.Skip(4) // Reserved2
	if r.Err() != nil {
		return nil, fmt.Errorf("ioctl request: %w", r.Err())
	}

	if inputCount > 0 {
		start := wire.HeaderOffset(inputOffset)
		if start < ioctlReqFixedSize {
			start = ioctlReqFixedSize
		}
		if start+int(inputCount) <= len(body) {
			req.InputData = body[start : start+int(inputCount)]
		}
	}
	return req, nil
}

// IoctlResponse is the SMB2 IOCTL response body. [MS-SMB2] 2.2.32.
type IoctlResponse struct {
	CtlCode    uint32
	FileID     [16]byte
	InputData  []byte
	OutputData []byte
	Flags      uint32
}

// ioctlRespFixedSize is the 48-byte fixed IOCTL response structure.
const ioctlRespFixedSize = 48

// Encode serializes the IOCTL response.
func (resp *IoctlResponse) Encode() []byte {
	w := wire.NewWriter(ioctlRespFixedSize + len(resp.InputData) + len(resp.OutputData))
	w.WriteUint16(49) // StructureSize
	w.WriteUint16(0)  // Reserved
	w.WriteUint32(resp.CtlCode)
	w.WriteBytes(resp.FileID[:])

	inputOffOffset := w.Len()
	w.WriteUint32(0) // InputOffset, back-patched below
	w.WriteUint32(uint32(len(resp.InputData)))
	outputOffOffset := w.Len()
	w.WriteUint32(0) // OutputOffset, back-patched below
	w.WriteUint32(uint32(len(resp.OutputData)))
	w.WriteUint32(0) // Flags2
	w.WriteUint32(0) // Reserved2

	if len(resp.InputData) > 0 {
		w.WriteUint32At(inputOffOffset, uint32(64+w.Len()))
		w.WriteBytes(resp.InputData)
	}
	if len(resp.OutputData) > 0 {
		w.WriteUint32At(outputOffOffset, uint32(64+w.Len()))
		w.WriteBytes(resp.OutputData)
	}
	return w.Bytes()
}

// ValidateNegotiateInfoRequest is the FSCTL_VALIDATE_NEGOTIATE_INFO input
// buffer a client sends to detect downgrade attacks against the negotiated
// dialect and capabilities. [MS-SMB2] 2.2.31.4.
type ValidateNegotiateInfoRequest struct {
	Capabilities uint32
	ClientGUID   [16]byte
	SecurityMode uint16
	Dialects     []uint16
}

// DecodeValidateNegotiateInfoRequest parses the FSCTL_VALIDATE_NEGOTIATE_INFO
// input buffer.
func DecodeValidateNegotiateInfoRequest(data []byte) (*ValidateNegotiateInfoRequest, error) {
	if len(data) < 24 {
		return nil, fmt.Errorf("validate negotiate info: body too short: %d bytes", len(data))
	}
	r := wire.NewReader(data)
	req := &ValidateNegotiateInfoRequest{}
	req.Capabilities = r.ReadUint32()
	copy(req.ClientGUID[:], r.ReadBytes(16))
	req.SecurityMode = r.ReadUint16()
	dialectCount := r.ReadUint16()
	if r.Err() != nil {
		return nil, fmt.Errorf("validate negotiate info: %w", r.Err())
	}
	req.Dialects = make([]uint16, dialectCount)
	for i := range req.Dialects {
		req.Dialects[i] = r.ReadUint16()
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("validate negotiate info dialects: %w", r.Err())
	}
	return req, nil
}

// ValidateNegotiateInfoResponse mirrors the server's actual negotiated
// parameters back to the client so it can detect tampering.
type ValidateNegotiateInfoResponse struct {
	Capabilities    uint32
	ServerGUID      [16]byte
	SecurityMode    uint16
	DialectRevision uint16
}

// Encode serializes the FSCTL_VALIDATE_NEGOTIATE_INFO output buffer.
func (v ValidateNegotiateInfoResponse) Encode() []byte {
	w := wire.NewWriter(24)
	w.WriteUint32(v.Capabilities)
	w.WriteBytes(v.ServerGUID[:])
	w.WriteUint16(v.SecurityMode)
	w.WriteUint16(v.DialectRevision)
	return w.Bytes()
}
