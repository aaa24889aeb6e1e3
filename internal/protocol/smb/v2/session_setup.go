package v2

import (
	"fmt"

	"github.com/coredoor/smbd/internal/wire"
)

// sessionSetupReqFixedSize is StructureSize(2)+Flags(1)+SecurityMode(1)+
// Capabilities(4)+Channel(4)+SecurityBufferOffset(2)+SecurityBufferLength(2)+
// PreviousSessionId(8) = 24 bytes.
const sessionSetupReqFixedSize = 24

// SessionSetupRequest is the SMB2 SESSION_SETUP request body. [MS-SMB2] 2.2.5.
type SessionSetupRequest struct {
	Flags             uint8
	SecurityMode      uint8
	Capabilities      uint32
	Channel           uint32
	PreviousSessionID uint64
	SecurityBuffer    []byte
}

// DecodeSessionSetupRequest parses a SESSION_SETUP request body.
func DecodeSessionSetupRequest(body []byte) (*SessionSetupRequest, error) {
	if len(body) < sessionSetupReqFixedSize+1 {
		return nil, fmt.Errorf("session setup request: body too short: %d bytes", len(body))
	}

	r := wire.NewReader(body)
	r.ExpectUint16(25) // StructureSize
	req := &SessionSetupRequest{}
	req.Flags = r.ReadUint8()
	req.SecurityMode = r.ReadUint8()
	req.Capabilities = r.ReadUint32()
	req.Channel = r.ReadUint32()
	secBufOffset := r.ReadUint16()
	secBufLength := r.ReadUint16()
	req.PreviousSessionID = r.ReadUint64()
	if r.Err() != nil {
		return nil, fmt.Errorf("session setup request: %w", r.Err())
	}

	bufStart := wire.HeaderOffset(uint32(secBufOffset))
	if bufStart < sessionSetupReqFixedSize {
		bufStart = sessionSetupReqFixedSize
	}
	if secBufLength > 0 && bufStart+int(secBufLength) <= len(body) {
		req.SecurityBuffer = body[bufStart : bufStart+int(secBufLength)]
	}

	return req, nil
}

// SessionSetupResponse is the SMB2 SESSION_SETUP response body. [MS-SMB2] 2.2.6.
type SessionSetupResponse struct {
	SessionFlags   uint16
	SecurityBuffer []byte
}

// sessionSetupRespFixedSize is StructureSize(2)+SessionFlags(2)+
// SecurityBufferOffset(2)+SecurityBufferLength(2) = 8 bytes.
const sessionSetupRespFixedSize = 8

// Encode serializes the SESSION_SETUP response.
func (resp *SessionSetupResponse) Encode() []byte {
	w := wire.NewWriter(sessionSetupRespFixedSize + len(resp.SecurityBuffer))
	w.WriteUint16(9) // StructureSize
	w.WriteUint16(resp.SessionFlags)
	var secBufOffset uint16
	if len(resp.SecurityBuffer) > 0 {
		secBufOffset = 64 + sessionSetupRespFixedSize
	}
	w.WriteUint16(secBufOffset)
	w.WriteUint16(uint16(len(resp.SecurityBuffer)))
	w.WriteBytes(resp.SecurityBuffer)
	return w.Bytes()
}
