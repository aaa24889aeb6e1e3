// Package v2 holds the SMB2/3 message-catalog record types: the
// request/response structures for every command, each hand-implementing
// Decode/Encode over the internal/wire byte-cursor primitives rather than a
// shared reflective codec, matching the teacher's per-message approach.
package v2

import (
	"fmt"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/coredoor/smbd/internal/wire"
)

// NegotiateRequest is the SMB2 NEGOTIATE request body. [MS-SMB2] 2.2.3.
type NegotiateRequest struct {
	DialectCount        uint16
	SecurityMode        types.SecurityMode
	Capabilities        types.Capabilities
	ClientGUID          [16]byte
	NegotiateContextOff uint32
	NegotiateContextCnt uint16
	Dialects            []types.Dialect
	NegotiateContexts   []types.NegotiateContext
}

// negotiateReqFixedSize is StructureSize(2)+DialectCount(2)+SecurityMode(2)+
// Reserved(2)+Capabilities(4)+ClientGUID(16)+NegotiateContextOffset(4)+
// NegotiateContextCount(2)+Reserved2(2) = 36 bytes.
const negotiateReqFixedSize = 36

// DecodeNegotiateRequest parses a NEGOTIATE request body (everything after
// the 64-byte SMB2 header).
func DecodeNegotiateRequest(body []byte) (*NegotiateRequest, error) {
	if len(body) < negotiateReqFixedSize {
		return nil, fmt.Errorf("negotiate request: body too short: %d bytes", len(body))
	}

	r := wire.NewReader(body)
	r.ExpectUint16(36) // StructureSize
	req := &NegotiateRequest{}
	req.DialectCount = r.ReadUint16()
	req.SecurityMode = types.SecurityMode(r.ReadUint16())
	r.Skip(2) // Reserved
	req.Capabilities = types.Capabilities(r.ReadUint32())
	copy(req.ClientGUID[:], r.ReadBytes(16))
	req.NegotiateContextOff = r.ReadUint32()
	req.NegotiateContextCnt = r.ReadUint16()
	r.Skip(2) // Reserved2
	if r.Err() != nil {
		return nil, fmt.Errorf("negotiate request: %w", r.Err())
	}

	req.Dialects = make([]types.Dialect, req.DialectCount)
	for i := range req.Dialects {
		req.Dialects[i] = types.Dialect(r.ReadUint16())
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("negotiate request dialects: %w", r.Err())
	}

	if req.NegotiateContextCnt > 0 {
		ctxOffset := wire.HeaderOffset(req.NegotiateContextOff)
		if ctxOffset > 0 && ctxOffset <= len(body) {
			// Negotiate contexts are 8-byte aligned from the start of the
			// message, not from the dialect list's own end.
			contexts, err := types.ParseNegotiateContextList(body[ctxOffset:], int(req.NegotiateContextCnt))
			if err != nil {
				return nil, fmt.Errorf("negotiate request contexts: %w", err)
			}
			req.NegotiateContexts = contexts
		}
	}

	return req, nil
}

// HasDialect reports whether d was offered by the client.
func (r *NegotiateRequest) HasDialect(d types.Dialect) bool {
	for _, have := range r.Dialects {
		if have == d {
			return true
		}
	}
	return false
}

// NegotiateResponse is the SMB2 NEGOTIATE response body. [MS-SMB2] 2.2.4.
type NegotiateResponse struct {
	SecurityMode        types.SecurityMode
	DialectRevision     types.Dialect
	ServerGUID          [16]byte
	Capabilities        types.Capabilities
	MaxTransactSize     uint32
	MaxReadSize         uint32
	MaxWriteSize        uint32
	SystemTime          uint64
	ServerStartTime     uint64
	SecurityBuffer      []byte
	NegotiateContextCnt uint16
	NegotiateContexts   []types.NegotiateContext
}

// negotiateRespFixedSize is the fixed portion before SecurityBuffer: 64 bytes.
const negotiateRespFixedSize = 64

// Encode serializes the NEGOTIATE response, including the 3.1.1
// negotiate-context list and its 8-byte-aligned back-patched offset.
func (resp *NegotiateResponse) Encode() []byte {
	w := wire.NewWriter(negotiateRespFixedSize + len(resp.SecurityBuffer))
	w.WriteUint16(65) // StructureSize
	w.WriteUint16(uint16(resp.SecurityMode))
	w.WriteUint16(uint16(resp.DialectRevision))
	if resp.DialectRevision == types.Dialect0311 {
		w.WriteUint16(resp.NegotiateContextCnt)
	} else {
		w.WriteUint16(0) // Reserved
	}
	w.WriteBytes(resp.ServerGUID[:])
	w.WriteUint32(uint32(resp.Capabilities))
	w.WriteUint32(resp.MaxTransactSize)
	w.WriteUint32(resp.MaxReadSize)
	w.WriteUint32(resp.MaxWriteSize)
	w.WriteUint64(resp.SystemTime)
	w.WriteUint64(resp.ServerStartTime)

	secBufOffOffset := w.Len()
	w.WriteUint16(0) // SecurityBufferOffset, back-patched below
	w.WriteUint16(uint16(len(resp.SecurityBuffer)))
	negCtxOffOffset := w.Len()
	w.WriteUint32(0) // NegotiateContextOffset, back-patched below

	if len(resp.SecurityBuffer) > 0 {
		secBufOffset := uint16(64 + w.Len())
		w.WriteUint16At(secBufOffOffset, secBufOffset)
		w.WriteBytes(resp.SecurityBuffer)
	}

	if resp.DialectRevision == types.Dialect0311 && len(resp.NegotiateContexts) > 0 {
		w.Pad(8)
		negCtxOffset := uint32(64 + w.Len())
		w.WriteUint32At(negCtxOffOffset, negCtxOffset)
		w.WriteBytes(types.EncodeNegotiateContextList(resp.NegotiateContexts))
	}

	return w.Bytes()
}

// LegacyNegotiateRequest is the synthetic record built when an SMB1
// negotiate frame is upgraded to SMB2: it carries no real dialect list,
// only the wildcard so NEGOTIATE's selection logic runs unmodified.
type LegacyNegotiateRequest struct{}

// AsNegotiateRequest returns the NegotiateRequest equivalent offering only
// the wildcard dialect, for CommandLegacyNegotiate's synthetic routing.
func (LegacyNegotiateRequest) AsNegotiateRequest() *NegotiateRequest {
	return &NegotiateRequest{
		DialectCount: 1,
		Dialects:     []types.Dialect{types.DialectWildcard},
	}
}
