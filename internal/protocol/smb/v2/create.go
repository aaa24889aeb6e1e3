package v2

import (
	"fmt"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/coredoor/smbd/internal/wire"
)

// Create context names. [MS-SMB2] 2.2.13.2. Only the tag is a fixed 4-byte
// ASCII name; Data is handed to the caller uninterpreted except for the
// two tags the handler layer actually acts on (MxAc, QFid).
const (
	CreateCtxExtA = "ExtA" // SMB2_CREATE_EA_BUFFER
	CreateCtxSecD = "SecD" // SMB2_CREATE_SD_BUFFER
	CreateCtxDHnQ = "DHnQ" // SMB2_CREATE_DURABLE_HANDLE_REQUEST
	CreateCtxDHnC = "DHnC" // SMB2_CREATE_DURABLE_HANDLE_RECONNECT
	CreateCtxDH2Q = "DH2Q" // SMB2_CREATE_DURABLE_HANDLE_REQUEST_V2
	CreateCtxDH2C = "DH2C" // SMB2_CREATE_DURABLE_HANDLE_RECONNECT_V2
	CreateCtxMxAc = "MxAc" // SMB2_CREATE_QUERY_MAXIMAL_ACCESS_REQUEST
	CreateCtxQFid = "QFid" // SMB2_CREATE_QUERY_ON_DISK_ID
	CreateCtxRqLs = "RqLs" // SMB2_CREATE_REQUEST_LEASE (v1/v2)
	CreateCtxTWrp = "TWrp" // SMB2_CREATE_TIMEWARP_TOKEN
)

// CreateContext is one SMB2_CREATE_CONTEXT entry: a 4-byte tag identifying
// the structure in Data. [MS-SMB2] 2.2.13.2.
type CreateContext struct {
	Name string
	Data []byte
}

// CreateRequest is the SMB2 CREATE request body. [MS-SMB2] 2.2.13.
type CreateRequest struct {
	SecurityFlags        uint8
	RequestedOplockLevel types.OplockLevel
	ImpersonationLevel   types.ImpersonationLevel
	DesiredAccess        types.AccessMask
	FileAttributes       types.FileAttributes
	ShareAccess          types.ShareAccess
	CreateDisposition    types.CreateDisposition
	CreateOptions        types.CreateOptions
	Name                 string
	Contexts             []CreateContext
}

// createReqFixedSize is the 56-byte fixed portion before Name/Contexts' offsets.
const createReqFixedSize = 56

// DecodeCreateRequest parses a CREATE request body.
func DecodeCreateRequest(body []byte) (*CreateRequest, error) {
	if len(body) < createReqFixedSize {
		return nil, fmt.Errorf("create request: body too short: %d bytes", len(body))
	}

	r := wire.NewReader(body)
	r.ExpectUint16(57) // StructureSize
	req := &CreateRequest{}
	req.SecurityFlags = r.ReadUint8()
	req.RequestedOplockLevel = types.OplockLevel(r.ReadUint8())
	req.ImpersonationLevel = types.ImpersonationLevel(r.ReadUint32())
	r.Skip(8) // SmbCreateFlags
	r.Skip(8) // Reserved
	req.DesiredAccess = types.AccessMask(r.ReadUint32())
	req.FileAttributes = types.FileAttributes(r.ReadUint32())
	req.ShareAccess = types.ShareAccess(r.ReadUint32())
	req.CreateDisposition = types.CreateDisposition(r.ReadUint32())
	req.CreateOptions = types.CreateOptions(r.ReadUint32())
	nameOffset := r.ReadUint16()
	nameLength := r.ReadUint16()
	ctxOffset := r.ReadUint32()
	ctxLength := r.ReadUint32()
	if r.Err() != nil {
		return nil, fmt.Errorf("create request: %w", r.Err())
	}

	if nameLength > 0 {
		start := wire.HeaderOffset(uint32(nameOffset))
		if start < createReqFixedSize {
			start = createReqFixedSize
		}
		if start+int(nameLength) <= len(body) {
			nr := wire.NewReader(body[start : start+int(nameLength)])
			req.Name = nr.ReadUTF16(int(nameLength))
		}
	}

	if ctxLength > 0 {
		start := wire.HeaderOffset(ctxOffset)
		if start+int(ctxLength) <= len(body) && start >= 0 {
			contexts, err := decodeCreateContextList(body[start : start+int(ctxLength)])
			if err != nil {
				return nil, fmt.Errorf("create request contexts: %w", err)
			}
			req.Contexts = contexts
		}
	}

	return req, nil
}

// decodeCreateContextList walks a chain of SMB2_CREATE_CONTEXT structures,
// each prefixed by a Next(4) NameOffset(2) NameLength(2) Reserved(2)
// DataOffset(2) DataLength(4) header, 8-byte aligned between entries.
func decodeCreateContextList(data []byte) ([]CreateContext, error) {
	var contexts []CreateContext
	offset := 0
	for offset < len(data) {
		if offset+16 > len(data) {
			break
		}
		r := wire.NewReader(data[offset:])
		next := r.ReadUint32()
		nameOff := r.ReadUint16()
		nameLen := r.ReadUint16()
		r.Skip(2) // Reserved
		dataOff := r.ReadUint16()
		dataLen := r.ReadUint32()
		if r.Err() != nil {
			return nil, r.Err()
		}

		var name string
		if nameLen > 0 && int(nameOff)+int(nameLen) <= len(data)-offset {
			name = string(data[offset+int(nameOff) : offset+int(nameOff)+int(nameLen)])
		}
		var ctxData []byte
		if dataLen > 0 && int(dataOff)+int(dataLen) <= len(data)-offset {
			ctxData = data[offset+int(dataOff) : offset+int(dataOff)+int(dataLen)]
		}
		contexts = append(contexts, CreateContext{Name: name, Data: ctxData})

		if next == 0 {
			break
		}
		offset += int(next)
	}
	return contexts, nil
}

// encodeCreateContextList serializes a chain of response create contexts,
// 8-byte aligned between entries with Next pointing to the following one.
func encodeCreateContextList(contexts []CreateContext) []byte {
	if len(contexts) == 0 {
		return nil
	}
	w := wire.NewWriter(64)
	for i, c := range contexts {
		entryStart := w.Len()
		nextOffset := w.Len()
		w.WriteUint32(0) // Next, back-patched once the following entry's start is known
		w.WriteUint16(16)
		w.WriteUint16(uint16(len(c.Name)))
		w.WriteUint16(0) // Reserved
		w.WriteUint16(16 + uint16(len(c.Name)))
		w.WriteUint32(uint32(len(c.Data)))
		w.WriteBytes([]byte(c.Name))
		w.WriteBytes(c.Data)
		if i < len(contexts)-1 {
			w.Pad(8)
			w.WriteUint32At(nextOffset, uint32(w.Len()-entryStart))
		}
	}
	return w.Bytes()
}

// CreateResponse is the SMB2 CREATE response body. [MS-SMB2] 2.2.14.
type CreateResponse struct {
	OplockLevel    types.OplockLevel
	Flags          uint8
	CreateAction   types.CreateAction
	Times          CreateTimes
	AllocationSize uint64
	EndOfFile      uint64
	FileAttributes types.FileAttributes
	FileID         [16]byte
	Contexts       []CreateContext
}

// CreateTimes bundles the four FILETIME timestamps CREATE reports.
type CreateTimes struct {
	Creation, LastAccess, LastWrite, Change uint64
}

// createRespFixedSize is the 88-byte fixed portion before create contexts.
const createRespFixedSize = 88

// Encode serializes the CREATE response.
func (resp *CreateResponse) Encode() []byte {
	w := wire.NewWriter(createRespFixedSize)
	w.WriteUint16(89) // StructureSize
	w.WriteUint8(uint8(resp.OplockLevel))
	w.WriteUint8(resp.Flags)
	w.WriteUint32(uint32(resp.CreateAction))
	w.WriteUint64(resp.Times.Creation)
	w.WriteUint64(resp.Times.LastAccess)
	w.WriteUint64(resp.Times.LastWrite)
	w.WriteUint64(resp.Times.Change)
	w.WriteUint64(resp.AllocationSize)
	w.WriteUint64(resp.EndOfFile)
	w.WriteUint32(uint32(resp.FileAttributes))
	w.WriteUint32(0) // Reserved2
	w.WriteBytes(resp.FileID[:])

	ctxOffOffset := w.Len()
	w.WriteUint32(0) // CreateContextsOffset, back-patched below
	ctxData := encodeCreateContextList(resp.Contexts)
	w.WriteUint32(uint32(len(ctxData)))
	if len(ctxData) > 0 {
		w.WriteUint32At(ctxOffOffset, uint32(64+w.Len()))
		w.WriteBytes(ctxData)
	}
	return w.Bytes()
}

// MaximalAccessContext is the data payload of an MxAc response context.
// [MS-SMB2] 2.2.14.2.
type MaximalAccessContext struct {
	QueryStatus   types.Status
	MaximalAccess types.AccessMask
}

// Encode serializes the MxAc response payload.
func (m MaximalAccessContext) Encode() []byte {
	w := wire.NewWriter(8)
	w.WriteUint32(uint32(m.QueryStatus))
	w.WriteUint32(uint32(m.MaximalAccess))
	return w.Bytes()
}

// FileIDContext is the data payload of a QFid response context: a 32-byte
// opaque on-disk identifier, here the same FileID the CREATE response
// already carries padded with zero volume/object IDs.
type FileIDContext struct {
	FileID [16]byte
}

// Encode serializes the QFid response payload.
func (f FileIDContext) Encode() []byte {
	w := wire.NewWriter(32)
	w.WriteBytes(f.FileID[:])
	w.WriteZeros(16)
	return w.Bytes()
}
