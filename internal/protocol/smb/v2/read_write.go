package v2

import (
	"fmt"

	"github.com/coredoor/smbd/internal/wire"
)

// ReadRequest is the SMB2 READ request body. [MS-SMB2] 2.2.19.
type ReadRequest struct {
	Padding        uint8
	Flags          uint8
	Length         uint32
	Offset         uint64
	FileID         [16]byte
	MinimumCount   uint32
	RemainingBytes uint32
}

// readReqFixedSize is the 48-byte READ request fixed structure (padding
// included as it always reaches the end of the structure, no buffer follows).
const readReqFixedSize = 48

// DecodeReadRequest parses a READ request body.
func DecodeReadRequest(body []byte) (*ReadRequest, error) {
	if len(body) < readReqFixedSize {
		return nil, fmt.Errorf("read request: body too short: %d bytes", len(body))
	}
	r := wire.NewReader(body)
	r.ExpectUint16(49) // StructureSize
	req := &ReadRequest{}
	req.Padding = r.ReadUint8()
	req.Flags = r.ReadUint8()
	req.Length = r.ReadUint32()
	req.Offset = r.ReadUint64()
	copy(req.FileID[:], r.ReadBytes(16))
	req.MinimumCount = r.ReadUint32()
	r.Skip(4) // Channel
	req.RemainingBytes = r.ReadUint32()
	r.Skip(4) // ReadChannelInfoOffset(2) + ReadChannelInfoLength(2)
	if r.Err() != nil {
		return nil, fmt.Errorf("read request: %w", r.Err())
	}
	return req, nil
}

// ReadResponse is the SMB2 READ response body. [MS-SMB2] 2.2.20.
type ReadResponse struct {
	DataRemaining uint32
	Data          []byte
}

// readRespFixedSize is StructureSize(2)+DataOffset(1)+Reserved(1)+
// DataLength(4)+DataRemaining(4)+Reserved2(4) = 16 bytes.
const readRespFixedSize = 16

// Encode serializes the READ response.
func (resp *ReadResponse) Encode() []byte {
	w := wire.NewWriter(readRespFixedSize + len(resp.Data))
	w.WriteUint16(17) // StructureSize
	w.WriteUint8(64 + readRespFixedSize)
	w.WriteUint8(0) // Reserved
	w.WriteUint32(uint32(len(resp.Data)))
	w.WriteUint32(resp.DataRemaining)
	w.WriteUint32(0) // Reserved2
	w.WriteBytes(resp.Data)
	return w.Bytes()
}

// WriteRequest is the SMB2 WRITE request body. [MS-SMB2] 2.2.21.
type WriteRequest struct {
	Offset uint64
	FileID [16]byte
	Flags  uint32
	Data   []byte
}

// writeReqFixedSize is the 48-byte fixed structure before the data buffer.
const writeReqFixedSize = 48

// DecodeWriteRequest parses a WRITE request body.
func DecodeWriteRequest(body []byte) (*WriteRequest, error) {
	if len(body) < writeReqFixedSize {
		return nil, fmt.Errorf("write request: body too short: %d bytes", len(body))
	}
	r := wire.NewReader(body)
	r.ExpectUint16(49) // StructureSize
	dataOffset := r.ReadUint16()
	dataLength := r.ReadUint32()
	req := &WriteRequest{}
	req.Offset = r.ReadUint64()
	copy(req.FileID[:], r.ReadBytes(16))
	r.Skip(4) // Channel
	r.Skip(4) // RemainingBytes
	r.Skip(4) // WriteChannelInfoOffset(2) + WriteChannelInfoLength(2)
	req.Flags = r.ReadUint32()
	if r.Err() != nil {
		return nil, fmt.Errorf("write request: %w", r.Err())
	}

	start := wire.HeaderOffset(uint32(dataOffset))
	if start < writeReqFixedSize {
		start = writeReqFixedSize
	}
	if start+int(dataLength) <= len(body) {
		req.Data = body[start : start+int(dataLength)]
	}
	return req, nil
}

// WriteResponse is the SMB2 WRITE response body. [MS-SMB2] 2.2.22.
type WriteResponse struct {
	Count uint32
}

// Encode serializes the fixed 16-byte WRITE response.
func (resp *WriteResponse) Encode() []byte {
	w := wire.NewWriter(16)
	w.WriteUint16(17) // StructureSize
	w.WriteUint16(0)  // Reserved
	w.WriteUint32(resp.Count)
	w.WriteUint32(0) // Remaining
	w.WriteUint16(0) // WriteChannelInfoOffset
	w.WriteUint16(0) // WriteChannelInfoLength
	return w.Bytes()
}

// CloseRequest is the SMB2 CLOSE request body. [MS-SMB2] 2.2.15.
type CloseRequest struct {
	Flags  uint16
	FileID [16]byte
}

const CloseFlagPostQuery uint16 = 0x0001

// DecodeCloseRequest parses a CLOSE request body.
func DecodeCloseRequest(body []byte) (*CloseRequest, error) {
	if len(body) < 24 {
		return nil, fmt.Errorf("close request: body too short: %d bytes", len(body))
	}
	r := wire.NewReader(body)
	r.ExpectUint16(24) // StructureSize
	req := &CloseRequest{}
	req.Flags = r.ReadUint16()
	r.Skip(4) // Reserved
	copy(req.FileID[:], r.ReadBytes(16))
	if r.Err() != nil {
		return nil, fmt.Errorf("close request: %w", r.Err())
	}
	return req, nil
}

// CloseResponse is the SMB2 CLOSE response body. [MS-SMB2] 2.2.16.
type CloseResponse struct {
	Flags          uint16
	Times          CreateTimes
	AllocationSize uint64
	EndOfFile      uint64
	FileAttributes uint32
}

// Encode serializes the fixed 60-byte CLOSE response.
func (resp *CloseResponse) Encode() []byte {
	w := wire.NewWriter(60)
	w.WriteUint16(60) // StructureSize
	w.WriteUint16(resp.Flags)
	w.WriteUint32(0) // Reserved
	w.WriteUint64(resp.Times.Creation)
	w.WriteUint64(resp.Times.LastAccess)
	w.WriteUint64(resp.Times.LastWrite)
	w.WriteUint64(resp.Times.Change)
	w.WriteUint64(resp.AllocationSize)
	w.WriteUint64(resp.EndOfFile)
	w.WriteUint32(resp.FileAttributes)
	return w.Bytes()
}
