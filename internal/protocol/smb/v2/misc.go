package v2

import (
	"fmt"

	"github.com/coredoor/smbd/internal/wire"
)

// LogoffRequest is the SMB2 LOGOFF request body. [MS-SMB2] 2.2.7.
type LogoffRequest struct{}

// DecodeLogoffRequest validates a LOGOFF request body.
func DecodeLogoffRequest(body []byte) (*LogoffRequest, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("logoff request: body too short: %d bytes", len(body))
	}
	return &LogoffRequest{}, nil
}

// EncodeLogoffResponse serializes the fixed 4-byte LOGOFF response.
func EncodeLogoffResponse() []byte {
	w := wire.NewWriter(4)
	w.WriteUint16(4)
	w.WriteUint16(0)
	return w.Bytes()
}

// EchoRequest is the SMB2 ECHO request body. [MS-SMB2] 2.2.28.
type EchoRequest struct{}

// DecodeEchoRequest validates an ECHO request body.
func DecodeEchoRequest(body []byte) (*EchoRequest, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("echo request: body too short: %d bytes", len(body))
	}
	return &EchoRequest{}, nil
}

// EncodeEchoResponse serializes the fixed 4-byte ECHO response.
func EncodeEchoResponse() []byte {
	w := wire.NewWriter(4)
	w.WriteUint16(4)
	w.WriteUint16(0)
	return w.Bytes()
}

// FlushRequest is the SMB2 FLUSH request body. [MS-SMB2] 2.2.17.
type FlushRequest struct {
	FileID [16]byte
}

// DecodeFlushRequest parses a FLUSH request body.
func DecodeFlushRequest(body []byte) (*FlushRequest, error) {
	if len(body) < 24 {
		return nil, fmt.Errorf("flush request: body too short: %d bytes", len(body))
	}
	r := wire.NewReader(body)
	r.ExpectUint16(24) // StructureSize
	r.Skip(6)          // Reserved1(2) + Reserved2(4)
	req := &FlushRequest{}
	copy(req.FileID[:], r.ReadBytes(16))
	if r.Err() != nil {
		return nil, fmt.Errorf("flush request: %w", r.Err())
	}
	return req, nil
}

// EncodeFlushResponse serializes the fixed 4-byte FLUSH response.
func EncodeFlushResponse() []byte {
	w := wire.NewWriter(4)
	w.WriteUint16(4)
	w.WriteUint16(0)
	return w.Bytes()
}

// CancelRequest is the SMB2 CANCEL request body. [MS-SMB2] 2.2.30. It is
// identified entirely by the header's MessageID/AsyncId, so the body
// carries no fields the handler needs.
type CancelRequest struct{}

// DecodeCancelRequest parses a CANCEL request body (best-effort: Cancel
// frames are sometimes sent with a truncated body by older clients).
func DecodeCancelRequest(body []byte) (*CancelRequest, error) {
	return &CancelRequest{}, nil
}

// OplockBreakAck is the SMB2 OPLOCK_BREAK acknowledgment request body sent
// by the client. [MS-SMB2] 2.2.24.2.
type OplockBreakAck struct {
	OplockLevel uint8
	FileID      [16]byte
}

// DecodeOplockBreakAck parses an OPLOCK_BREAK acknowledgment body.
func DecodeOplockBreakAck(body []byte) (*OplockBreakAck, error) {
	if len(body) < 24 {
		return nil, fmt.Errorf("oplock break ack: body too short: %d bytes", len(body))
	}
	r := wire.NewReader(body)
	r.ExpectUint16(24) // StructureSize
	ack := &OplockBreakAck{}
	ack.OplockLevel = r.ReadUint8()
	r.Skip(5) // Reserved(1) + Reserved2(4)
	copy(ack.FileID[:], r.ReadBytes(16))
	if r.Err() != nil {
		return nil, fmt.Errorf("oplock break ack: %w", r.Err())
	}
	return ack, nil
}

// EncodeOplockBreakResponse serializes the OPLOCK_BREAK response the server
// sends back to acknowledge the client's ack. [MS-SMB2] 2.2.25.
func EncodeOplockBreakResponse(oplockLevel uint8, fileID [16]byte) []byte {
	w := wire.NewWriter(24)
	w.WriteUint16(24)
	w.WriteUint8(oplockLevel)
	w.WriteUint8(0)
	w.WriteUint32(0)
	w.WriteBytes(fileID[:])
	return w.Bytes()
}

// LockElement is one SMB2_LOCK_ELEMENT entry. [MS-SMB2] 2.2.26.1.
type LockElement struct {
	Offset uint64
	Length uint64
	Flags  uint32
}

const (
	LockFlagSharedLock    uint32 = 0x00000001
	LockFlagExclusiveLock uint32 = 0x00000002
	LockFlagUnlock        uint32 = 0x00000004
	LockFlagFailImmediately uint32 = 0x00000010
)

// LockRequest is the SMB2 LOCK request body. [MS-SMB2] 2.2.26.
type LockRequest struct {
	LockSequence uint32
	FileID       [16]byte
	Locks        []LockElement
}

// lockReqFixedSize is StructureSize(2)+LockCount(2)+LockSequence(4)+FileID(16) = 24.
const lockReqFixedSize = 24

// DecodeLockRequest parses a LOCK request body.
func DecodeLockRequest(body []byte) (*LockRequest, error) {
	if len(body) < lockReqFixedSize {
		return nil, fmt.Errorf("lock request: body too short: %d bytes", len(body))
	}
	r := wire.NewReader(body)
	r.ExpectUint16(48) // StructureSize
	lockCount := r.ReadUint16()
	req := &LockRequest{}
	req.LockSequence = r.ReadUint32()
	copy(req.FileID[:], r.ReadBytes(16))
	if r.Err() != nil {
		return nil, fmt.Errorf("lock request: %w", r.Err())
	}

	req.Locks = make([]LockElement, lockCount)
	for i := range req.Locks {
		req.Locks[i] = LockElement{
			Offset: r.ReadUint64(),
			Length: r.ReadUint64(),
			Flags:  r.ReadUint32(),
		}
		r.Skip(4) // Reserved
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("lock request elements: %w", r.Err())
	}
	return req, nil
}

// EncodeLockResponse serializes the fixed 4-byte LOCK response.
func EncodeLockResponse() []byte {
	w := wire.NewWriter(4)
	w.WriteUint16(4)
	w.WriteUint16(0)
	return w.Bytes()
}

// ChangeNotifyRequest is the SMB2 CHANGE_NOTIFY request body. [MS-SMB2] 2.2.35.
type ChangeNotifyRequest struct {
	Flags            uint16
	OutputBufferSize uint32
	FileID           [16]byte
	CompletionFilter uint32
}

// DecodeChangeNotifyRequest parses a CHANGE_NOTIFY request body.
func DecodeChangeNotifyRequest(body []byte) (*ChangeNotifyRequest, error) {
	if len(body) < 32 {
		return nil, fmt.Errorf("change notify request: body too short: %d bytes", len(body))
	}
	r := wire.NewReader(body)
	r.ExpectUint16(32) // StructureSize
	req := &ChangeNotifyRequest{}
	req.Flags = r.ReadUint16()
	req.OutputBufferSize = r.ReadUint32()
	copy(req.FileID[:], r.ReadBytes(16))
	req.CompletionFilter = r.ReadUint32()
	r.Skip(4) // Reserved
	if r.Err() != nil {
		return nil, fmt.Errorf("change notify request: %w", r.Err())
	}
	return req, nil
}

const ChangeNotifyFlagWatchTree uint16 = 0x0001
