package v2

import (
	"fmt"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/coredoor/smbd/internal/wire"
)

// QueryInfoRequest is the SMB2 QUERY_INFO request body. [MS-SMB2] 2.2.37.
type QueryInfoRequest struct {
	InfoType              types.InfoType
	FileInfoClass         types.FileInfoClass
	OutputBufferLength    uint32
	AdditionalInformation uint32
	Flags                 uint32
	FileID                [16]byte
}

// queryInfoReqFixedSize is the 40-byte fixed structure before the optional input buffer.
const queryInfoReqFixedSize = 40

// DecodeQueryInfoRequest parses a QUERY_INFO request body.
func DecodeQueryInfoRequest(body []byte) (*QueryInfoRequest, error) {
	if len(body) < queryInfoReqFixedSize {
		return nil, fmt.Errorf("query info request: body too short: %d bytes", len(body))
	}
	r := wire.NewReader(body)
	r.ExpectUint16(41) // StructureSize
	req := &QueryInfoRequest{}
	req.InfoType = types.InfoType(r.ReadUint8())
	req.FileInfoClass = types.FileInfoClass(r.ReadUint8())
	req.OutputBufferLength = r.ReadUint32()
	r.Skip(4) // InputBufferOffset(2) + Reserved(2)
	r.Skip(4) // InputBufferLength
	req.AdditionalInformation = r.ReadUint32()
	req.Flags = r.ReadUint32()
	copy(req.FileID[:], r.ReadBytes(16))
	if r.Err() != nil {
		return nil, fmt.Errorf("query info request: %w", r.Err())
	}
	return req, nil
}

// QueryInfoResponse is the SMB2 QUERY_INFO response body. [MS-SMB2] 2.2.38.
type QueryInfoResponse struct {
	Data []byte
}

// Encode serializes the QUERY_INFO response.
func (resp *QueryInfoResponse) Encode() []byte {
	w := wire.NewWriter(8 + len(resp.Data))
	w.WriteUint16(9) // StructureSize
	w.WriteUint16(64 + 8)
	w.WriteUint32(uint32(len(resp.Data)))
	w.WriteBytes(resp.Data)
	return w.Bytes()
}

// BasicInformation is FileBasicInformation. [MS-FSCC] 2.4.7.
type BasicInformation struct {
	Times          CreateTimes
	FileAttributes types.FileAttributes
}

func (b BasicInformation) Encode() []byte {
	w := wire.NewWriter(40)
	w.WriteUint64(b.Times.Creation)
	w.WriteUint64(b.Times.LastAccess)
	w.WriteUint64(b.Times.LastWrite)
	w.WriteUint64(b.Times.Change)
	w.WriteUint32(uint32(b.FileAttributes))
	w.WriteUint32(0) // Reserved
	return w.Bytes()
}

// StandardInformation is FileStandardInformation. [MS-FSCC] 2.4.41.
type StandardInformation struct {
	AllocationSize uint64
	EndOfFile      uint64
	NumberOfLinks  uint32
	DeletePending  bool
	IsDirectory    bool
}

func (s StandardInformation) Encode() []byte {
	w := wire.NewWriter(24)
	w.WriteUint64(s.AllocationSize)
	w.WriteUint64(s.EndOfFile)
	w.WriteUint32(s.NumberOfLinks)
	w.WriteUint8(boolByte(s.DeletePending))
	w.WriteUint8(boolByte(s.IsDirectory))
	w.WriteUint16(0) // Reserved
	return w.Bytes()
}

// InternalInformation is FileInternalInformation. [MS-FSCC] 2.4.20.
type InternalInformation struct {
	IndexNumber uint64
}

func (i InternalInformation) Encode() []byte {
	w := wire.NewWriter(8)
	w.WriteUint64(i.IndexNumber)
	return w.Bytes()
}

// EaInformation is FileEaInformation. [MS-FSCC] 2.4.13.
type EaInformation struct{ EaSize uint32 }

func (e EaInformation) Encode() []byte {
	w := wire.NewWriter(4)
	w.WriteUint32(e.EaSize)
	return w.Bytes()
}

// AccessInformation is FileAccessInformation. [MS-FSCC] 2.4.1.
type AccessInformation struct{ AccessFlags types.AccessMask }

func (a AccessInformation) Encode() []byte {
	w := wire.NewWriter(4)
	w.WriteUint32(uint32(a.AccessFlags))
	return w.Bytes()
}

// PositionInformation is FilePositionInformation. [MS-FSCC] 2.4.32.
type PositionInformation struct{ CurrentByteOffset uint64 }

func (p PositionInformation) Encode() []byte {
	w := wire.NewWriter(8)
	w.WriteUint64(p.CurrentByteOffset)
	return w.Bytes()
}

// ModeInformation is FileModeInformation. [MS-FSCC] 2.4.24.
type ModeInformation struct{ Mode uint32 }

func (m ModeInformation) Encode() []byte {
	w := wire.NewWriter(4)
	w.WriteUint32(m.Mode)
	return w.Bytes()
}

// AlignmentInformation is FileAlignmentInformation. [MS-FSCC] 2.4.3.
type AlignmentInformation struct{ AlignmentRequirement uint32 }

func (a AlignmentInformation) Encode() []byte {
	w := wire.NewWriter(4)
	w.WriteUint32(a.AlignmentRequirement)
	return w.Bytes()
}

// NameInformation is FileNameInformation. [MS-FSCC] 2.4.27.
type NameInformation struct{ FileName string }

func (n NameInformation) Encode() []byte {
	nameBytes := utf16Bytes(n.FileName)
	w := wire.NewWriter(4 + len(nameBytes))
	w.WriteUint32(uint32(len(nameBytes)))
	w.WriteBytes(nameBytes)
	return w.Bytes()
}

// NetworkOpenInformation is FileNetworkOpenInformation. [MS-FSCC] 2.4.29.
type NetworkOpenInformation struct {
	Times          CreateTimes
	AllocationSize uint64
	EndOfFile      uint64
	FileAttributes types.FileAttributes
}

func (n NetworkOpenInformation) Encode() []byte {
	w := wire.NewWriter(56)
	w.WriteUint64(n.Times.Creation)
	w.WriteUint64(n.Times.LastAccess)
	w.WriteUint64(n.Times.LastWrite)
	w.WriteUint64(n.Times.Change)
	w.WriteUint64(n.AllocationSize)
	w.WriteUint64(n.EndOfFile)
	w.WriteUint32(uint32(n.FileAttributes))
	w.WriteUint32(0) // Reserved
	return w.Bytes()
}

// AllInformation concatenates the Basic/Standard/Internal/Ea/Access/
// Position/Mode/Alignment/Name structures in FileAllInformation's fixed
// order. [MS-FSCC] 2.4.2.
type AllInformation struct {
	Basic    BasicInformation
	Standard StandardInformation
	Internal InternalInformation
	Ea       EaInformation
	Access   AccessInformation
	Position PositionInformation
	Mode     ModeInformation
	Align    AlignmentInformation
	Name     NameInformation
}

func (a AllInformation) Encode() []byte {
	w := wire.NewWriter(256)
	w.WriteBytes(a.Basic.Encode())
	w.WriteBytes(a.Standard.Encode())
	w.WriteBytes(a.Internal.Encode())
	w.WriteBytes(a.Ea.Encode())
	w.WriteBytes(a.Access.Encode())
	w.WriteBytes(a.Position.Encode())
	w.WriteBytes(a.Mode.Encode())
	w.WriteBytes(a.Align.Encode())
	w.WriteBytes(a.Name.Encode())
	return w.Bytes()
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// SetInfoRequest is the SMB2 SET_INFO request body. [MS-SMB2] 2.2.39.
type SetInfoRequest struct {
	InfoType              types.InfoType
	FileInfoClass         types.FileInfoClass
	AdditionalInformation uint32
	FileID                [16]byte
	Data                  []byte
}

// setInfoReqFixedSize is the 32-byte fixed structure before the Data buffer.
const setInfoReqFixedSize = 32

// DecodeSetInfoRequest parses a SET_INFO request body.
func DecodeSetInfoRequest(body []byte) (*SetInfoRequest, error) {
	if len(body) < setInfoReqFixedSize {
		return nil, fmt.Errorf("set info request: body too short: %d bytes", len(body))
	}
	r := wire.NewReader(body)
	r.ExpectUint16(33) // StructureSize
	req := &SetInfoRequest{}
	req.InfoType = types.InfoType(r.ReadUint8())
	req.FileInfoClass = types.FileInfoClass(r.ReadUint8())
	bufferLength := r.ReadUint32()
	bufferOffset := r.ReadUint16()
	r.Skip(2) // Reserved
	req.AdditionalInformation = r.ReadUint32()
	copy(req.FileID[:], r.ReadBytes(16))
	if r.Err() != nil {
		return nil, fmt.Errorf("set info request: %w", r.Err())
	}

	start := wire.HeaderOffset(uint32(bufferOffset))
	if start < setInfoReqFixedSize {
		start = setInfoReqFixedSize
	}
	if bufferLength > 0 && start+int(bufferLength) <= len(body) {
		req.Data = body[start : start+int(bufferLength)]
	}
	return req, nil
}

// EncodeSetInfoResponse serializes the fixed 2-byte SET_INFO response.
func EncodeSetInfoResponse() []byte {
	w := wire.NewWriter(2)
	w.WriteUint16(2)
	return w.Bytes()
}

// RenameInformation is FileRenameInformation, the payload SET_INFO carries
// for FileRenameInformation. [MS-FSCC] 2.4.38.
type RenameInformation struct {
	ReplaceIfExists bool
	FileName        string
}

// DecodeRenameInformation parses a FileRenameInformation buffer.
func DecodeRenameInformation(data []byte) (RenameInformation, error) {
	if len(data) < 20 {
		return RenameInformation{}, fmt.Errorf("rename information: body too short: %d bytes", len(data))
	}
	r := wire.NewReader(data)
	replace := r.ReadUint8()
	r.Skip(7) // Reserved + RootDirectory
	nameLen := r.ReadUint32()
	if r.Err() != nil {
		return RenameInformation{}, fmt.Errorf("rename information: %w", r.Err())
	}
	name := r.ReadUTF16(int(nameLen))
	if r.Err() != nil {
		return RenameInformation{}, fmt.Errorf("rename information name: %w", r.Err())
	}
	return RenameInformation{ReplaceIfExists: replace != 0, FileName: name}, nil
}

// DispositionInformation is FileDispositionInformation: a one-byte
// delete-on-close flag. [MS-FSCC] 2.4.11.
type DispositionInformation struct {
	DeletePending bool
}

// DecodeDispositionInformation parses a FileDispositionInformation buffer.
func DecodeDispositionInformation(data []byte) (DispositionInformation, error) {
	if len(data) < 1 {
		return DispositionInformation{}, fmt.Errorf("disposition information: empty body")
	}
	return DispositionInformation{DeletePending: data[0] != 0}, nil
}

// EndOfFileInformation is FileEndOfFileInformation. [MS-FSCC] 2.4.14.
type EndOfFileInformation struct {
	EndOfFile uint64
}

// DecodeEndOfFileInformation parses a FileEndOfFileInformation buffer.
func DecodeEndOfFileInformation(data []byte) (EndOfFileInformation, error) {
	if len(data) < 8 {
		return EndOfFileInformation{}, fmt.Errorf("end of file information: body too short: %d bytes", len(data))
	}
	r := wire.NewReader(data)
	return EndOfFileInformation{EndOfFile: r.ReadUint64()}, nil
}
