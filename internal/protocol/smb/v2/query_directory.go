package v2

import (
	"fmt"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/coredoor/smbd/internal/wire"
)

// QueryDirectoryRequest is the SMB2 QUERY_DIRECTORY request body. [MS-SMB2] 2.2.33.
type QueryDirectoryRequest struct {
	FileInfoClass     types.FileInfoClass
	Flags             types.QueryDirectoryFlags
	FileIndex         uint32
	FileID            [16]byte
	FileName          string
	OutputBufferLen   uint32
}

// queryDirReqFixedSize is the 32-byte fixed portion before the search pattern.
const queryDirReqFixedSize = 32

// DecodeQueryDirectoryRequest parses a QUERY_DIRECTORY request body.
func DecodeQueryDirectoryRequest(body []byte) (*QueryDirectoryRequest, error) {
	if len(body) < queryDirReqFixedSize {
		return nil, fmt.Errorf("query directory request: body too short: %d bytes", len(body))
	}
	r := wire.NewReader(body)
	r.ExpectUint16(33) // StructureSize
	req := &QueryDirectoryRequest{}
	req.FileInfoClass = types.FileInfoClass(r.ReadUint8())
	req.Flags = types.QueryDirectoryFlags(r.ReadUint8())
	req.FileIndex = r.ReadUint32()
	copy(req.FileID[:], r.ReadBytes(16))
	fileNameOffset := r.ReadUint16()
	fileNameLength := r.ReadUint16()
	req.OutputBufferLen = r.ReadUint32()
	if r.Err() != nil {
		return nil, fmt.Errorf("query directory request: %w", r.Err())
	}

	start := wire.HeaderOffset(uint32(fileNameOffset))
	if start < queryDirReqFixedSize {
		start = queryDirReqFixedSize
	}
	if fileNameLength > 0 && start+int(fileNameLength) <= len(body) {
		nr := wire.NewReader(body[start : start+int(fileNameLength)])
		req.FileName = nr.ReadUTF16(int(fileNameLength))
	}
	return req, nil
}

// QueryDirectoryResponse is the SMB2 QUERY_DIRECTORY response body. [MS-SMB2] 2.2.34.
type QueryDirectoryResponse struct {
	Data []byte // Pre-encoded FileIdBothDirectoryInformation entries
}

// Encode serializes the QUERY_DIRECTORY response.
func (resp *QueryDirectoryResponse) Encode() []byte {
	w := wire.NewWriter(8 + len(resp.Data))
	w.WriteUint16(9) // StructureSize
	w.WriteUint16(64 + 8)
	w.WriteUint32(uint32(len(resp.Data)))
	w.WriteBytes(resp.Data)
	return w.Bytes()
}

// DirectoryEntry is one FileIdBothDirectoryInformation record the handler
// layer has resolved from a ResourceHandle listing. [MS-FSCC] 2.4.16.
type DirectoryEntry struct {
	FileID         uint64
	Name           string
	Times          CreateTimes
	AllocationSize uint64
	EndOfFile      uint64
	FileAttributes types.FileAttributes
	Last           bool
}

// EncodeDirectoryEntries serializes a full FileIdBothDirectoryInformation
// listing, 8-byte aligning and back-patching NextEntryOffset between
// entries (left 0 on the final one, per [MS-FSCC] 2.4.16).
func EncodeDirectoryEntries(entries []DirectoryEntry) []byte {
	w := wire.NewWriter(128 * len(entries))
	for i, e := range entries {
		entryStart := w.Len()
		nextOffOffset := w.Len()
		w.WriteUint32(0) // NextEntryOffset, back-patched below
		w.WriteUint32(0) // FileIndex
		w.WriteUint64(e.Times.Creation)
		w.WriteUint64(e.Times.LastAccess)
		w.WriteUint64(e.Times.LastWrite)
		w.WriteUint64(e.Times.Change)
		w.WriteUint64(e.EndOfFile)
		w.WriteUint64(e.AllocationSize)
		w.WriteUint32(uint32(e.FileAttributes))
		nameBytes := utf16Bytes(e.Name)
		w.WriteUint32(uint32(len(nameBytes)))
		w.WriteUint32(0) // EaSize
		w.WriteUint8(0)  // ShortNameLength
		w.WriteUint8(0)  // Reserved1
		w.WriteZeros(24) // ShortName (12 UTF-16 chars)
		w.WriteUint16(0) // Reserved2
		w.WriteUint64(e.FileID)
		w.WriteBytes(nameBytes)
		if i < len(entries)-1 {
			w.Pad(8)
			w.WriteUint32At(nextOffOffset, uint32(w.Len()-entryStart))
		}
	}
	return w.Bytes()
}

func utf16Bytes(s string) []byte {
	w := wire.NewWriter(len(s) * 2)
	w.WriteUTF16(s)
	return w.Bytes()
}
