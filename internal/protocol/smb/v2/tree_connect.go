package v2

import (
	"fmt"
	"strings"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/coredoor/smbd/internal/wire"
)

// treeConnectReqFixedSize is StructureSize(2)+Flags(2)+PathOffset(2)+
// PathLength(2) = 8 bytes.
const treeConnectReqFixedSize = 8

// TreeConnectRequest is the SMB2 TREE_CONNECT request body. [MS-SMB2] 2.2.9.
type TreeConnectRequest struct {
	Flags uint16
	Path  string // \\server\share, decoded from UTF-16LE
}

// DecodeTreeConnectRequest parses a TREE_CONNECT request body.
func DecodeTreeConnectRequest(body []byte) (*TreeConnectRequest, error) {
	if len(body) < treeConnectReqFixedSize {
		return nil, fmt.Errorf("tree connect request: body too short: %d bytes", len(body))
	}
	r := wire.NewReader(body)
	r.ExpectUint16(9) // StructureSize
	req := &TreeConnectRequest{}
	req.Flags = r.ReadUint16()
	pathOffset := r.ReadUint16()
	pathLength := r.ReadUint16()
	if r.Err() != nil {
		return nil, fmt.Errorf("tree connect request: %w", r.Err())
	}

	bufStart := wire.HeaderOffset(uint32(pathOffset))
	if bufStart < treeConnectReqFixedSize {
		bufStart = treeConnectReqFixedSize
	}
	if pathLength > 0 && bufStart+int(pathLength) <= len(body) {
		pr := wire.NewReader(body[bufStart : bufStart+int(pathLength)])
		req.Path = pr.ReadUTF16(int(pathLength))
	}
	return req, nil
}

// ShareName extracts the final path component of a \\server\share UNC path,
// normalized to lowercase for case-insensitive matching.
func (r *TreeConnectRequest) ShareName() string {
	path := strings.TrimPrefix(r.Path, "\\\\")
	parts := strings.SplitN(path, "\\", 2)
	if len(parts) < 2 {
		return strings.ToLower(strings.TrimPrefix(path, "\\"))
	}
	return strings.ToLower(parts[1])
}

// TreeConnectResponse is the SMB2 TREE_CONNECT response body. [MS-SMB2] 2.2.10.
type TreeConnectResponse struct {
	ShareType     types.ShareType
	ShareFlags    uint32
	Capabilities  uint32
	MaximalAccess types.AccessMask
}

// Encode serializes the TREE_CONNECT response (always 16 bytes).
func (resp *TreeConnectResponse) Encode() []byte {
	w := wire.NewWriter(16)
	w.WriteUint16(16) // StructureSize
	w.WriteUint8(uint8(resp.ShareType))
	w.WriteUint8(0) // Reserved
	w.WriteUint32(resp.ShareFlags)
	w.WriteUint32(resp.Capabilities)
	w.WriteUint32(uint32(resp.MaximalAccess))
	return w.Bytes()
}

// TreeDisconnectRequest is the SMB2 TREE_DISCONNECT request body. [MS-SMB2] 2.2.11.
type TreeDisconnectRequest struct{}

// DecodeTreeDisconnectRequest validates a TREE_DISCONNECT request body.
func DecodeTreeDisconnectRequest(body []byte) (*TreeDisconnectRequest, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("tree disconnect request: body too short: %d bytes", len(body))
	}
	return &TreeDisconnectRequest{}, nil
}

// EncodeTreeDisconnectResponse serializes the fixed 4-byte TREE_DISCONNECT response.
func EncodeTreeDisconnectResponse() []byte {
	w := wire.NewWriter(4)
	w.WriteUint16(4) // StructureSize
	w.WriteUint16(0) // Reserved
	return w.Bytes()
}
