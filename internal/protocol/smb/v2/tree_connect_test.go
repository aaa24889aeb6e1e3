package v2

import (
	"testing"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/coredoor/smbd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTreeConnectRequest(t *testing.T, path string) []byte {
	t.Helper()
	pw := wire.NewWriter(len(path) * 2)
	pw.WriteUTF16(path)
	pathBytes := pw.Bytes()

	w := wire.NewWriter(treeConnectReqFixedSize + len(pathBytes))
	w.WriteUint16(9) // StructureSize
	w.WriteUint16(0) // Flags
	w.WriteUint16(64 + treeConnectReqFixedSize)
	w.WriteUint16(uint16(len(pathBytes)))
	w.WriteBytes(pathBytes)
	return w.Bytes()
}

func TestDecodeTreeConnectRequestAndShareName(t *testing.T) {
	body := encodeTreeConnectRequest(t, `\\fileserver\Public`)
	req, err := DecodeTreeConnectRequest(body)
	require.NoError(t, err)
	assert.Equal(t, `\\fileserver\Public`, req.Path)
	assert.Equal(t, "public", req.ShareName())
}

func TestDecodeTreeConnectRequestTooShort(t *testing.T) {
	_, err := DecodeTreeConnectRequest(make([]byte, 4))
	assert.Error(t, err)
}

func TestTreeConnectResponseEncode(t *testing.T) {
	resp := &TreeConnectResponse{
		ShareType:     types.ShareTypeDisk,
		MaximalAccess: types.AccessMask(0x1F01FF),
	}
	encoded := resp.Encode()
	require.Len(t, encoded, 16)
	assert.Equal(t, uint8(types.ShareTypeDisk), encoded[2])
}

func TestTreeDisconnectRoundTrip(t *testing.T) {
	_, err := DecodeTreeDisconnectRequest(make([]byte, 4))
	require.NoError(t, err)
	encoded := EncodeTreeDisconnectResponse()
	assert.Len(t, encoded, 4)
}
