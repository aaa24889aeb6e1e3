package v2

import (
	"testing"

	"github.com/coredoor/smbd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReadRequest(t *testing.T) {
	w := wire.NewWriter(48)
	w.WriteUint16(49)
	w.WriteUint8(0)
	w.WriteUint8(0)
	w.WriteUint32(4096)
	w.WriteUint64(1024)
	var fileID [16]byte
	fileID[0] = 0x1
	w.WriteBytes(fileID[:])
	w.WriteUint32(1)
	w.WriteUint32(0) // Channel
	w.WriteUint32(0) // RemainingBytes
	w.WriteUint16(0)
	w.WriteUint16(0)

	req, err := DecodeReadRequest(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), req.Length)
	assert.Equal(t, uint64(1024), req.Offset)
	assert.Equal(t, fileID, req.FileID)
}

func TestDecodeReadRequestTooShort(t *testing.T) {
	_, err := DecodeReadRequest(make([]byte, 10))
	assert.Error(t, err)
}

func TestReadResponseEncode(t *testing.T) {
	resp := &ReadResponse{Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	encoded := resp.Encode()
	assert.Equal(t, uint16(17), readUint16(encoded, 0))
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, encoded[readRespFixedSize:])
}

func TestDecodeWriteRequest(t *testing.T) {
	data := []byte{0x1, 0x2, 0x3, 0x4}
	w := wire.NewWriter(writeReqFixedSize + len(data))
	w.WriteUint16(49)
	w.WriteUint16(64 + writeReqFixedSize) // DataOffset
	w.WriteUint32(uint32(len(data)))
	w.WriteUint64(0)
	var fileID [16]byte
	w.WriteBytes(fileID[:])
	w.WriteUint32(0)
	w.WriteUint32(0)
	w.WriteUint16(0)
	w.WriteUint16(0)
	w.WriteUint32(0) // Flags
	w.WriteBytes(data)

	req, err := DecodeWriteRequest(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, data, req.Data)
}

func TestWriteResponseEncode(t *testing.T) {
	resp := &WriteResponse{Count: 4096}
	encoded := resp.Encode()
	assert.Len(t, encoded, 16)
	assert.Equal(t, uint32(4096), readUint32(encoded, 4))
}

func TestCloseRoundTrip(t *testing.T) {
	w := wire.NewWriter(24)
	w.WriteUint16(24)
	w.WriteUint16(CloseFlagPostQuery)
	w.WriteUint32(0)
	var fileID [16]byte
	fileID[0] = 0x9
	w.WriteBytes(fileID[:])

	req, err := DecodeCloseRequest(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, CloseFlagPostQuery, req.Flags)
	assert.Equal(t, fileID, req.FileID)

	resp := &CloseResponse{Flags: CloseFlagPostQuery, EndOfFile: 2048}
	encoded := resp.Encode()
	assert.Len(t, encoded, 60)
}
