package v2

import (
	"testing"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/coredoor/smbd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeQueryDirectoryRequest(t *testing.T, pattern string) []byte {
	t.Helper()
	pw := wire.NewWriter(len(pattern) * 2)
	pw.WriteUTF16(pattern)
	patternBytes := pw.Bytes()

	w := wire.NewWriter(queryDirReqFixedSize + len(patternBytes))
	w.WriteUint16(33)
	w.WriteUint8(uint8(types.FileIdBothDirectoryInformation))
	w.WriteUint8(0) // Flags
	w.WriteUint32(0)
	var fileID [16]byte
	w.WriteBytes(fileID[:])
	w.WriteUint16(64 + queryDirReqFixedSize)
	w.WriteUint16(uint16(len(patternBytes)))
	w.WriteUint32(65536)
	w.WriteBytes(patternBytes)
	return w.Bytes()
}

func TestDecodeQueryDirectoryRequest(t *testing.T) {
	body := encodeQueryDirectoryRequest(t, "*")
	req, err := DecodeQueryDirectoryRequest(body)
	require.NoError(t, err)
	assert.Equal(t, "*", req.FileName)
	assert.Equal(t, uint32(65536), req.OutputBufferLen)
}

func TestDecodeQueryDirectoryRequestTooShort(t *testing.T) {
	_, err := DecodeQueryDirectoryRequest(make([]byte, 10))
	assert.Error(t, err)
}

func TestQueryDirectoryResponseEncode(t *testing.T) {
	resp := &QueryDirectoryResponse{Data: []byte{0x1, 0x2, 0x3}}
	encoded := resp.Encode()
	assert.Equal(t, uint16(9), readUint16(encoded, 0))
	assert.Equal(t, []byte{0x1, 0x2, 0x3}, encoded[8:])
}

func TestEncodeDirectoryEntriesBackpatchesNextOffset(t *testing.T) {
	entries := []DirectoryEntry{
		{FileID: 1, Name: "alpha.txt"},
		{FileID: 2, Name: "beta.txt"},
		{FileID: 3, Name: "gamma.txt"},
	}
	encoded := EncodeDirectoryEntries(entries)
	require.NotEmpty(t, encoded)

	firstNext := readUint32(encoded, 0)
	assert.NotZero(t, firstNext)

	secondNext := readUint32(encoded, int(firstNext))
	assert.NotZero(t, secondNext)

	thirdNext := readUint32(encoded, int(firstNext)+int(secondNext))
	assert.Zero(t, thirdNext)
}

func TestEncodeDirectoryEntriesSingleEntryHasZeroNextOffset(t *testing.T) {
	entries := []DirectoryEntry{{FileID: 1, Name: "only.txt", Last: true}}
	encoded := EncodeDirectoryEntries(entries)
	assert.Zero(t, readUint32(encoded, 0))
}
