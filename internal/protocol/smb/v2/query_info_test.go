package v2

import (
	"testing"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/coredoor/smbd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeQueryInfoRequest(t *testing.T) []byte {
	t.Helper()
	w := wire.NewWriter(queryInfoReqFixedSize)
	w.WriteUint16(41)
	w.WriteUint8(uint8(types.InfoTypeFile))
	w.WriteUint8(uint8(types.FileBasicInformation))
	w.WriteUint32(256) // OutputBufferLength
	w.WriteUint16(0)   // InputBufferOffset
	w.WriteUint16(0)   // Reserved
	w.WriteUint32(0)   // InputBufferLength
	w.WriteUint32(0)   // AdditionalInformation
	w.WriteUint32(0)   // Flags
	var fileID [16]byte
	fileID[0] = 0x5
	w.WriteBytes(fileID[:])
	return w.Bytes()
}

func TestDecodeQueryInfoRequest(t *testing.T) {
	req, err := DecodeQueryInfoRequest(encodeQueryInfoRequest(t))
	require.NoError(t, err)
	assert.Equal(t, types.InfoTypeFile, req.InfoType)
	assert.Equal(t, types.FileBasicInformation, req.FileInfoClass)
}

func TestDecodeQueryInfoRequestTooShort(t *testing.T) {
	_, err := DecodeQueryInfoRequest(make([]byte, 5))
	assert.Error(t, err)
}

func TestQueryInfoResponseEncode(t *testing.T) {
	resp := &QueryInfoResponse{Data: []byte{0x1, 0x2}}
	encoded := resp.Encode()
	assert.Equal(t, []byte{0x1, 0x2}, encoded[8:])
}

func TestBasicInformationEncode(t *testing.T) {
	b := BasicInformation{FileAttributes: types.FileAttributeDirectory}
	encoded := b.Encode()
	assert.Len(t, encoded, 40)
	assert.Equal(t, uint32(types.FileAttributeDirectory), readUint32(encoded, 32))
}

func TestStandardInformationEncode(t *testing.T) {
	s := StandardInformation{AllocationSize: 4096, EndOfFile: 2048, IsDirectory: true}
	encoded := s.Encode()
	assert.Len(t, encoded, 24)
	assert.Equal(t, uint8(1), encoded[21])
}

func TestNameInformationEncode(t *testing.T) {
	n := NameInformation{FileName: "report.txt"}
	encoded := n.Encode()
	assert.Equal(t, uint32(len(encoded)-4), readUint32(encoded, 0))
}

func TestAllInformationEncodeConcatenatesInFixedOrder(t *testing.T) {
	all := AllInformation{
		Basic:    BasicInformation{},
		Standard: StandardInformation{EndOfFile: 10},
		Internal: InternalInformation{IndexNumber: 7},
		Name:     NameInformation{FileName: "x"},
	}
	encoded := all.Encode()
	assert.Greater(t, len(encoded), 40+24+8+4+4+8+4+4)
}

func TestDecodeSetInfoRequest(t *testing.T) {
	payload := EndOfFileInformation{EndOfFile: 4096}
	pw := wire.NewWriter(8)
	pw.WriteUint64(payload.EndOfFile)
	data := pw.Bytes()

	w := wire.NewWriter(setInfoReqFixedSize + len(data))
	w.WriteUint16(33)
	w.WriteUint8(uint8(types.InfoTypeFile))
	w.WriteUint8(uint8(types.FileEndOfFileInformation))
	w.WriteUint32(uint32(len(data)))
	w.WriteUint16(64 + setInfoReqFixedSize)
	w.WriteUint16(0)
	w.WriteUint32(0)
	var fileID [16]byte
	w.WriteBytes(fileID[:])
	w.WriteBytes(data)

	req, err := DecodeSetInfoRequest(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, types.FileEndOfFileInformation, req.FileInfoClass)
	decoded, err := DecodeEndOfFileInformation(req.Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(4096), decoded.EndOfFile)
}

func TestDecodeSetInfoRequestTooShort(t *testing.T) {
	_, err := DecodeSetInfoRequest(make([]byte, 5))
	assert.Error(t, err)
}

func TestEncodeSetInfoResponse(t *testing.T) {
	assert.Len(t, EncodeSetInfoResponse(), 2)
}

func TestDecodeRenameInformation(t *testing.T) {
	name := "newname.txt"
	nw := wire.NewWriter(len(name) * 2)
	nw.WriteUTF16(name)
	nameBytes := nw.Bytes()

	w := wire.NewWriter(20 + len(nameBytes))
	w.WriteUint8(1) // ReplaceIfExists
	w.WriteZeros(7)
	w.WriteUint32(uint32(len(nameBytes)))
	w.WriteBytes(nameBytes)

	decoded, err := DecodeRenameInformation(w.Bytes())
	require.NoError(t, err)
	assert.True(t, decoded.ReplaceIfExists)
	assert.Equal(t, name, decoded.FileName)
}

func TestDecodeDispositionInformation(t *testing.T) {
	decoded, err := DecodeDispositionInformation([]byte{1})
	require.NoError(t, err)
	assert.True(t, decoded.DeletePending)
}

func TestDecodeDispositionInformationEmpty(t *testing.T) {
	_, err := DecodeDispositionInformation(nil)
	assert.Error(t, err)
}
