package v2

import (
	"testing"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/coredoor/smbd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeCreateRequest(t *testing.T, name string, contexts []CreateContext) []byte {
	t.Helper()
	nw := wire.NewWriter(len(name) * 2)
	nw.WriteUTF16(name)
	nameBytes := nw.Bytes()
	ctxData := encodeCreateContextList(contexts)

	w := wire.NewWriter(createReqFixedSize + len(nameBytes) + len(ctxData))
	w.WriteUint16(57) // StructureSize
	w.WriteUint8(0)   // SecurityFlags
	w.WriteUint8(0)   // RequestedOplockLevel
	w.WriteUint32(uint32(types.ImpersonationImpersonation))
	w.WriteUint64(0) // SmbCreateFlags
	w.WriteUint64(0) // Reserved
	w.WriteUint32(uint32(types.FileReadData | types.FileWriteData))
	w.WriteUint32(0) // FileAttributes
	w.WriteUint32(uint32(types.FileShareRead))
	w.WriteUint32(uint32(types.FileOpenIf))
	w.WriteUint32(0) // CreateOptions

	nameOffset := uint16(0)
	if len(nameBytes) > 0 {
		nameOffset = 64 + createReqFixedSize
	}
	w.WriteUint16(nameOffset)
	w.WriteUint16(uint16(len(nameBytes)))

	ctxOffset := uint32(0)
	if len(ctxData) > 0 {
		ctxOffset = uint32(64 + createReqFixedSize + len(nameBytes))
	}
	w.WriteUint32(ctxOffset)
	w.WriteUint32(uint32(len(ctxData)))
	w.WriteBytes(nameBytes)
	w.WriteBytes(ctxData)
	return w.Bytes()
}

func TestDecodeCreateRequest(t *testing.T) {
	body := encodeCreateRequest(t, `docs\report.txt`, []CreateContext{
		{Name: CreateCtxMxAc, Data: nil},
	})
	req, err := DecodeCreateRequest(body)
	require.NoError(t, err)
	assert.Equal(t, `docs\report.txt`, req.Name)
	require.Len(t, req.Contexts, 1)
	assert.Equal(t, CreateCtxMxAc, req.Contexts[0].Name)
}

func TestDecodeCreateRequestTooShort(t *testing.T) {
	_, err := DecodeCreateRequest(make([]byte, 10))
	assert.Error(t, err)
}

func TestCreateContextListRoundTrip(t *testing.T) {
	contexts := []CreateContext{
		{Name: CreateCtxMxAc, Data: []byte{0x1, 0x2}},
		{Name: CreateCtxQFid, Data: []byte{0x3, 0x4, 0x5, 0x6}},
	}
	encoded := encodeCreateContextList(contexts)
	decoded, err := decodeCreateContextList(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, CreateCtxMxAc, decoded[0].Name)
	assert.Equal(t, []byte{0x1, 0x2}, decoded[0].Data)
	assert.Equal(t, CreateCtxQFid, decoded[1].Name)
	assert.Equal(t, []byte{0x3, 0x4, 0x5, 0x6}, decoded[1].Data)
}

func TestCreateResponseEncode(t *testing.T) {
	var fileID [16]byte
	fileID[0] = 0x42
	resp := &CreateResponse{
		OplockLevel:  types.OplockLevelNone,
		CreateAction: types.FileOpened,
		FileID:       fileID,
		Contexts: []CreateContext{
			{Name: CreateCtxMxAc, Data: MaximalAccessContext{QueryStatus: types.StatusSuccess, MaximalAccess: 0x1F01FF}.Encode()},
		},
	}
	encoded := resp.Encode()
	assert.Greater(t, len(encoded), createRespFixedSize)
	ctxOffset := readUint32(encoded, 80)
	assert.NotZero(t, ctxOffset)
}

func TestMaximalAccessContextEncode(t *testing.T) {
	ctx := MaximalAccessContext{QueryStatus: types.StatusSuccess, MaximalAccess: types.AccessMask(0x1F01FF)}
	encoded := ctx.Encode()
	assert.Len(t, encoded, 8)
	assert.Equal(t, uint32(0x1F01FF), readUint32(encoded, 4))
}

func TestFileIDContextEncode(t *testing.T) {
	var fileID [16]byte
	fileID[0] = 0x7
	ctx := FileIDContext{FileID: fileID}
	encoded := ctx.Encode()
	assert.Len(t, encoded, 32)
	assert.Equal(t, fileID[:], encoded[:16])
}
