package v2

import (
	"testing"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/coredoor/smbd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeNegotiateRequest(t *testing.T, dialects []uint16) []byte {
	t.Helper()
	w := wire.NewWriter(36 + len(dialects)*2)
	w.WriteUint16(36) // StructureSize
	w.WriteUint16(uint16(len(dialects)))
	w.WriteUint16(1) // SecurityMode
	w.WriteUint16(0) // Reserved
	w.WriteUint32(0) // Capabilities
	w.WriteZeros(16) // ClientGUID
	w.WriteUint32(0) // NegotiateContextOffset
	w.WriteUint16(0) // NegotiateContextCount
	w.WriteUint16(0) // Reserved2
	for _, d := range dialects {
		w.WriteUint16(d)
	}
	return w.Bytes()
}

func TestDecodeNegotiateRequest(t *testing.T) {
	body := encodeNegotiateRequest(t, []uint16{0x0202, 0x0300, 0x0311})
	req, err := DecodeNegotiateRequest(body)
	require.NoError(t, err)
	assert.Equal(t, []types.Dialect{types.Dialect0202, types.Dialect0300, types.Dialect0311}, req.Dialects)
	assert.True(t, req.HasDialect(types.Dialect0300))
	assert.False(t, req.HasDialect(types.Dialect0210))
}

func TestDecodeNegotiateRequestTooShort(t *testing.T) {
	_, err := DecodeNegotiateRequest(make([]byte, 10))
	assert.Error(t, err)
}

func TestNegotiateResponseEncodeWithoutContexts(t *testing.T) {
	resp := &NegotiateResponse{
		SecurityMode:    1,
		DialectRevision: types.Dialect0300,
		Capabilities:    0x1,
		MaxTransactSize: 8388608,
		MaxReadSize:     8388608,
		MaxWriteSize:    8388608,
	}
	encoded := resp.Encode()
	assert.Equal(t, uint16(65), readUint16(encoded, 0))
	assert.Len(t, encoded, 64)
}

func TestNegotiateResponseEncodeWithContexts(t *testing.T) {
	resp := &NegotiateResponse{
		DialectRevision: types.Dialect0311,
		NegotiateContexts: []types.NegotiateContext{
			{ContextType: types.NegCtxPreauthIntegrity, Data: []byte{0x01, 0x02, 0x03, 0x04}},
		},
	}
	encoded := resp.Encode()
	assert.Greater(t, len(encoded), 64)
	ctxOffset := readUint32(encoded, 60)
	assert.NotZero(t, ctxOffset)
}

func TestLegacyNegotiateRequestAsNegotiateRequest(t *testing.T) {
	legacy := &LegacyNegotiateRequest{}
	req := legacy.AsNegotiateRequest()
	assert.True(t, req.HasDialect(types.DialectWildcard))
}

func readUint16(b []byte, offset int) uint16 {
	r := wire.NewReader(b[offset:])
	return r.ReadUint16()
}

func readUint32(b []byte, offset int) uint32 {
	r := wire.NewReader(b[offset:])
	return r.ReadUint32()
}
