package v2

import (
	"testing"

	"github.com/coredoor/smbd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeIoctlRequest(t *testing.T, ctlCode uint32, input []byte) []byte {
	t.Helper()
	w := wire.NewWriter(ioctlReqFixedSize + len(input))
	w.WriteUint16(57)
	w.WriteUint16(0)
	w.WriteUint32(ctlCode)
	var fileID [16]byte
	w.WriteBytes(fileID[:])
	var inputOffset uint32
	if len(input) > 0 {
		inputOffset = 64 + ioctlReqFixedSize
	}
	w.WriteUint32(inputOffset)
	w.WriteUint32(uint32(len(input)))
	w.WriteUint32(65536) // MaxInputResponse
	w.WriteUint32(0)     // OutputOffset
	w.WriteUint32(0)     // OutputCount
	w.WriteUint32(65536) // MaxOutputResponse
	w.WriteUint32(IoctlFlagIsFsctl)
	w.WriteUint32(0) // Reserved2
	w.WriteBytes(input)
	return w.Bytes()
}

func TestDecodeIoctlRequest(t *testing.T) {
	body := encodeIoctlRequest(t, FsctlPipeTranceive, []byte{0xAA, 0xBB})
	req, err := DecodeIoctlRequest(body)
	require.NoError(t, err)
	assert.Equal(t, FsctlPipeTranceive, req.CtlCode)
	assert.Equal(t, []byte{0xAA, 0xBB}, req.InputData)
	assert.Equal(t, IoctlFlagIsFsctl, req.Flags)
}

func TestDecodeIoctlRequestTooShort(t *testing.T) {
	_, err := DecodeIoctlRequest(make([]byte, 10))
	assert.Error(t, err)
}

func TestIoctlResponseEncode(t *testing.T) {
	resp := &IoctlResponse{
		CtlCode:    FsctlValidateNegotiateInfo,
		InputData:  []byte{0x1},
		OutputData: []byte{0x2, 0x3},
	}
	encoded := resp.Encode()
	assert.Greater(t, len(encoded), ioctlRespFixedSize)
}

func TestValidateNegotiateInfoRoundTrip(t *testing.T) {
	w := wire.NewWriter(28)
	w.WriteUint32(0x1)
	var guid [16]byte
	guid[0] = 0x1
	w.WriteBytes(guid[:])
	w.WriteUint16(1)
	w.WriteUint16(2)
	w.WriteUint16(0x0300)
	w.WriteUint16(0x0311)

	req, err := DecodeValidateNegotiateInfoRequest(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, guid, req.ClientGUID)
	assert.Equal(t, []uint16{0x0300, 0x0311}, req.Dialects)

	resp := ValidateNegotiateInfoResponse{
		Capabilities:    1,
		ServerGUID:      guid,
		SecurityMode:    1,
		DialectRevision: 0x0311,
	}
	encoded := resp.Encode()
	assert.Len(t, encoded, 24)
}

func TestValidateNegotiateInfoRequestTooShort(t *testing.T) {
	_, err := DecodeValidateNegotiateInfoRequest(make([]byte, 5))
	assert.Error(t, err)
}
