package v2

import (
	"testing"

	"github.com/coredoor/smbd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogoffRoundTrip(t *testing.T) {
	_, err := DecodeLogoffRequest(make([]byte, 4))
	require.NoError(t, err)
	assert.Len(t, EncodeLogoffResponse(), 4)
}

func TestLogoffTooShort(t *testing.T) {
	_, err := DecodeLogoffRequest(make([]byte, 2))
	assert.Error(t, err)
}

func TestEchoRoundTrip(t *testing.T) {
	_, err := DecodeEchoRequest(make([]byte, 4))
	require.NoError(t, err)
	assert.Len(t, EncodeEchoResponse(), 4)
}

func TestFlushRequestDecode(t *testing.T) {
	w := wire.NewWriter(24)
	w.WriteUint16(24)
	w.WriteUint16(0)
	w.WriteUint32(0)
	var fileID [16]byte
	for i := range fileID {
		fileID[i] = byte(i + 1)
	}
	w.WriteBytes(fileID[:])

	req, err := DecodeFlushRequest(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, fileID, req.FileID)
	assert.Len(t, EncodeFlushResponse(), 4)
}

func TestFlushRequestTooShort(t *testing.T) {
	_, err := DecodeFlushRequest(make([]byte, 5))
	assert.Error(t, err)
}

func TestCancelRequestAlwaysDecodes(t *testing.T) {
	req, err := DecodeCancelRequest(nil)
	require.NoError(t, err)
	assert.NotNil(t, req)
}

func TestOplockBreakAckRoundTrip(t *testing.T) {
	w := wire.NewWriter(24)
	w.WriteUint16(24)
	w.WriteUint8(2) // Level II
	w.WriteUint8(0)
	w.WriteUint32(0)
	var fileID [16]byte
	fileID[0] = 0x9
	w.WriteBytes(fileID[:])

	ack, err := DecodeOplockBreakAck(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint8(2), ack.OplockLevel)
	assert.Equal(t, fileID, ack.FileID)

	resp := EncodeOplockBreakResponse(ack.OplockLevel, ack.FileID)
	assert.Len(t, resp, 24)
}

func TestLockRequestDecode(t *testing.T) {
	w := wire.NewWriter(48)
	w.WriteUint16(48)
	w.WriteUint16(2) // LockCount
	w.WriteUint32(1) // LockSequence
	var fileID [16]byte
	w.WriteBytes(fileID[:])
	w.WriteUint64(0)
	w.WriteUint64(100)
	w.WriteUint32(LockFlagExclusiveLock)
	w.WriteUint32(0)
	w.WriteUint64(100)
	w.WriteUint64(50)
	w.WriteUint32(LockFlagUnlock)
	w.WriteUint32(0)

	req, err := DecodeLockRequest(w.Bytes())
	require.NoError(t, err)
	require.Len(t, req.Locks, 2)
	assert.Equal(t, LockFlagExclusiveLock, req.Locks[0].Flags)
	assert.Equal(t, uint64(100), req.Locks[1].Offset)
	assert.Len(t, EncodeLockResponse(), 4)
}

func TestLockRequestTooShort(t *testing.T) {
	_, err := DecodeLockRequest(make([]byte, 4))
	assert.Error(t, err)
}

func TestChangeNotifyRequestDecode(t *testing.T) {
	w := wire.NewWriter(32)
	w.WriteUint16(32)
	w.WriteUint16(ChangeNotifyFlagWatchTree)
	w.WriteUint32(4096)
	var fileID [16]byte
	w.WriteBytes(fileID[:])
	w.WriteUint32(0x00000010) // FILE_NOTIFY_CHANGE_SIZE-ish
	w.WriteUint32(0)

	req, err := DecodeChangeNotifyRequest(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, ChangeNotifyFlagWatchTree, req.Flags)
	assert.Equal(t, uint32(4096), req.OutputBufferSize)
}
