package rpc

import (
	"testing"

	"github.com/coredoor/smbd/internal/protocol/smb/share"
	"github.com/coredoor/smbd/internal/protocol/smb/share/memshare"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareInfoFromResourcesClassifiesByType(t *testing.T) {
	disk := memshare.NewDiskShare("data")
	pipe := memshare.NewPipeShare("IPC$")

	infos := ShareInfoFromResources([]share.SharedResource{disk, pipe})
	require.Len(t, infos, 2)
	assert.Equal(t, "data", infos[0].Name)
	assert.EqualValues(t, STypeDisktree, infos[0].Type)
	assert.Equal(t, "IPC$", infos[1].Name)
	assert.EqualValues(t, STypeIPC|STypeSpecial, infos[1].Type)
}

func TestSRVSVCHandlerHandleBindAcceptsOfferedSyntax(t *testing.T) {
	h := NewSRVSVCHandler(nil)
	bindData := buildTestBindRequest(1)
	bindReq, err := ParseBindRequest(bindData)
	require.NoError(t, err)

	resp := h.HandleBind(bindReq)
	hdr, err := ParseHeader(resp)
	require.NoError(t, err)
	assert.Equal(t, PDUBindAck, hdr.PacketType)
	assert.EqualValues(t, 1, hdr.CallID)
}

func TestSRVSVCHandlerHandleRequestUnsupportedOpnumReturnsFault(t *testing.T) {
	h := NewSRVSVCHandler(nil)
	req := &Request{Header: Header{CallID: 2}, OpNum: 999}

	resp := h.HandleRequest(req)
	hdr, err := ParseHeader(resp)
	require.NoError(t, err)
	assert.Equal(t, PDUFault, hdr.PacketType)
}

func TestSRVSVCHandlerNetrShareEnumListsConfiguredShares(t *testing.T) {
	h := NewSRVSVCHandler([]ShareInfo1{
		{Name: "data", Type: STypeDisktree},
		{Name: "IPC$", Type: STypeIPC | STypeSpecial},
	})

	reqData := buildTestRequest(4, OpNetrShareEnum, make([]byte, 8))
	req, err := ParseRequest(reqData)
	require.NoError(t, err)

	resp := h.HandleRequest(req)
	hdr, err := ParseHeader(resp)
	require.NoError(t, err)
	assert.Equal(t, PDUResponse, hdr.PacketType)
	assert.Greater(t, len(resp), HeaderSize+8)
}

func TestSRVSVCHandlerNetrShareEnumEmptyShareList(t *testing.T) {
	h := NewSRVSVCHandler(nil)
	reqData := buildTestRequest(5, OpNetrShareEnum, make([]byte, 8))
	req, err := ParseRequest(reqData)
	require.NoError(t, err)

	resp := h.HandleRequest(req)
	hdr, err := ParseHeader(resp)
	require.NoError(t, err)
	assert.Equal(t, PDUResponse, hdr.PacketType)
}

func TestEncodeUTF16LERoundTripsASCII(t *testing.T) {
	encoded := encodeUTF16LE("ab")
	assert.Equal(t, []byte{'a', 0, 'b', 0}, encoded)
}
