package rpc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestBindRequest builds a minimal bind PDU for the SRVSVC interface.
func buildTestBindRequest(callID uint32) []byte {
	buf := make([]byte, 72)

	buf[0] = 5
	buf[1] = 0
	buf[2] = PDUBind
	buf[3] = FlagFirstFrag | FlagLastFrag
	buf[4] = 0x10
	binary.LittleEndian.PutUint16(buf[8:10], 72)
	binary.LittleEndian.PutUint32(buf[12:16], callID)

	binary.LittleEndian.PutUint16(buf[16:18], 4280)
	binary.LittleEndian.PutUint16(buf[18:20], 4280)
	binary.LittleEndian.PutUint32(buf[20:24], 0)
	buf[24] = 1

	binary.LittleEndian.PutUint16(buf[28:30], 0)
	buf[30] = 1

	copy(buf[32:48], SRVSVCInterfaceUUID[:])
	binary.LittleEndian.PutUint32(buf[48:52], 0)

	copy(buf[52:68], NDRTransferSyntaxUUID[:])
	binary.LittleEndian.PutUint32(buf[68:72], 2)

	return buf
}

func buildTestRequest(callID uint32, opnum uint16, stubData []byte) []byte {
	fragLen := HeaderSize + 8 + len(stubData)
	buf := make([]byte, fragLen)

	buf[0] = 5
	buf[1] = 0
	buf[2] = PDURequest
	buf[3] = FlagFirstFrag | FlagLastFrag
	buf[4] = 0x10
	binary.LittleEndian.PutUint16(buf[8:10], uint16(fragLen))
	binary.LittleEndian.PutUint32(buf[12:16], callID)

	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(stubData)))
	binary.LittleEndian.PutUint16(buf[20:22], 0)
	binary.LittleEndian.PutUint16(buf[22:24], opnum)

	copy(buf[24:], stubData)
	return buf
}

func TestParseHeaderRejectsShortInput(t *testing.T) {
	_, err := ParseHeader([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestParseHeaderRoundTripsFields(t *testing.T) {
	data := buildTestBindRequest(42)
	hdr, err := ParseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), hdr.VersionMajor)
	assert.Equal(t, PDUBind, hdr.PacketType)
	assert.EqualValues(t, 42, hdr.CallID)
	assert.EqualValues(t, 72, hdr.FragLength)
}

func TestHeaderEncodeMatchesParse(t *testing.T) {
	hdr := &Header{
		VersionMajor: 5,
		PacketType:   PDURequest,
		Flags:        FlagFirstFrag | FlagLastFrag,
		DataRep:      [4]byte{0x10, 0, 0, 0},
		FragLength:   100,
		CallID:       7,
	}
	encoded := hdr.Encode()
	parsed, err := ParseHeader(encoded)
	require.NoError(t, err)
	assert.Equal(t, hdr.VersionMajor, parsed.VersionMajor)
	assert.Equal(t, hdr.PacketType, parsed.PacketType)
	assert.Equal(t, hdr.FragLength, parsed.FragLength)
	assert.Equal(t, hdr.CallID, parsed.CallID)
}

func TestParseBindRequestExtractsContext(t *testing.T) {
	data := buildTestBindRequest(1)
	req, err := ParseBindRequest(data)
	require.NoError(t, err)
	assert.EqualValues(t, 4280, req.MaxXmitFrag)
	require.Len(t, req.ContextList, 1)
	assert.Equal(t, SRVSVCInterfaceUUID, req.ContextList[0].AbstractSyntax.UUID)
	require.Len(t, req.ContextList[0].TransferSyntaxes, 1)
	assert.Equal(t, NDRTransferSyntaxUUID, req.ContextList[0].TransferSyntaxes[0].UUID)
}

func TestParseBindRequestRejectsWrongPDUType(t *testing.T) {
	data := buildTestRequest(1, OpNetrShareEnum, nil)
	_, err := ParseBindRequest(data)
	assert.Error(t, err)
}

func TestBindAckEncodeIsParsableAsHeader(t *testing.T) {
	ack := &BindAck{
		MaxXmitFrag: 4280,
		MaxRecvFrag: 4280,
		SecAddr:     "\\PIPE\\srvsvc",
		NumResults:  1,
		Results: []ContextResult{
			{TransferSyntax: SyntaxID{UUID: NDRTransferSyntaxUUID, Version: 2}},
		},
	}
	data := ack.Encode(9)
	hdr, err := ParseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, PDUBindAck, hdr.PacketType)
	assert.EqualValues(t, 9, hdr.CallID)
	assert.EqualValues(t, len(data), hdr.FragLength)
}

func TestParseRequestExtractsStubData(t *testing.T) {
	stub := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	data := buildTestRequest(5, OpNetrShareEnum, stub)
	req, err := ParseRequest(data)
	require.NoError(t, err)
	assert.Equal(t, OpNetrShareEnum, req.OpNum)
	assert.Equal(t, stub, req.StubData)
}

func TestResponseEncodeRoundTripsAsHeader(t *testing.T) {
	resp := &Response{StubData: []byte("hello")}
	data := resp.Encode(3)
	hdr, err := ParseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, PDUResponse, hdr.PacketType)
	assert.EqualValues(t, 3, hdr.CallID)
}

func TestEncodeFaultProducesFaultPDU(t *testing.T) {
	data := EncodeFault(11, ncaOpRngError)
	hdr, err := ParseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, PDUFault, hdr.PacketType)
	status := binary.LittleEndian.Uint32(data[24:28])
	assert.Equal(t, ncaOpRngError, status)
}
