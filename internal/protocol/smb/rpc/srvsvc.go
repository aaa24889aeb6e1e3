package rpc

import (
	"encoding/binary"

	"github.com/coredoor/smbd/internal/logger"
	"github.com/coredoor/smbd/internal/protocol/smb/share"
)

// SRVSVC interface UUID: 4b324fc8-1670-01d3-1278-5a47bf6ee188
var SRVSVCInterfaceUUID = [16]byte{
	0xc8, 0x4f, 0x32, 0x4b,
	0x70, 0x16,
	0xd3, 0x01,
	0x12, 0x78,
	0x5a, 0x47, 0xbf, 0x6e, 0xe1, 0x88,
}

// NDR transfer syntax UUID: 8a885d04-1ceb-11c9-9fe8-08002b104860
var NDRTransferSyntaxUUID = [16]byte{
	0x04, 0x5d, 0x88, 0x8a,
	0xeb, 0x1c,
	0xc9, 0x11,
	0x9f, 0xe8,
	0x08, 0x00, 0x2b, 0x10, 0x48, 0x60,
}

// SRVSVC operation numbers. [MS-SRVS] 3.1.4
const (
	OpNetrShareEnum     uint16 = 15
	OpNetrShareGetInfo  uint16 = 16
	OpNetrServerGetInfo uint16 = 21
)

// Share types. [MS-SRVS] 2.2.2.4
const (
	STypeDisktree  uint32 = 0x00000000
	STypePrintq    uint32 = 0x00000001
	STypeDevice    uint32 = 0x00000002
	STypeIPC       uint32 = 0x00000003
	STypeSpecial   uint32 = 0x80000000
	STypeTemporary uint32 = 0x40000000
)

const (
	NERRSuccess      uint32 = 0x00000000
	ErrorMoreData    uint32 = 0x000000EA
	ErrorAccessDenied uint32 = 0x00000005

	ncaOpRngError uint32 = 0x1C010003
)

// ShareInfo1 is SHARE_INFO_1. [MS-SRVS] 2.2.4.23
type ShareInfo1 struct {
	Name    string
	Type    uint32
	Comment string
}

// ShareInfoFromResources converts the server's published shares into the
// SHARE_INFO_1 rows NetrShareEnum reports, classifying the IPC$ administrative
// share and print queues by ResourceType.
func ShareInfoFromResources(resources []share.SharedResource) []ShareInfo1 {
	infos := make([]ShareInfo1, 0, len(resources))
	for _, r := range resources {
		infos = append(infos, ShareInfo1{
			Name: r.Name(),
			Type: shareTypeFor(r),
		})
	}
	return infos
}

func shareTypeFor(r share.SharedResource) uint32 {
	switch r.ResourceType() {
	case share.ResourceTypePipe:
		return STypeIPC | STypeSpecial
	case share.ResourceTypePrint:
		return STypePrintq
	default:
		return STypeDisktree
	}
}

// SRVSVCHandler answers SRVSVC RPC calls carried over the srvsvc named pipe.
type SRVSVCHandler struct {
	shares []ShareInfo1
}

func NewSRVSVCHandler(shares []ShareInfo1) *SRVSVCHandler {
	return &SRVSVCHandler{shares: shares}
}

// HandleBind answers a Bind PDU with a Bind_ack accepting the client's
// offered transfer syntax (or NDR by default).
func (h *SRVSVCHandler) HandleBind(req *BindRequest) []byte {
	transferSyntax := SyntaxID{UUID: NDRTransferSyntaxUUID, Version: 0x00000002}
	if len(req.ContextList) > 0 && len(req.ContextList[0].TransferSyntaxes) > 0 {
		transferSyntax = req.ContextList[0].TransferSyntaxes[0]
	}

	ack := &BindAck{
		MaxXmitFrag:  req.MaxXmitFrag,
		MaxRecvFrag:  req.MaxRecvFrag,
		AssocGroupID: 0x12345678,
		SecAddr:      "\\PIPE\\srvsvc",
		NumResults:   1,
		Results: []ContextResult{
			{Result: 0, Reason: 0, TransferSyntax: transferSyntax},
		},
	}
	return ack.Encode(req.Header.CallID)
}

func (h *SRVSVCHandler) HandleRequest(req *Request) []byte {
	switch req.OpNum {
	case OpNetrShareEnum:
		return h.handleNetrShareEnum(req)
	default:
		return EncodeFault(req.Header.CallID, ncaOpRngError)
	}
}

// handleNetrShareEnum answers NetrShareEnum (opnum 15). [MS-SRVS] 3.1.4.8
func (h *SRVSVCHandler) handleNetrShareEnum(req *Request) []byte {
	level := uint32(1)
	if len(req.StubData) >= 8 {
		level = binary.LittleEndian.Uint32(req.StubData[4:8])
	}

	var stubData []byte
	switch level {
	case 1:
		stubData = h.buildShareEnumLevel1Response()
	default:
		stubData = h.buildShareEnumLevel1Response()
	}

	resp := &Response{
		AllocHint:   uint32(len(stubData)),
		ContextID:   req.ContextID,
		CancelCount: 0,
		StubData:    stubData,
	}
	return resp.Encode(req.Header.CallID)
}

// buildShareEnumLevel1Response NDR-encodes a SHARE_INFO_1_CONTAINER holding
// one entry per configured share.
func (h *SRVSVCHandler) buildShareEnumLevel1Response() []byte {
	numShares := len(h.shares)
	logger.Debug("building share enum response", "num_shares", numShares)

	buf := make([]byte, 0, 1024)

	buf = appendUint32(buf, 1) // Level
	buf = appendUint32(buf, 1) // switch_is
	buf = appendUint32(buf, 0x00020000) // container pointer

	buf = appendUint32(buf, uint32(numShares))

	if numShares > 0 {
		buf = appendUint32(buf, 0x00020004)
	} else {
		buf = appendUint32(buf, 0)
	}

	if numShares > 0 {
		buf = appendUint32(buf, uint32(numShares))

		ptrValue := uint32(0x00020008)
		for i, s := range h.shares {
			buf = appendUint32(buf, ptrValue+uint32(i*8))
			buf = appendUint32(buf, s.Type)
			buf = appendUint32(buf, ptrValue+uint32(i*8)+4)
		}

		for _, s := range h.shares {
			nameLen := len(s.Name) + 1
			buf = appendUint32(buf, uint32(nameLen))
			buf = appendUint32(buf, 0)
			buf = appendUint32(buf, uint32(nameLen))
			buf = append(buf, encodeUTF16LE(s.Name)...)
			buf = append(buf, 0, 0)
			for len(buf)%4 != 0 {
				buf = append(buf, 0)
			}

			commentLen := len(s.Comment) + 1
			buf = appendUint32(buf, uint32(commentLen))
			buf = appendUint32(buf, 0)
			buf = appendUint32(buf, uint32(commentLen))
			buf = append(buf, encodeUTF16LE(s.Comment)...)
			buf = append(buf, 0, 0)
			for len(buf)%4 != 0 {
				buf = append(buf, 0)
			}
		}
	}

	buf = appendUint32(buf, uint32(numShares)) // TotalEntries
	buf = appendUint32(buf, 0)                 // ResumeHandle pointer
	buf = appendUint32(buf, NERRSuccess)

	return buf
}

func appendUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func encodeUTF16LE(s string) []byte {
	result := make([]byte, len(s)*2)
	for i, r := range s {
		binary.LittleEndian.PutUint16(result[i*2:], uint16(r))
	}
	return result
}
