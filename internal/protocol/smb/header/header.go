// Package header implements the 64-byte SMB2 synchronous header that
// prefixes every SMB2 message: protocol ID, structure size, credit
// accounting, command/status, and message/session/tree identity.
//
//	Offset  Size  Field
//	0       4     ProtocolID    (0xFE 'S' 'M' 'B', little-endian 0x424D53FE)
//	4       2     StructureSize (always 64)
//	6       2     CreditCharge
//	8       4     Status        (NT_STATUS in responses, ChannelSequence in requests)
//	12      2     Command
//	14      2     Credits       (CreditRequest in requests, CreditResponse in responses)
//	16      4     Flags
//	20      4     NextCommand   (compound chaining offset)
//	24      8     MessageID
//	32      4     Reserved      (ProcessID in sync requests)
//	36      4     TreeID
//	40      8     SessionID
//	48      16    Signature
//
// [MS-SMB2] 2.2.1.
package header

import (
	"github.com/coredoor/smbd/internal/protocol/smb/types"
)

// Size is the fixed length of an SMB2 synchronous header.
const Size = 64

// SMB2Header is the common header shared by every SMB2 request and response.
type SMB2Header struct {
	ProtocolID    [4]byte
	StructureSize uint16
	CreditCharge  uint16
	Status        types.Status
	Command       types.Command
	Credits       uint16
	Flags         types.HeaderFlags
	NextCommand   uint32
	MessageID     uint64
	Reserved      uint32
	TreeID        uint32
	SessionID     uint64
	Signature     [16]byte
}

func (h *SMB2Header) IsResponse() bool { return h.Flags.IsResponse() }
func (h *SMB2Header) IsAsync() bool    { return h.Flags.IsAsync() }
func (h *SMB2Header) IsSigned() bool   { return h.Flags.IsSigned() }
func (h *SMB2Header) IsRelated() bool  { return h.Flags.IsRelated() }

// CommandName returns the human-readable command name.
func (h *SMB2Header) CommandName() string { return h.Command.String() }

// StatusName returns the human-readable status name.
func (h *SMB2Header) StatusName() string { return h.Status.String() }
