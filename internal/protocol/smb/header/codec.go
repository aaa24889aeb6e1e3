package header

import (
	"errors"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/coredoor/smbd/internal/wire"
)

var (
	// ErrMessageTooShort means the buffer is shorter than a full header.
	ErrMessageTooShort = errors.New("header: message too short for SMB2 header")
	// ErrInvalidProtocolID means the leading 4 bytes aren't the SMB2 magic.
	ErrInvalidProtocolID = errors.New("header: invalid SMB2 protocol ID")
	// ErrInvalidStructureSize means the StructureSize field isn't 64.
	ErrInvalidStructureSize = errors.New("header: invalid SMB2 header structure size")
)

// Parse extracts an SMB2Header from the front of data. data must be at
// least Size bytes and start with the SMB2 protocol ID.
func Parse(data []byte) (*SMB2Header, error) {
	if len(data) < Size {
		return nil, ErrMessageTooShort
	}

	r := wire.NewReader(data[:Size])
	var protocolID [4]byte
	copy(protocolID[:], r.ReadBytes(4))
	if binaryProtocolID(protocolID) != types.SMB2ProtocolID {
		return nil, ErrInvalidProtocolID
	}

	structureSize := r.ReadUint16()
	if structureSize != Size {
		return nil, ErrInvalidStructureSize
	}

	h := &SMB2Header{
		ProtocolID:    protocolID,
		StructureSize: structureSize,
		CreditCharge:  r.ReadUint16(),
		Status:        types.Status(r.ReadUint32()),
		Command:       types.Command(r.ReadUint16()),
		Credits:       r.ReadUint16(),
		Flags:         types.HeaderFlags(r.ReadUint32()),
		NextCommand:   r.ReadUint32(),
		MessageID:     r.ReadUint64(),
		Reserved:      r.ReadUint32(),
		TreeID:        r.ReadUint32(),
		SessionID:     r.ReadUint64(),
	}
	copy(h.Signature[:], r.ReadBytes(16))
	if r.Err() != nil {
		return nil, r.Err()
	}
	return h, nil
}

// Encode serializes h to its 64-byte wire representation.
func (h *SMB2Header) Encode() []byte {
	w := wire.NewWriter(Size)
	w.WriteUint32(types.SMB2ProtocolID)
	w.WriteUint16(Size)
	w.WriteUint16(h.CreditCharge)
	w.WriteUint32(uint32(h.Status))
	w.WriteUint16(uint16(h.Command))
	w.WriteUint16(h.Credits)
	w.WriteUint32(uint32(h.Flags))
	w.WriteUint32(h.NextCommand)
	w.WriteUint64(h.MessageID)
	w.WriteUint32(h.Reserved)
	w.WriteUint32(h.TreeID)
	w.WriteUint64(h.SessionID)
	w.WriteBytes(h.Signature[:])
	return w.Bytes()
}

// NewResponseHeader builds a response header from a request header, copying
// over message/session/tree identity and granting generous credits so the
// client doesn't stall waiting for more.
func NewResponseHeader(req *SMB2Header, status types.Status) *SMB2Header {
	credits := req.Credits
	if credits < 256 {
		credits = 256
	}
	return &SMB2Header{
		StructureSize: Size,
		CreditCharge:  req.CreditCharge,
		Status:        status,
		Command:       req.Command,
		Credits:       credits,
		Flags:         types.FlagResponse,
		MessageID:     req.MessageID,
		TreeID:        req.TreeID,
		SessionID:     req.SessionID,
	}
}

// NewResponseHeaderWithCredits is NewResponseHeader with an explicit credit
// grant, used when the dispatch layer wants to throttle or boost a
// particular client's outstanding-request window.
func NewResponseHeaderWithCredits(req *SMB2Header, status types.Status, credits uint16) *SMB2Header {
	h := NewResponseHeader(req, status)
	h.Credits = credits
	return h
}

// IsSMB2Message reports whether data begins with the SMB2 protocol ID.
func IsSMB2Message(data []byte) bool {
	return len(data) >= 4 && binaryProtocolIDBytes(data) == types.SMB2ProtocolID
}

// IsSMB1Message reports whether data begins with the legacy SMB1 protocol ID,
// used to detect a client that needs to be negotiated up to SMB2.
func IsSMB1Message(data []byte) bool {
	return len(data) >= 4 && binaryProtocolIDBytes(data) == types.SMB1ProtocolID
}

func binaryProtocolID(b [4]byte) uint32 {
	return binaryProtocolIDBytes(b[:])
}

func binaryProtocolIDBytes(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
