package types

import (
	"encoding/binary"
	"fmt"

	"github.com/coredoor/smbd/internal/wire"
)

// Negotiate context type IDs. [MS-SMB2] 2.2.3.1.
const (
	NegCtxPreauthIntegrity NegotiateContextType = 0x0001
	NegCtxEncryptionCaps   NegotiateContextType = 0x0002
	NegCtxCompressionCaps  NegotiateContextType = 0x0003
	NegCtxNetnameContextID NegotiateContextType = 0x0005
	NegCtxTransportCaps    NegotiateContextType = 0x0006
	NegCtxRDMATransform    NegotiateContextType = 0x0007
	NegCtxSigningCaps      NegotiateContextType = 0x0008
)

// Preauth integrity hash algorithm IDs. [MS-SMB2] 2.2.3.1.1.
const HashAlgorithmSHA512 uint16 = 0x0001

// Cipher IDs offered/selected in SMB2_ENCRYPTION_CAPABILITIES. [MS-SMB2] 2.2.3.1.2.
const (
	CipherAES128CCM uint16 = 0x0001
	CipherAES128GCM uint16 = 0x0002
	CipherAES256CCM uint16 = 0x0003
	CipherAES256GCM uint16 = 0x0004
)

// Signing algorithm IDs offered/selected in SMB2_SIGNING_CAPABILITIES.
const (
	SigningAlgorithmHMACSHA256 uint16 = 0x0000
	SigningAlgorithmAESCMAC    uint16 = 0x0001
	SigningAlgorithmAESGMAC    uint16 = 0x0002
)

// NegotiateContextType identifies the kind of a negotiate context entry.
type NegotiateContextType uint16

// NegotiateContext is a single SMB 3.1.1 negotiate context as carried in
// NEGOTIATE request/response messages. [MS-SMB2] 2.2.3.1.
type NegotiateContext struct {
	ContextType NegotiateContextType
	Data        []byte
}

// PreauthIntegrityCaps is SMB2_PREAUTH_INTEGRITY_CAPABILITIES: the hash
// algorithms the sender supports for the connection preauth integrity hash,
// plus a random salt. [MS-SMB2] 2.2.3.1.1.
type PreauthIntegrityCaps struct {
	HashAlgorithms []uint16
	Salt           []byte
}

// Encode serializes the context in HashAlgorithmCount(2) SaltLength(2)
// HashAlgorithms(...) Salt(...) order.
func (p PreauthIntegrityCaps) Encode() []byte {
	w := wire.NewWriter(4 + len(p.HashAlgorithms)*2 + len(p.Salt))
	w.WriteUint16(uint16(len(p.HashAlgorithms)))
	w.WriteUint16(uint16(len(p.Salt)))
	for _, alg := range p.HashAlgorithms {
		w.WriteUint16(alg)
	}
	w.WriteBytes(p.Salt)
	return w.Bytes()
}

// DecodePreauthIntegrityCaps parses SMB2_PREAUTH_INTEGRITY_CAPABILITIES.
func DecodePreauthIntegrityCaps(data []byte) (PreauthIntegrityCaps, error) {
	r := wire.NewReader(data)
	algCount := r.ReadUint16()
	saltLen := r.ReadUint16()
	if r.Err() != nil {
		return PreauthIntegrityCaps{}, fmt.Errorf("preauth integrity caps: %w", r.Err())
	}

	algs := make([]uint16, algCount)
	for i := range algs {
		algs[i] = r.ReadUint16()
	}
	salt := r.ReadBytes(int(saltLen))
	if r.Err() != nil {
		return PreauthIntegrityCaps{}, fmt.Errorf("preauth integrity caps: %w", r.Err())
	}
	return PreauthIntegrityCaps{HashAlgorithms: algs, Salt: salt}, nil
}

// EncryptionCaps is SMB2_ENCRYPTION_CAPABILITIES: the cipher IDs the sender
// supports. [MS-SMB2] 2.2.3.1.2.
type EncryptionCaps struct {
	Ciphers []uint16
}

// Encode serializes the context in CipherCount(2) Ciphers(...) order.
func (e EncryptionCaps) Encode() []byte {
	w := wire.NewWriter(2 + len(e.Ciphers)*2)
	w.WriteUint16(uint16(len(e.Ciphers)))
	for _, c := range e.Ciphers {
		w.WriteUint16(c)
	}
	return w.Bytes()
}

// DecodeEncryptionCaps parses SMB2_ENCRYPTION_CAPABILITIES.
func DecodeEncryptionCaps(data []byte) (EncryptionCaps, error) {
	r := wire.NewReader(data)
	count := r.ReadUint16()
	if r.Err() != nil {
		return EncryptionCaps{}, fmt.Errorf("encryption caps: %w", r.Err())
	}
	ciphers := make([]uint16, count)
	for i := range ciphers {
		ciphers[i] = r.ReadUint16()
	}
	if r.Err() != nil {
		return EncryptionCaps{}, fmt.Errorf("encryption caps: %w", r.Err())
	}
	return EncryptionCaps{Ciphers: ciphers}, nil
}

// SigningCaps is SMB2_SIGNING_CAPABILITIES: the signing algorithm IDs the
// sender supports, used to negotiate AES-CMAC/AES-GMAC over legacy
// HMAC-SHA256 on 3.1.1 connections.
type SigningCaps struct {
	SigningAlgorithms []uint16
}

// Encode serializes the context in AlgorithmCount(2) Algorithms(...) order.
func (s SigningCaps) Encode() []byte {
	w := wire.NewWriter(2 + len(s.SigningAlgorithms)*2)
	w.WriteUint16(uint16(len(s.SigningAlgorithms)))
	for _, a := range s.SigningAlgorithms {
		w.WriteUint16(a)
	}
	return w.Bytes()
}

// DecodeSigningCaps parses SMB2_SIGNING_CAPABILITIES.
func DecodeSigningCaps(data []byte) (SigningCaps, error) {
	r := wire.NewReader(data)
	count := r.ReadUint16()
	algs := make([]uint16, count)
	for i := range algs {
		algs[i] = r.ReadUint16()
	}
	if r.Err() != nil {
		return SigningCaps{}, fmt.Errorf("signing caps: %w", r.Err())
	}
	return SigningCaps{SigningAlgorithms: algs}, nil
}

// NetnameContext is SMB2_NETNAME_NEGOTIATE_CONTEXT_ID: the server name the
// client connected to, as a UTF-16LE string with no null terminator. Client
// only; the server never includes it in the response. [MS-SMB2] 2.2.3.1.4.
type NetnameContext struct {
	NetName string
}

// DecodeNetnameContext parses SMB2_NETNAME_NEGOTIATE_CONTEXT_ID.
func DecodeNetnameContext(data []byte) (NetnameContext, error) {
	if len(data) == 0 {
		return NetnameContext{}, nil
	}
	r := wire.NewReader(data)
	name := r.ReadUTF16(len(data))
	if r.Err() != nil {
		return NetnameContext{}, fmt.Errorf("netname context: %w", r.Err())
	}
	return NetnameContext{NetName: name}, nil
}

// ParseNegotiateContextList parses count negotiate contexts out of data.
// Each context is an 8-byte header (ContextType, DataLength, Reserved)
// followed by DataLength bytes of payload; contexts are 8-byte aligned
// relative to the start of the list, with no padding required after the
// last one. [MS-SMB2] 2.2.3.1.
func ParseNegotiateContextList(data []byte, count int) ([]NegotiateContext, error) {
	if count == 0 {
		return nil, nil
	}

	contexts := make([]NegotiateContext, 0, count)
	offset := 0

	for i := 0; i < count; i++ {
		if offset+8 > len(data) {
			return nil, fmt.Errorf("negotiate context %d: insufficient data for header at offset %d", i, offset)
		}

		contextType := binary.LittleEndian.Uint16(data[offset:])
		dataLength := binary.LittleEndian.Uint16(data[offset+2:])

		headerEnd := offset + 8
		if headerEnd+int(dataLength) > len(data) {
			return nil, fmt.Errorf("negotiate context %d: insufficient data for payload at offset %d (need %d, have %d)",
				i, headerEnd, dataLength, len(data)-headerEnd)
		}

		ctxData := make([]byte, dataLength)
		copy(ctxData, data[headerEnd:headerEnd+int(dataLength)])

		contexts = append(contexts, NegotiateContext{
			ContextType: NegotiateContextType(contextType),
			Data:        ctxData,
		})

		offset = headerEnd + int(dataLength)
		if i < count-1 && offset%8 != 0 {
			offset += 8 - (offset % 8)
		}
	}

	return contexts, nil
}

// EncodeNegotiateContextList encodes a list of negotiate contexts with
// 8-byte alignment padding between entries (never after the last one).
func EncodeNegotiateContextList(contexts []NegotiateContext) []byte {
	if len(contexts) == 0 {
		return nil
	}

	w := wire.NewWriter(256)
	for i, ctx := range contexts {
		w.WriteUint16(uint16(ctx.ContextType))
		w.WriteUint16(uint16(len(ctx.Data)))
		w.WriteUint32(0)
		w.WriteBytes(ctx.Data)
		if i < len(contexts)-1 {
			w.Pad(8)
		}
	}
	return w.Bytes()
}
