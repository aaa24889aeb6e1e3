// Package signing implements SMB2 message signing: HMAC-SHA256 for the 2.x
// dialects and AES-CMAC/AES-GMAC for 3.x, dispatched by negotiated dialect
// and signing algorithm. [MS-SMB2] 3.1.4.1.
package signing

import (
	"encoding/binary"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
)

const (
	// SignatureOffset is where the 16-byte signature sits in the SMB2 header.
	SignatureOffset = 48
	// SignatureSize is the length of an SMB2 message signature.
	SignatureSize = 16
	// KeySize is the signing key length every algorithm here normalizes to.
	KeySize = 16
	// SMB2HeaderSize is the fixed length of the SMB2 synchronous header.
	SMB2HeaderSize = 64

	flagsOffset = 16
	flagSigned  = 0x00000008
)

// Signing algorithm ID constants. [MS-SMB2] 2.2.3.1.7.
const (
	SigningAlgHMACSHA256 uint16 = 0x0000
	SigningAlgAESCMAC    uint16 = 0x0001
	SigningAlgAESGMAC    uint16 = 0x0002
)

// Signer computes and verifies 16-byte SMB2 message signatures.
type Signer interface {
	// Sign computes the signature for message, treating the signature field
	// (bytes 48-63) as zero regardless of its current contents.
	Sign(message []byte) [SignatureSize]byte
	// Verify reports whether message's embedded signature matches Sign's output.
	Verify(message []byte) bool
}

// NewSigner builds the Signer appropriate for the negotiated dialect and
// signing algorithm:
//
//   - dialect < 3.0: HMAC-SHA256 (the only option pre-3.x)
//   - signingAlgorithmId == AES-GMAC: AES-GMAC
//   - otherwise: AES-CMAC (3.0/3.0.2 default, and 3.1.1 unless GMAC negotiated)
func NewSigner(dialect types.Dialect, signingAlgorithmId uint16, key []byte) Signer {
	if dialect < types.Dialect0300 {
		return NewHMACSigner(key)
	}
	if signingAlgorithmId == SigningAlgAESGMAC {
		return NewGMACSigner(key)
	}
	return NewCMACSigner(key)
}

// SignMessage signs message in place: sets the SMB2_FLAGS_SIGNED bit, zeros
// the signature field, then writes signer's computed signature into it.
func SignMessage(signer Signer, message []byte) {
	if signer == nil || len(message) < SMB2HeaderSize {
		return
	}
	flags := binary.LittleEndian.Uint32(message[flagsOffset:])
	flags |= flagSigned
	binary.LittleEndian.PutUint32(message[flagsOffset:], flags)

	for i := SignatureOffset; i < SignatureOffset+SignatureSize; i++ {
		message[i] = 0
	}
	sig := signer.Sign(message)
	copy(message[SignatureOffset:], sig[:])
}

// normalizeKey pads or truncates key to KeySize bytes, matching the wire
// contract that every signing key is exactly 16 bytes regardless of the raw
// session/derived key length a caller hands in.
func normalizeKey(key []byte) [KeySize]byte {
	var out [KeySize]byte
	if len(key) >= KeySize {
		copy(out[:], key[:KeySize])
	} else {
		copy(out[:], key)
	}
	return out
}

// zeroedSignatureCopy returns a copy of message with its signature field
// zeroed, the form every algorithm here signs over.
func zeroedSignatureCopy(message []byte) []byte {
	cp := make([]byte, len(message))
	copy(cp, message)
	for i := SignatureOffset; i < SignatureOffset+SignatureSize && i < len(cp); i++ {
		cp[i] = 0
	}
	return cp
}
