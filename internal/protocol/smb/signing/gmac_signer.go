package signing

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
)

// messageIDOffset and length locate the SMB2 header's MessageId field, used
// as the GMAC nonce source.
const (
	messageIDOffset = 24
	messageIDLen    = 8
	gmacNonceSize   = 12
)

// GMACSigner signs SMB2 messages with AES-128-GMAC: AES-GCM run with an
// empty plaintext and the whole message as additional authenticated data,
// the optional 3.1.1 signing algorithm. The nonce is the header's MessageId
// field, zero-padded to 12 bytes.
type GMACSigner struct {
	aead cipher.AEAD
}

// NewGMACSigner builds a GMACSigner from key, normalized to 16 bytes.
// Returns nil for an empty key or if the AEAD can't be constructed.
func NewGMACSigner(key []byte) *GMACSigner {
	if len(key) == 0 {
		return nil
	}
	k := normalizeKey(key)
	block, err := aes.NewCipher(k[:])
	if err != nil {
		return nil
	}
	aead, err := cipher.NewGCMWithNonceSize(block, gmacNonceSize)
	if err != nil {
		return nil
	}
	return &GMACSigner{aead: aead}
}

func gmacNonce(message []byte) [gmacNonceSize]byte {
	var nonce [gmacNonceSize]byte
	copy(nonce[:messageIDLen], message[messageIDOffset:messageIDOffset+messageIDLen])
	return nonce
}

// Sign computes the GCM authentication tag over message (as AAD) with an
// empty plaintext, treating the signature field as zero.
func (s *GMACSigner) Sign(message []byte) [SignatureSize]byte {
	var sig [SignatureSize]byte
	if s == nil || len(message) < SMB2HeaderSize {
		return sig
	}
	cp := zeroedSignatureCopy(message)
	nonce := gmacNonce(cp)
	tag := s.aead.Seal(nil, nonce[:], nil, cp)
	copy(sig[:], tag[:SignatureSize])
	return sig
}

// Verify reports whether message's embedded signature matches Sign's output.
func (s *GMACSigner) Verify(message []byte) bool {
	if s == nil || len(message) < SMB2HeaderSize {
		return false
	}
	var got [SignatureSize]byte
	copy(got[:], message[SignatureOffset:SignatureOffset+SignatureSize])
	want := s.Sign(message)
	return subtle.ConstantTimeCompare(got[:], want[:]) == 1
}
