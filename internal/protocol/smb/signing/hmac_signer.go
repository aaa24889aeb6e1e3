package signing

import (
	"crypto/hmac"
	"crypto/sha256"
)

// HMACSigner signs SMB2 messages with HMAC-SHA256 truncated to 16 bytes,
// the only signing algorithm the 2.x dialects support.
type HMACSigner struct {
	key [KeySize]byte
}

// NewHMACSigner builds an HMACSigner from a session key, normalized to 16
// bytes. Returns nil for an empty key so callers can treat "no signer" and
// "signing unavailable" the same way.
func NewHMACSigner(sessionKey []byte) *HMACSigner {
	if len(sessionKey) == 0 {
		return nil
	}
	return &HMACSigner{key: normalizeKey(sessionKey)}
}

// Sign computes the HMAC-SHA256 signature, truncated to SignatureSize bytes.
func (s *HMACSigner) Sign(message []byte) [SignatureSize]byte {
	var sig [SignatureSize]byte
	if s == nil || len(message) < SMB2HeaderSize {
		return sig
	}
	cp := zeroedSignatureCopy(message)
	mac := hmac.New(sha256.New, s.key[:])
	mac.Write(cp)
	copy(sig[:], mac.Sum(nil)[:SignatureSize])
	return sig
}

// Verify reports whether message's embedded signature matches Sign's output.
func (s *HMACSigner) Verify(message []byte) bool {
	if s == nil || len(message) < SMB2HeaderSize {
		return false
	}
	var got [SignatureSize]byte
	copy(got[:], message[SignatureOffset:SignatureOffset+SignatureSize])
	want := s.Sign(message)
	return hmac.Equal(got[:], want[:])
}

// IsValid reports whether the signer holds a non-zero key.
func (s *HMACSigner) IsValid() bool {
	if s == nil {
		return false
	}
	var zero [KeySize]byte
	return s.key != zero
}
