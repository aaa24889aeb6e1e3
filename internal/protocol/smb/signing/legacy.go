package signing

// SigningKey is a bare HMAC-SHA256 signing key, kept as a minimal type for
// call sites that only need sign/verify without the full Signer dispatch
// (e.g. a standalone NEGOTIATE/SESSION_SETUP preauth check).
type SigningKey struct {
	key [KeySize]byte
}

// NewSigningKey builds a SigningKey from sessionKey, normalized to 16 bytes.
// Returns nil for an empty key.
func NewSigningKey(sessionKey []byte) *SigningKey {
	if len(sessionKey) == 0 {
		return nil
	}
	return &SigningKey{key: normalizeKey(sessionKey)}
}

// IsValid reports whether the key is non-zero.
func (sk *SigningKey) IsValid() bool {
	var zero [KeySize]byte
	return sk.key != zero
}

// Sign computes the HMAC-SHA256 signature for message.
func (sk *SigningKey) Sign(message []byte) [SignatureSize]byte {
	return (&HMACSigner{key: sk.key}).Sign(message)
}

// Verify reports whether message's embedded signature is valid.
func (sk *SigningKey) Verify(message []byte) bool {
	return (&HMACSigner{key: sk.key}).Verify(message)
}

// SignMessage signs message in place, setting the signed flag and writing
// the signature into the header's signature field.
func (sk *SigningKey) SignMessage(message []byte) {
	SignMessage(&HMACSigner{key: sk.key}, message)
}

// SigningConfig controls whether signing is advertised/mandatory for
// negotiated connections.
type SigningConfig struct {
	Enabled  bool
	Required bool
}

// DefaultSigningConfig enables signing without requiring it, matching what
// a server advertises before a client's security policy is known.
func DefaultSigningConfig() SigningConfig {
	return SigningConfig{Enabled: true, Required: false}
}
