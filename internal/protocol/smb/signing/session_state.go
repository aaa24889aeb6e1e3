package signing

import (
	"github.com/coredoor/smbd/internal/protocol/smb/kdf"
	"github.com/coredoor/smbd/internal/protocol/smb/types"
)

// SessionSigningState holds the per-session keys and signer derived once
// SESSION_SETUP establishes a session key.
//
// For SMB 2.x sessions, only SigningKey and Signer are populated (direct
// HMAC-SHA256, no KDF). For SMB 3.x sessions, all four keys are derived via
// the SP800-108 KDF and the Signer is built from the negotiated signing
// algorithm (CMAC or GMAC).
type SessionSigningState struct {
	// Signer is the polymorphic signer for this session: HMACSigner for 2.x,
	// CMACSigner or GMACSigner for 3.x.
	Signer Signer

	SigningKey     []byte
	EncryptionKey  []byte
	DecryptionKey  []byte
	ApplicationKey []byte

	SigningEnabled  bool
	SigningRequired bool
}

// NewSessionSigningState returns an empty state with signing disabled,
// ready for SetSessionKey or DeriveSessionKeys once authentication completes.
func NewSessionSigningState() *SessionSigningState {
	return &SessionSigningState{}
}

// SetSessionKey derives signing state the SMB 2.x way: a direct HMAC-SHA256
// signer over the raw session key, with no KDF and no encryption/decryption/
// application keys.
func (s *SessionSigningState) SetSessionKey(sessionKey []byte) {
	if s == nil {
		return
	}
	s.SigningKey = append([]byte(nil), sessionKey...)
	s.Signer = NewHMACSigner(sessionKey)
}

// DeriveSessionKeys derives all four session keys via SP800-108 KDF for the
// given 3.x dialect and negotiated cipher/signing algorithm, and builds the
// dialect-appropriate Signer. preauthHash is only consulted for 3.1.1.
//
// Encryption/decryption key length is 256 bits for AES-256 ciphers, 128 bits
// otherwise; the signing and application keys are always 128 bits.
func (s *SessionSigningState) DeriveSessionKeys(sessionKey []byte, dialect types.Dialect, preauthHash [64]byte, cipherId uint16, signingAlgorithmId uint16) {
	if s == nil {
		return
	}

	if dialect < types.Dialect0300 {
		s.SetSessionKey(sessionKey)
		return
	}

	sigLabel, sigCtx := kdf.LabelAndContext(kdf.SigningKeyPurpose, dialect, preauthHash)
	s.SigningKey = kdf.DeriveKey(sessionKey, sigLabel, sigCtx, 128)
	s.Signer = NewSigner(dialect, signingAlgorithmId, s.SigningKey)

	encKeyBits := uint32(128)
	if cipherId == types.CipherAES256CCM || cipherId == types.CipherAES256GCM {
		encKeyBits = 256
	}

	encLabel, encCtx := kdf.LabelAndContext(kdf.EncryptionKeyPurpose, dialect, preauthHash)
	s.EncryptionKey = kdf.DeriveKey(sessionKey, encLabel, encCtx, encKeyBits)

	decLabel, decCtx := kdf.LabelAndContext(kdf.DecryptionKeyPurpose, dialect, preauthHash)
	s.DecryptionKey = kdf.DeriveKey(sessionKey, decLabel, decCtx, encKeyBits)

	appLabel, appCtx := kdf.LabelAndContext(kdf.ApplicationKeyPurpose, dialect, preauthHash)
	s.ApplicationKey = kdf.DeriveKey(sessionKey, appLabel, appCtx, 128)
}

// ShouldSign reports whether outgoing messages should be signed.
func (s *SessionSigningState) ShouldSign() bool {
	return s != nil && s.SigningEnabled && s.Signer != nil
}

// ShouldVerify reports whether incoming messages should have their
// signature checked.
func (s *SessionSigningState) ShouldVerify() bool {
	return s != nil && s.SigningEnabled && s.Signer != nil
}

// Destroy zeros all key material. Call this when the owning session is torn
// down.
func (s *SessionSigningState) Destroy() {
	if s == nil {
		return
	}
	clear(s.SigningKey)
	clear(s.EncryptionKey)
	clear(s.DecryptionKey)
	clear(s.ApplicationKey)
	s.Signer = nil
}
