// Package kdf implements the SP800-108 counter-mode KDF with HMAC-SHA256
// that SMB 3.x uses to derive signing, encryption, decryption, and
// application keys from the session key established during authentication.
//
// Reference: [SP800-108] 5.1, [MS-SMB2] 3.1.4.2.
package kdf

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
)

// KeyPurpose identifies which of the four session keys is being derived.
type KeyPurpose uint8

const (
	SigningKeyPurpose KeyPurpose = iota
	EncryptionKeyPurpose
	DecryptionKeyPurpose
	ApplicationKeyPurpose
)

func (p KeyPurpose) String() string {
	switch p {
	case SigningKeyPurpose:
		return "Signing"
	case EncryptionKeyPurpose:
		return "Encryption"
	case DecryptionKeyPurpose:
		return "Decryption"
	case ApplicationKeyPurpose:
		return "Application"
	default:
		return "Unknown"
	}
}

// DeriveKey implements SP800-108 counter-mode KDF with an HMAC-SHA256 PRF:
//
//	counter(4 bytes BE) || label || 0x00 || context || L(4 bytes BE)
//
// A single iteration (counter=1) yields 256 bits, enough for both the
// 128-bit and 256-bit keys SMB 3.x needs.
func DeriveKey(ki, label, context []byte, keyLenBits uint32) []byte {
	h := hmac.New(sha256.New, ki)

	var counter [4]byte
	binary.BigEndian.PutUint32(counter[:], 1)
	h.Write(counter[:])

	h.Write(label)
	h.Write([]byte{0x00})
	h.Write(context)

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], keyLenBits)
	h.Write(length[:])

	result := h.Sum(nil)
	return result[:keyLenBits/8]
}

// Label/context constants per [MS-SMB2] 3.1.4.2. Each label's null
// terminator is part of the literal, as the KDF requires.
var (
	label30Signing    = []byte("SMB2AESCMAC\x00")
	label30Encryption = []byte("SMB2AESCCM\x00")
	label30Decryption = []byte("SMB2AESCCM\x00")
	label30App        = []byte("SMB2APP\x00")

	ctx30Signing    = []byte("SmbSign\x00")
	ctx30Encryption = []byte("ServerIn \x00")
	ctx30Decryption = []byte("ServerOut\x00")
	ctx30App        = []byte("SmbRpc\x00")

	label311Signing    = []byte("SMBSigningKey\x00")
	label311Encryption = []byte("SMBC2SCipherKey\x00")
	label311Decryption = []byte("SMBS2CCipherKey\x00")
	label311App        = []byte("SMBAppKey\x00")
)

// LabelAndContext returns the label/context pair for purpose under the given
// dialect. SMB 3.1.1 uses the connection's preauth integrity hash as context
// for every purpose; 3.0/3.0.2 use fixed strings.
func LabelAndContext(purpose KeyPurpose, dialect types.Dialect, preauthHash [64]byte) (label, context []byte) {
	if dialect == types.Dialect0311 {
		ctx := make([]byte, 64)
		copy(ctx, preauthHash[:])

		switch purpose {
		case SigningKeyPurpose:
			return label311Signing, ctx
		case EncryptionKeyPurpose:
			return label311Encryption, ctx
		case DecryptionKeyPurpose:
			return label311Decryption, ctx
		case ApplicationKeyPurpose:
			return label311App, ctx
		}
	}

	switch purpose {
	case SigningKeyPurpose:
		return label30Signing, ctx30Signing
	case EncryptionKeyPurpose:
		return label30Encryption, ctx30Encryption
	case DecryptionKeyPurpose:
		return label30Decryption, ctx30Decryption
	case ApplicationKeyPurpose:
		return label30App, ctx30App
	}

	return nil, nil
}
