package kdf

import (
	"encoding/hex"
	"testing"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// TestDeriveKeySMB30SigningKeyVector checks DeriveKey against the published
// MS-SMB2 SMB 3.0 signing-key derivation test vector.
func TestDeriveKeySMB30SigningKeyVector(t *testing.T) {
	sessionKey := mustHex(t, "7CD451825D0450D235424E44BA6E78CC")
	want := mustHex(t, "0B7E9C5CAC36C0F6EA9AB275298CEDCE")

	label, context := LabelAndContext(SigningKeyPurpose, types.Dialect0300, [64]byte{})
	got := DeriveKey(sessionKey, label, context, 128)

	assert.Equal(t, want, got)
}

func TestDeriveKeySMB311UsesPreauthHashAsContext(t *testing.T) {
	sessionKey := mustHex(t, "270E1BA896585EEB7AF3472D3B4C75A7")

	var hashA, hashB [64]byte
	for i := range hashA {
		hashA[i] = byte(i)
		hashB[i] = byte(i + 100)
	}

	labelA, ctxA := LabelAndContext(SigningKeyPurpose, types.Dialect0311, hashA)
	keyA := DeriveKey(sessionKey, labelA, ctxA, 128)
	keyARepeat := DeriveKey(sessionKey, labelA, ctxA, 128)
	assert.Equal(t, keyA, keyARepeat, "KDF must be deterministic")
	assert.Len(t, keyA, 16)

	label30, ctx30 := LabelAndContext(SigningKeyPurpose, types.Dialect0300, [64]byte{})
	key30 := DeriveKey(sessionKey, label30, ctx30, 128)
	assert.NotEqual(t, keyA, key30, "3.1.1 and 3.0 derivations must differ")

	labelB, ctxB := LabelAndContext(SigningKeyPurpose, types.Dialect0311, hashB)
	keyB := DeriveKey(sessionKey, labelB, ctxB, 128)
	assert.NotEqual(t, keyA, keyB, "different preauth hashes must yield different keys")
}

func TestLabelAndContextSMB30AllPurposes(t *testing.T) {
	cases := []struct {
		purpose     KeyPurpose
		label, ctx  string
	}{
		{SigningKeyPurpose, "SMB2AESCMAC\x00", "SmbSign\x00"},
		{EncryptionKeyPurpose, "SMB2AESCCM\x00", "ServerIn \x00"},
		{DecryptionKeyPurpose, "SMB2AESCCM\x00", "ServerOut\x00"},
		{ApplicationKeyPurpose, "SMB2APP\x00", "SmbRpc\x00"},
	}
	for _, c := range cases {
		label, ctx := LabelAndContext(c.purpose, types.Dialect0300, [64]byte{})
		assert.Equal(t, []byte(c.label), label, c.purpose.String())
		assert.Equal(t, []byte(c.ctx), ctx, c.purpose.String())
	}
}

func TestLabelAndContextSMB302MatchesSMB30(t *testing.T) {
	label30, ctx30 := LabelAndContext(SigningKeyPurpose, types.Dialect0300, [64]byte{})
	label302, ctx302 := LabelAndContext(SigningKeyPurpose, types.Dialect0302, [64]byte{})
	assert.Equal(t, label30, label302)
	assert.Equal(t, ctx30, ctx302)
}

func TestLabelAndContextSMB311UsesPreauthHash(t *testing.T) {
	var preauthHash [64]byte
	for i := range preauthHash {
		preauthHash[i] = byte(i)
	}

	cases := []struct {
		purpose KeyPurpose
		label   string
	}{
		{SigningKeyPurpose, "SMBSigningKey\x00"},
		{EncryptionKeyPurpose, "SMBC2SCipherKey\x00"},
		{DecryptionKeyPurpose, "SMBS2CCipherKey\x00"},
		{ApplicationKeyPurpose, "SMBAppKey\x00"},
	}
	for _, c := range cases {
		label, ctx := LabelAndContext(c.purpose, types.Dialect0311, preauthHash)
		assert.Equal(t, []byte(c.label), label, c.purpose.String())
		assert.Equal(t, preauthHash[:], ctx)
	}
}

func TestSigningKeyAlways128BitEncryptionCanBe256(t *testing.T) {
	sessionKey := mustHex(t, "7CD451825D0450D235424E44BA6E78CC")

	label, context := LabelAndContext(SigningKeyPurpose, types.Dialect0300, [64]byte{})
	assert.Len(t, DeriveKey(sessionKey, label, context, 128), 16)

	encLabel, encCtx := LabelAndContext(EncryptionKeyPurpose, types.Dialect0300, [64]byte{})
	assert.Len(t, DeriveKey(sessionKey, encLabel, encCtx, 256), 32)
}
