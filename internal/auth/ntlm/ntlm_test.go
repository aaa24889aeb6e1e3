package ntlm

import (
	"crypto/des" //nolint:staticcheck
	"crypto/hmac"
	"crypto/md5" //nolint:gosec
	"crypto/rc4" //nolint:gosec
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/md4" //nolint:staticcheck
)

func buildTestMessage(msgType MessageType) []byte {
	msg := make([]byte, 32)
	copy(msg[0:8], Signature)
	binary.LittleEndian.PutUint32(msg[8:12], uint32(msgType))
	return msg
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(buildTestMessage(Negotiate)))
	assert.True(t, IsValid(buildTestMessage(Challenge)))
	assert.True(t, IsValid(buildTestMessage(Authenticate)))
	assert.False(t, IsValid([]byte{'N', 'T', 'L', 'M'}))
	assert.False(t, IsValid([]byte{'X', 'X', 'X', 'X', 'X', 'X', 'X', 0, 1, 0, 0, 0}))
	assert.False(t, IsValid(nil))
}

func TestGetMessageType(t *testing.T) {
	assert.Equal(t, Negotiate, GetMessageType(buildTestMessage(Negotiate)))
	assert.Equal(t, Challenge, GetMessageType(buildTestMessage(Challenge)))
	assert.Equal(t, Authenticate, GetMessageType(buildTestMessage(Authenticate)))
	assert.Equal(t, MessageType(0), GetMessageType([]byte{'N', 'T', 'L', 'M', 'S', 'S', 'P', 0}))
	assert.Equal(t, MessageType(0), GetMessageType(nil))
}

func TestBuildChallengeWellFormed(t *testing.T) {
	msg, serverChallenge := BuildChallenge("FILESERVER")

	assert.True(t, IsValid(msg))
	assert.Equal(t, Challenge, GetMessageType(msg))
	assert.GreaterOrEqual(t, len(msg), challengeBaseSize)
	assert.Equal(t, serverChallenge[:], msg[challengeServerChalOffset:challengeServerChalOffset+8])
	assert.NotEqual(t, [8]byte{}, serverChallenge, "server challenge should be random, not all zeros")

	flags := binary.LittleEndian.Uint32(msg[challengeFlagsOffset : challengeFlagsOffset+4])
	for _, f := range []NegotiateFlag{
		FlagUnicode, FlagRequestTarget, FlagNTLM, FlagAlwaysSign,
		FlagTargetTypeServer, FlagExtendedSecurity, FlagTargetInfo, Flag128, Flag56,
	} {
		assert.NotZero(t, flags&uint32(f), "expected flag 0x%x set", f)
	}
}

func TestBuildChallengeGeneratesUniqueChallenges(t *testing.T) {
	_, c1 := BuildChallenge("FILESERVER")
	_, c2 := BuildChallenge("FILESERVER")
	assert.NotEqual(t, c1, c2)
}

func TestBuildMinimalTargetInfo(t *testing.T) {
	info := BuildMinimalTargetInfo()
	require.Len(t, info, 4)
	assert.Equal(t, AvEOL, AvID(binary.LittleEndian.Uint16(info[0:2])))
	assert.Zero(t, binary.LittleEndian.Uint16(info[2:4]))
}

func TestComputeNTHashEmptyPasswordMatchesKnownVector(t *testing.T) {
	ntHash := ComputeNTHash("")
	assert.Equal(t, "31d6cfe0d16ae931b73c59d7e0c089c0", hex.EncodeToString(ntHash[:]))
}

func TestComputeNTHashIsDeterministicAndCaseSensitive(t *testing.T) {
	h1 := ComputeNTHash("testpassword")
	h2 := ComputeNTHash("testpassword")
	assert.Equal(t, h1, h2)

	assert.NotEqual(t, ComputeNTHash("password1"), ComputeNTHash("password2"))
	assert.NotEqual(t, ComputeNTHash("Password"), ComputeNTHash("password"))
}

func TestComputeNTHashSupportsUnicode(t *testing.T) {
	hash := ComputeNTHash("пароль")
	assert.NotEqual(t, [16]byte{}, hash)
}

func TestComputeNTLMv2HashUsernameUppercasedDomainVerbatim(t *testing.T) {
	ntHash := ComputeNTHash("password")

	h1 := ComputeNTLMv2Hash(ntHash, "user", "DOMAIN")
	h2 := ComputeNTLMv2Hash(ntHash, "USER", "DOMAIN")
	h3 := ComputeNTLMv2Hash(ntHash, "User", "DOMAIN")
	assert.Equal(t, h1, h2)
	assert.Equal(t, h1, h3)

	h4 := ComputeNTLMv2Hash(ntHash, "user", "domain")
	assert.NotEqual(t, h1, h4, "domain casing must matter")
}

func TestComputeNTLMv2HashDifferentiatesInputs(t *testing.T) {
	ntHash1 := ComputeNTHash("password1")
	ntHash2 := ComputeNTHash("password2")
	assert.NotEqual(t,
		ComputeNTLMv2Hash(ntHash1, "user", "DOMAIN"),
		ComputeNTLMv2Hash(ntHash2, "user", "DOMAIN"))

	ntHash := ComputeNTHash("password")
	assert.NotEqual(t,
		ComputeNTLMv2Hash(ntHash, "user1", "DOMAIN"),
		ComputeNTLMv2Hash(ntHash, "user2", "DOMAIN"))
}

// buildTestClientBlob returns a minimal NTLMv2 client blob: RespType/
// HiRespType/Reserved/TimeStamp/ClientChallenge followed by an EOL AV_PAIR.
func buildTestClientBlob() []byte {
	blob := make([]byte, 32)
	blob[0] = 0x01
	blob[1] = 0x01
	binary.LittleEndian.PutUint64(blob[8:16], 123)
	copy(blob[16:24], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	return blob
}

func computeNTProofStr(ntlmv2Hash [16]byte, serverChallenge [8]byte, clientBlob []byte) []byte {
	mac := hmac.New(md5.New, ntlmv2Hash[:])
	mac.Write(serverChallenge[:])
	mac.Write(clientBlob)
	return mac.Sum(nil)
}

func TestValidateNTLMv2ResponseTooShort(t *testing.T) {
	ntHash := ComputeNTHash("password")
	serverChallenge := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	_, err := ValidateNTLMv2Response(ntHash, "user", "DOMAIN", serverChallenge, make([]byte, 20))
	assert.ErrorIs(t, err, ErrResponseTooShort)
}

func TestValidateNTLMv2ResponseRejectsGarbage(t *testing.T) {
	ntHash := ComputeNTHash("password")
	serverChallenge := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	_, err := ValidateNTLMv2Response(ntHash, "user", "DOMAIN", serverChallenge, make([]byte, 32))
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestValidateNTLMv2ResponseAcceptsCorrectProof(t *testing.T) {
	password, username, domain := "test123", "testuser", "TESTDOMAIN"
	serverChallenge := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}

	ntHash := ComputeNTHash(password)
	clientBlob := buildTestClientBlob()
	ntlmv2Hash := ComputeNTLMv2Hash(ntHash, username, domain)
	ntProofStr := computeNTProofStr(ntlmv2Hash, serverChallenge, clientBlob)

	ntResponse := append(append([]byte{}, ntProofStr...), clientBlob...)

	sessionKey, err := ValidateNTLMv2Response(ntHash, username, domain, serverChallenge, ntResponse)
	require.NoError(t, err)
	assert.NotEqual(t, [16]byte{}, sessionKey)
}

func TestValidateNTLMv2ResponseRejectsWrongPassword(t *testing.T) {
	username, domain := "testuser", "TESTDOMAIN"
	serverChallenge := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}

	correctNTHash := ComputeNTHash("correctpassword")
	clientBlob := buildTestClientBlob()
	ntlmv2Hash := ComputeNTLMv2Hash(correctNTHash, username, domain)
	ntProofStr := computeNTProofStr(ntlmv2Hash, serverChallenge, clientBlob)
	ntResponse := append(append([]byte{}, ntProofStr...), clientBlob...)

	wrongNTHash := ComputeNTHash("wrongpassword")
	_, err := ValidateNTLMv2Response(wrongNTHash, username, domain, serverChallenge, ntResponse)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestValidateNTLMv2ResponseRejectsWrongServerChallenge(t *testing.T) {
	username, domain := "testuser", "TESTDOMAIN"
	correctChallenge := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	wrongChallenge := [8]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

	ntHash := ComputeNTHash("test123")
	clientBlob := buildTestClientBlob()
	ntlmv2Hash := ComputeNTLMv2Hash(ntHash, username, domain)
	ntProofStr := computeNTProofStr(ntlmv2Hash, correctChallenge, clientBlob)
	ntResponse := append(append([]byte{}, ntProofStr...), clientBlob...)

	_, err := ValidateNTLMv2Response(ntHash, username, domain, wrongChallenge, ntResponse)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestIsNTLMv1ExtendedResponseRequiresExtendedSecurityAnd24ByteLmResponse(t *testing.T) {
	nonZeroLm := append([]byte{1, 2, 3, 4, 5, 6, 7, 8}, make([]byte, 16)...)
	allZeroLm := make([]byte, 24)

	assert.True(t, IsNTLMv1ExtendedResponse(FlagExtendedSecurity, nonZeroLm))
	assert.False(t, IsNTLMv1ExtendedResponse(0, nonZeroLm), "requires EXTENDED_SESSION_SECURITY")
	assert.False(t, IsNTLMv1ExtendedResponse(FlagExtendedSecurity, nonZeroLm[:20]), "requires a 24-byte LmChallengeResponse")
	assert.False(t, IsNTLMv1ExtendedResponse(FlagExtendedSecurity, allZeroLm), "an all-zero client challenge means plain NTLMv1/LM")
}

// expectedDESLResponse mirrors ntlm.go's deslEncrypt/expandDESKey pair using
// stdlib crypto/des directly, so the test doesn't just call back into the
// code under test.
func expectedDESLResponse(t *testing.T, ntHash [16]byte, challenge []byte) []byte {
	t.Helper()
	var padded [21]byte
	copy(padded[:16], ntHash[:])

	out := make([]byte, 24)
	for i := 0; i < 3; i++ {
		k7 := padded[i*7 : i*7+7]
		var k8 [8]byte
		k8[0] = k7[0] >> 1
		k8[1] = (k7[0]<<6 | k7[1]>>2) & 0xFF
		k8[2] = (k7[1]<<5 | k7[2]>>3) & 0xFF
		k8[3] = (k7[2]<<4 | k7[3]>>4) & 0xFF
		k8[4] = (k7[3]<<3 | k7[4]>>5) & 0xFF
		k8[5] = (k7[4]<<2 | k7[5]>>6) & 0xFF
		k8[6] = (k7[5]<<1 | k7[6]>>7) & 0xFF
		k8[7] = k7[6] & 0x7F
		for j, b := range k8 {
			b &= 0x7F
			parity := byte(0)
			for v := b; v != 0; v >>= 1 {
				parity ^= v & 1
			}
			k8[j] = (b << 1) | (1 - parity)
		}

		block, err := des.NewCipher(k8[:])
		require.NoError(t, err)
		block.Encrypt(out[i*8:i*8+8], challenge)
	}
	return out
}

func TestValidateNTLMv1ExtendedResponseAcceptsCorrectProof(t *testing.T) {
	ntHash := ComputeNTHash("test123")
	serverChallenge := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	clientChallenge := []byte{8, 7, 6, 5, 4, 3, 2, 1}
	lmChallengeResponse := append(append([]byte{}, clientChallenge...), make([]byte, 16)...)

	h := md4.New()
	h.Write(serverChallenge[:])
	h.Write(clientChallenge)
	challengeHash := h.Sum(nil)

	ntChallengeResponse := expectedDESLResponse(t, ntHash, challengeHash[:8])

	sessionKey, err := ValidateNTLMv1ExtendedResponse(ntHash, serverChallenge, lmChallengeResponse, ntChallengeResponse)
	require.NoError(t, err)
	assert.NotEqual(t, [16]byte{}, sessionKey)
}

func TestValidateNTLMv1ExtendedResponseRejectsWrongPassword(t *testing.T) {
	serverChallenge := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	clientChallenge := []byte{8, 7, 6, 5, 4, 3, 2, 1}
	lmChallengeResponse := append(append([]byte{}, clientChallenge...), make([]byte, 16)...)

	correctHash := ComputeNTHash("correctpassword")
	h := md4.New()
	h.Write(serverChallenge[:])
	h.Write(clientChallenge)
	challengeHash := h.Sum(nil)
	ntChallengeResponse := expectedDESLResponse(t, correctHash, challengeHash[:8])

	wrongHash := ComputeNTHash("wrongpassword")
	_, err := ValidateNTLMv1ExtendedResponse(wrongHash, serverChallenge, lmChallengeResponse, ntChallengeResponse)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestValidateNTLMv1ExtendedResponseTooShort(t *testing.T) {
	ntHash := ComputeNTHash("test123")
	serverChallenge := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	_, err := ValidateNTLMv1ExtendedResponse(ntHash, serverChallenge, make([]byte, 8), make([]byte, 10))
	assert.ErrorIs(t, err, ErrResponseTooShort)
}

func TestDeriveSigningKeyWithoutKeyExchUsesSessionBaseKey(t *testing.T) {
	sessionBaseKey := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	got := DeriveSigningKey(sessionBaseKey, 0, nil)
	assert.Equal(t, sessionBaseKey, got)
}

func TestDeriveSigningKeyWithKeyExchUnwrapsRC4(t *testing.T) {
	sessionBaseKey := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	exportedKey := [16]byte{16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}

	encrypted := rc4Encrypt(t, sessionBaseKey, exportedKey[:])
	got := DeriveSigningKey(sessionBaseKey, FlagKeyExch, encrypted)
	assert.Equal(t, exportedKey[:], got[:])
}

func rc4Encrypt(t *testing.T, key [16]byte, plaintext []byte) []byte {
	t.Helper()
	c, err := rc4.NewCipher(key[:])
	require.NoError(t, err)
	out := make([]byte, len(plaintext))
	c.XORKeyStream(out, plaintext)
	return out
}
