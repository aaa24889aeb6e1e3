package spnego

import (
	"testing"

	"github.com/jcmturner/gofork/encoding/asn1"
	gokrbspnego "github.com/jcmturner/gokrb5/v8/spnego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOIDConstants(t *testing.T) {
	assert.True(t, OIDNTLMSSP.Equal(asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 2, 2, 10}))
	assert.True(t, OIDKerberosV5.Equal(asn1.ObjectIdentifier{1, 2, 840, 113554, 1, 2, 2}))
	assert.True(t, OIDMSKerberosV5.Equal(asn1.ObjectIdentifier{1, 2, 840, 48018, 1, 2, 2}))
	assert.True(t, OIDSPNEGO.Equal(asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 2}))
}

func TestNegStateConstants(t *testing.T) {
	assert.EqualValues(t, 0, NegStateAcceptCompleted)
	assert.EqualValues(t, 1, NegStateAcceptIncomplete)
	assert.EqualValues(t, 2, NegStateReject)
	assert.EqualValues(t, 3, NegStateRequestMIC)
}

func TestParseNegTokenInit(t *testing.T) {
	ntlmToken := []byte("NTLMSSP\x00test-payload")
	initToken := gokrbspnego.NegTokenInit{
		MechTypes:      []asn1.ObjectIdentifier{OIDNTLMSSP},
		MechTokenBytes: ntlmToken,
	}
	data, err := initToken.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeInit, parsed.Type)
	require.Len(t, parsed.MechTypes, 1)
	assert.True(t, parsed.MechTypes[0].Equal(OIDNTLMSSP))
	assert.Equal(t, ntlmToken, parsed.MechToken)
}

func TestParseNegTokenResp(t *testing.T) {
	responseToken := []byte("response-data")
	respToken := gokrbspnego.NegTokenResp{
		NegState:      asn1.Enumerated(NegStateAcceptIncomplete),
		SupportedMech: OIDNTLMSSP,
		ResponseToken: responseToken,
	}
	data, err := respToken.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeResp, parsed.Type)
	assert.Equal(t, NegStateAcceptIncomplete, parsed.NegState)
	assert.True(t, parsed.SupportedMech.Equal(OIDNTLMSSP))
}

func TestParseRejectsMalformedInput(t *testing.T) {
	_, err := Parse([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	assert.Error(t, err)

	_, err = Parse([]byte{0x60})
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = Parse(nil)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParsedTokenHasMechanism(t *testing.T) {
	parsed := &ParsedToken{
		Type:      TokenTypeInit,
		MechTypes: []asn1.ObjectIdentifier{OIDNTLMSSP, OIDKerberosV5},
	}
	assert.True(t, parsed.HasMechanism(OIDNTLMSSP))
	assert.True(t, parsed.HasMechanism(OIDKerberosV5))
	assert.False(t, parsed.HasMechanism(asn1.ObjectIdentifier{1, 2, 3, 4, 5}))
}

func TestParsedTokenHasNTLM(t *testing.T) {
	assert.True(t, (&ParsedToken{MechTypes: []asn1.ObjectIdentifier{OIDNTLMSSP}}).HasNTLM())
	assert.False(t, (&ParsedToken{MechTypes: []asn1.ObjectIdentifier{OIDKerberosV5}}).HasNTLM())
}

func TestParsedTokenHasKerberos(t *testing.T) {
	assert.True(t, (&ParsedToken{MechTypes: []asn1.ObjectIdentifier{OIDKerberosV5}}).HasKerberos())
	assert.True(t, (&ParsedToken{MechTypes: []asn1.ObjectIdentifier{OIDMSKerberosV5}}).HasKerberos())
	assert.False(t, (&ParsedToken{MechTypes: []asn1.ObjectIdentifier{OIDNTLMSSP}}).HasKerberos())
}

func TestBuildResponseRoundTrips(t *testing.T) {
	data, err := BuildResponse(NegStateAcceptIncomplete, OIDNTLMSSP, []byte("test-response"))
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeResp, parsed.Type)
	assert.Equal(t, NegStateAcceptIncomplete, parsed.NegState)
}

func TestBuildAcceptIncomplete(t *testing.T) {
	data, err := BuildAcceptIncomplete(OIDNTLMSSP, []byte("challenge-data"))
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, NegStateAcceptIncomplete, parsed.NegState)
}

func TestBuildAcceptComplete(t *testing.T) {
	data, err := BuildAcceptComplete(OIDNTLMSSP, nil)
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, NegStateAcceptCompleted, parsed.NegState)
}

func TestBuildReject(t *testing.T) {
	data, err := BuildReject()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, NegStateReject, parsed.NegState)
}

func TestErrorSentinelsAreDistinct(t *testing.T) {
	errs := []error{ErrInvalidToken, ErrUnsupportedMech, ErrNoMechToken}
	for i, a := range errs {
		for j, b := range errs {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}
}
