// Package spnego parses and builds SPNEGO (RFC 4178) negotiation tokens for
// SMB2 SESSION_SETUP, wrapping gokrb5's NegTokenInit/NegTokenResp codec with
// a narrower interface that only surfaces what a session-setup handler needs.
package spnego

import (
	"errors"
	"fmt"

	"github.com/jcmturner/gofork/encoding/asn1"
	"github.com/jcmturner/gokrb5/v8/spnego"
)

// Well-known mechanism OIDs negotiated in SESSION_SETUP.
var (
	OIDMSKerberosV5 = asn1.ObjectIdentifier{1, 2, 840, 48018, 1, 2, 2}
	OIDKerberosV5   = asn1.ObjectIdentifier{1, 2, 840, 113554, 1, 2, 2}
	OIDNTLMSSP      = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 2, 2, 10}
	OIDSPNEGO       = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 2}
)

// NegState is the negotiation state carried in a NegTokenResp.
// [RFC 4178] 4.2.2
type NegState int

const (
	NegStateAcceptCompleted  NegState = 0
	NegStateAcceptIncomplete NegState = 1
	NegStateReject           NegState = 2
	NegStateRequestMIC       NegState = 3
)

var (
	ErrInvalidToken    = errors.New("spnego: invalid token format")
	ErrUnsupportedMech = errors.New("spnego: unsupported mechanism")
	ErrNoMechToken     = errors.New("spnego: no mechanism token present")
)

// TokenType distinguishes a client's initial token from a response token.
type TokenType int

const (
	TokenTypeInit TokenType = iota
	TokenTypeResp
)

// ParsedToken is the result of parsing one SPNEGO token off the wire.
type ParsedToken struct {
	Type TokenType

	// MechTypes lists the offered mechanisms; only set for TokenTypeInit.
	MechTypes []asn1.ObjectIdentifier
	// MechToken is the inner mechanism-specific token (e.g. an NTLM message).
	MechToken []byte

	// NegState and SupportedMech are only set for TokenTypeResp.
	NegState      NegState
	SupportedMech asn1.ObjectIdentifier
}

// Parse decodes a SPNEGO token, whether GSSAPI-wrapped (leading 0x60), a raw
// NegTokenInit (0xa0), or a raw NegTokenResp (0xa1).
func Parse(data []byte) (*ParsedToken, error) {
	if len(data) < 2 {
		return nil, ErrInvalidToken
	}

	isInit, token, err := spnego.UnmarshalNegToken(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if isInit {
		initToken, ok := token.(spnego.NegTokenInit)
		if !ok {
			return nil, ErrInvalidToken
		}
		return &ParsedToken{
			Type:      TokenTypeInit,
			MechTypes: initToken.MechTypes,
			MechToken: initToken.MechTokenBytes,
		}, nil
	}

	respToken, ok := token.(spnego.NegTokenResp)
	if !ok {
		return nil, ErrInvalidToken
	}
	return &ParsedToken{
		Type:          TokenTypeResp,
		MechToken:     respToken.ResponseToken,
		NegState:      NegState(respToken.NegState),
		SupportedMech: respToken.SupportedMech,
	}, nil
}

// HasMechanism reports whether an init token offers oid.
func (p *ParsedToken) HasMechanism(oid asn1.ObjectIdentifier) bool {
	for _, mech := range p.MechTypes {
		if mech.Equal(oid) {
			return true
		}
	}
	return false
}

// HasNTLM reports whether the token offers NTLM.
func (p *ParsedToken) HasNTLM() bool { return p.HasMechanism(OIDNTLMSSP) }

// HasKerberos reports whether the token offers either Kerberos OID variant.
func (p *ParsedToken) HasKerberos() bool {
	return p.HasMechanism(OIDKerberosV5) || p.HasMechanism(OIDMSKerberosV5)
}

// BuildResponse DER-encodes a NegTokenResp with the given state, selected
// mechanism, and mechanism-specific response token.
func BuildResponse(state NegState, mech asn1.ObjectIdentifier, responseToken []byte) ([]byte, error) {
	resp := spnego.NegTokenResp{
		NegState:      asn1.Enumerated(state),
		SupportedMech: mech,
		ResponseToken: responseToken,
	}
	return resp.Marshal()
}

// BuildAcceptIncomplete builds a NegTokenResp carrying an NTLM CHALLENGE,
// signaling the client must send another AUTHENTICATE message.
func BuildAcceptIncomplete(mech asn1.ObjectIdentifier, responseToken []byte) ([]byte, error) {
	return BuildResponse(NegStateAcceptIncomplete, mech, responseToken)
}

// BuildAcceptComplete builds a NegTokenResp signaling successful authentication.
func BuildAcceptComplete(mech asn1.ObjectIdentifier, responseToken []byte) ([]byte, error) {
	return BuildResponse(NegStateAcceptCompleted, mech, responseToken)
}

// BuildReject builds a NegTokenResp signaling authentication failure.
func BuildReject() ([]byte, error) {
	return BuildResponse(NegStateReject, nil, nil)
}
