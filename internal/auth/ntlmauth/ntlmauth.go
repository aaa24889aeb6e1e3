// Package ntlmauth adapts internal/auth/ntlm and internal/auth/spnego into a
// share.AuthProvider: a GSS-API-style accept loop a SESSION_SETUP handler
// drives across one or two requests without ever handling NTLM wire
// structures itself.
package ntlmauth

import (
	"context"
	"errors"
	"sync"

	"github.com/coredoor/smbd/internal/auth/ntlm"
	"github.com/coredoor/smbd/internal/auth/spnego"
	"github.com/coredoor/smbd/internal/protocol/smb/share"
	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/jcmturner/gofork/encoding/asn1"
)

// CredentialStore resolves a username/domain pair to the NT hash used for
// NTLMv2 challenge-response validation. Implementations must be safe for
// concurrent use.
type CredentialStore interface {
	// Lookup returns the account's NT hash and whether it is enabled.
	// found is false if no such account exists.
	Lookup(username, domain string) (ntHash [16]byte, enabled bool, found bool)

	// GuestEnabled reports whether an AUTHENTICATE carrying the anonymous
	// flag (or an unresolvable account) should be accepted as guest.
	GuestEnabled() bool
}

var (
	// ErrLogonFailure names an outright credential validation failure
	// (unknown user, disabled account, wrong password). Conversation does
	// not return it: such failures come back as StatusLogonFailure with a
	// nil error.
	ErrLogonFailure = errors.New("ntlmauth: logon failure")
)

// securityContext is the share.SecurityContext a completed conversation
// produces.
type securityContext struct {
	sessionKey []byte
	userName   string
	domain     string
	isGuest    bool
}

func (s *securityContext) SessionKey() []byte { return s.sessionKey }
func (s *securityContext) UserName() string   { return s.userName }

// Domain returns the authenticated domain, not part of share.SecurityContext
// but useful to callers that want it for logging or ACL namespacing.
func (s *securityContext) Domain() string { return s.domain }

// IsGuest reports whether the conversation fell back to guest logon.
func (s *securityContext) IsGuest() bool { return s.isGuest }

// Conversation is a single SESSION_SETUP exchange's NTLM state: one
// CHALLENGE issued, one AUTHENTICATE expected. A Handler owning multiple
// concurrent sessions keeps one Conversation per pending session ID (its
// PendingAuth table) since AcceptSecurityContext itself carries no
// correlation key, mirroring a GSS-API security context handle.
type Conversation struct {
	store      CredentialStore
	serverName string

	mu              sync.Mutex
	serverChallenge [8]byte
	challengeIssued bool
}

// NewConversation starts a fresh NTLM handshake bound to one pending
// session. serverName seeds the CHALLENGE's NetBIOS/DNS target names.
func NewConversation(store CredentialStore, serverName string) *Conversation {
	return &Conversation{store: store, serverName: serverName}
}

// OID identifies NTLMSSP as the mechanism negotiated under SPNEGO.
func (c *Conversation) OID() []byte {
	return []byte(spnego.OIDNTLMSSP.String())
}

// AcceptSecurityContext drives one leg of the NTLM handshake. The first
// call (a NEGOTIATE or bare NTLM Type 1 message) returns a CHALLENGE and
// StatusMoreProcessingRequired; the second call (an AUTHENTICATE) validates
// the response and returns StatusSuccess with a populated SecurityContext,
// or StatusLogonFailure.
func (c *Conversation) AcceptSecurityContext(ctx context.Context, inputToken []byte) (types.Status, []byte, share.SecurityContext, error) {
	rawToken, usedSPNEGO, mech := unwrapSPNEGO(inputToken)

	if len(rawToken) == 0 || !ntlm.IsValid(rawToken) {
		return types.StatusInvalidParameter, nil, nil, errors.New("ntlmauth: not an NTLM message")
	}

	switch ntlm.GetMessageType(rawToken) {
	case ntlm.Negotiate:
		return c.handleNegotiate(usedSPNEGO, mech)
	case ntlm.Authenticate:
		return c.handleAuthenticate(rawToken, usedSPNEGO, mech)
	default:
		return types.StatusInvalidParameter, nil, nil, errors.New("ntlmauth: unexpected NTLM message type")
	}
}

func (c *Conversation) handleNegotiate(usedSPNEGO bool, mech asn1.ObjectIdentifier) (types.Status, []byte, share.SecurityContext, error) {
	challenge, serverChallenge := ntlm.BuildChallenge(c.serverName)

	c.mu.Lock()
	c.serverChallenge = serverChallenge
	c.challengeIssued = true
	c.mu.Unlock()

	outputToken := challenge
	if usedSPNEGO {
		wrapped, err := spnego.BuildAcceptIncomplete(mech, challenge)
		if err != nil {
			return types.StatusUnsuccessful, nil, nil, err
		}
		outputToken = wrapped
	}
	return types.StatusMoreProcessingRequired, outputToken, nil, nil
}

func (c *Conversation) handleAuthenticate(rawToken []byte, usedSPNEGO bool, mech asn1.ObjectIdentifier) (types.Status, []byte, share.SecurityContext, error) {
	c.mu.Lock()
	serverChallenge := c.serverChallenge
	issued := c.challengeIssued
	c.mu.Unlock()
	if !issued {
		return types.StatusInvalidParameter, nil, nil, errors.New("ntlmauth: authenticate received before negotiate")
	}

	auth, err := ntlm.ParseAuthenticate(rawToken)
	if err != nil {
		return types.StatusInvalidParameter, nil, nil, err
	}

	if auth.IsAnonymous || auth.Username == "" {
		return c.completeGuestOrFail(usedSPNEGO, mech)
	}

	ntHash, enabled, found := c.store.Lookup(auth.Username, auth.Domain)
	if !found || !enabled {
		return c.completeGuestOrFail(usedSPNEGO, mech)
	}

	var sessionBaseKey [16]byte
	if ntlm.IsNTLMv1ExtendedResponse(auth.NegotiateFlags, auth.LmChallengeResponse) {
		sessionBaseKey, err = ntlm.ValidateNTLMv1ExtendedResponse(ntHash, serverChallenge, auth.LmChallengeResponse, auth.NtChallengeResponse)
	} else {
		sessionBaseKey, err = ntlm.ValidateNTLMv2Response(ntHash, auth.Username, auth.Domain, serverChallenge, auth.NtChallengeResponse)
	}
	if err != nil {
		return c.completeGuestOrFail(usedSPNEGO, mech)
	}

	signingKey := ntlm.DeriveSigningKey(sessionBaseKey, auth.NegotiateFlags, auth.EncryptedRandomSessionKey)

	sctx := &securityContext{
		sessionKey: signingKey[:],
		userName:   auth.Username,
		domain:     auth.Domain,
	}
	return c.completeSuccess(sctx, usedSPNEGO, mech)
}

func (c *Conversation) completeGuestOrFail(usedSPNEGO bool, mech asn1.ObjectIdentifier) (types.Status, []byte, share.SecurityContext, error) {
	if !c.store.GuestEnabled() {
		outputToken, err := rejectToken(usedSPNEGO)
		return types.StatusLogonFailure, outputToken, nil, err
	}
	sctx := &securityContext{userName: "guest", isGuest: true}
	return c.completeSuccess(sctx, usedSPNEGO, mech)
}

func (c *Conversation) completeSuccess(sctx *securityContext, usedSPNEGO bool, mech asn1.ObjectIdentifier) (types.Status, []byte, share.SecurityContext, error) {
	if !usedSPNEGO {
		return types.StatusSuccess, nil, sctx, nil
	}
	outputToken, err := spnego.BuildAcceptComplete(mech, nil)
	if err != nil {
		return types.StatusUnsuccessful, nil, nil, err
	}
	return types.StatusSuccess, outputToken, sctx, nil
}

func rejectToken(usedSPNEGO bool) ([]byte, error) {
	if !usedSPNEGO {
		return nil, nil
	}
	return spnego.BuildReject()
}

// unwrapSPNEGO extracts the inner NTLM message from a GSS-API/SPNEGO
// envelope, or returns token unmodified if it is already a bare NTLM
// message (no leading GSSAPI/NegTokenInit/NegTokenResp tag).
func unwrapSPNEGO(token []byte) (ntlmMessage []byte, usedSPNEGO bool, mech asn1.ObjectIdentifier) {
	if len(token) > 0 && ntlm.IsValid(token) {
		return token, false, nil
	}
	parsed, err := spnego.Parse(token)
	if err != nil {
		return token, false, nil
	}
	switch parsed.Type {
	case spnego.TokenTypeInit:
		return parsed.MechToken, true, spnego.OIDNTLMSSP
	case spnego.TokenTypeResp:
		return parsed.MechToken, true, parsed.SupportedMech
	default:
		return token, false, nil
	}
}
