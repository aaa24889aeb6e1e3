// Package session provides the SMB2 session table: per-session identity
// (username, guest/null status), credit-based flow control accounting, and
// the message-signing state each session carries once SESSION_SETUP
// derives a session key.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/coredoor/smbd/internal/protocol/smb/signing"
)

// Session is an authenticated (or anonymous/pre-auth) SMB2 session, created
// during SESSION_SETUP and torn down on LOGOFF or connection close.
type Session struct {
	SessionID  uint64
	IsGuest    bool
	IsNull     bool
	CreatedAt  time.Time
	ClientAddr string
	Username   string
	Domain     string

	Signing *signing.SessionSigningState

	credits Credits
	mu      sync.Mutex
}

// Credits tracks SMB2 credit-based flow control accounting for a session.
// Each credit allows one request, or one 64KB unit of I/O transfer.
type Credits struct {
	Granted     uint32
	Consumed    uint32
	Outstanding int32

	OutstandingRequests atomic.Int64
	TotalRequests       atomic.Uint64
	LastActivity        atomic.Int64

	HighWaterMark uint32
}

// NewSession creates a session with the given identity. sessionID 0 is
// reserved for the anonymous pre-auth session every Manager starts with.
func NewSession(sessionID uint64, clientAddr string, isGuest bool, username, domain string) *Session {
	s := &Session{
		SessionID:  sessionID,
		IsGuest:    isGuest,
		IsNull:     username == "" && !isGuest,
		CreatedAt:  time.Now(),
		ClientAddr: clientAddr,
		Username:   username,
		Domain:     domain,
		Signing:    signing.NewSessionSigningState(),
	}
	s.credits.LastActivity.Store(time.Now().Unix())
	return s
}

// RequestStarted records that a request has begun processing on this session.
func (s *Session) RequestStarted() {
	s.credits.OutstandingRequests.Add(1)
	s.credits.TotalRequests.Add(1)
	s.credits.LastActivity.Store(time.Now().Unix())
}

// RequestCompleted records that a request has finished processing.
func (s *Session) RequestCompleted() {
	s.credits.OutstandingRequests.Add(-1)
}

// ConsumeCredits records credit consumption for an operation.
func (s *Session) ConsumeCredits(charge uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits.Consumed += uint32(charge)
	s.credits.Outstanding -= int32(charge)
}

// GrantCredits records credits granted in a response and returns the
// updated outstanding balance.
func (s *Session) GrantCredits(grant uint16) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits.Granted += uint32(grant)
	s.credits.Outstanding += int32(grant)
	if s.credits.Outstanding > 0 && uint32(s.credits.Outstanding) > s.credits.HighWaterMark {
		s.credits.HighWaterMark = uint32(s.credits.Outstanding)
	}
	return s.credits.Outstanding
}

// GetOutstanding returns the current outstanding credit balance.
func (s *Session) GetOutstanding() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credits.Outstanding
}

// GetOutstandingRequests returns the number of requests currently processing.
func (s *Session) GetOutstandingRequests() int64 {
	return s.credits.OutstandingRequests.Load()
}

// GetHighWaterMark returns the maximum outstanding credit balance ever reached.
func (s *Session) GetHighWaterMark() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credits.HighWaterMark
}

// Stats is a point-in-time snapshot of session credit statistics.
type Stats struct {
	SessionID           uint64
	Granted             uint32
	Consumed            uint32
	Outstanding         int32
	OutstandingRequests int64
	TotalRequests       uint64
	HighWaterMark       uint32
}

// GetStats returns a snapshot of this session's credit statistics.
func (s *Session) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		SessionID:           s.SessionID,
		Granted:             s.credits.Granted,
		Consumed:            s.credits.Consumed,
		Outstanding:         s.credits.Outstanding,
		OutstandingRequests: s.credits.OutstandingRequests.Load(),
		TotalRequests:       s.credits.TotalRequests.Load(),
		HighWaterMark:       s.credits.HighWaterMark,
	}
}

// SetSigningKey derives the session's signing key from the authentication
// exchange's session key, called once SESSION_SETUP completes.
func (s *Session) SetSigningKey(sessionKey []byte) {
	if s.Signing != nil {
		s.Signing.SetSessionKey(sessionKey)
	}
}

// EnableSigning turns on message signing for this session.
func (s *Session) EnableSigning(required bool) {
	if s.Signing != nil {
		s.Signing.SigningEnabled = true
		s.Signing.SigningRequired = required
	}
}

// ShouldSign reports whether outgoing messages on this session must be signed.
func (s *Session) ShouldSign() bool { return s.Signing != nil && s.Signing.ShouldSign() }

// ShouldVerify reports whether incoming messages must have their signature checked.
func (s *Session) ShouldVerify() bool { return s.Signing != nil && s.Signing.ShouldVerify() }

// SignMessage signs message in place using this session's signing key.
func (s *Session) SignMessage(message []byte) {
	if s.Signing != nil && s.Signing.ShouldSign() && s.Signing.Signer != nil {
		signing.SignMessage(s.Signing.Signer, message)
	}
}

// VerifyMessage reports whether message's embedded signature is valid, or
// true unconditionally if signing isn't in effect for this session.
func (s *Session) VerifyMessage(message []byte) bool {
	if s.Signing == nil || !s.Signing.ShouldVerify() || s.Signing.Signer == nil {
		return true
	}
	return s.Signing.Signer.Verify(message)
}
