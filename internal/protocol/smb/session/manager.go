package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Manager is the single source of truth for session lifecycle and
// credit-based flow control, safe for concurrent use.
type Manager struct {
	sessions      sync.Map // sessionID -> *Session
	nextSessionID atomic.Uint64

	config   CreditConfig
	strategy Strategy

	activeRequests  atomic.Int64
	totalGrants     atomic.Uint64
	totalOperations atomic.Uint64
}

// NewManager creates a Manager with the adaptive credit strategy.
func NewManager(config CreditConfig) *Manager {
	return NewManagerWithStrategy(StrategyAdaptive, config)
}

// NewManagerWithStrategy creates a Manager with an explicit credit strategy.
// Session ID 0 is reserved and pre-populated with an anonymous session that
// tracks credits for NEGOTIATE and the first SESSION_SETUP round trip, before
// a real session ID exists.
func NewManagerWithStrategy(strategy Strategy, config CreditConfig) *Manager {
	m := &Manager{config: config, strategy: strategy}
	m.nextSessionID.Store(1)
	m.sessions.Store(uint64(0), NewSession(0, "", false, "", ""))
	return m
}

// NewDefaultManager creates a Manager with the adaptive strategy and default config.
func NewDefaultManager() *Manager {
	return NewManager(DefaultCreditConfig())
}

// CreateSession allocates a new session ID and stores a fresh Session.
func (m *Manager) CreateSession(clientAddr string, isGuest bool, username, domain string) *Session {
	sessionID := m.nextSessionID.Add(1)
	s := NewSession(sessionID, clientAddr, isGuest, username, domain)
	m.sessions.Store(sessionID, s)
	return s
}

// GetSession retrieves a session by ID.
func (m *Manager) GetSession(sessionID uint64) (*Session, bool) {
	v, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// DeleteSession removes a session. The reserved anonymous session (ID 0) is
// never deleted.
func (m *Manager) DeleteSession(sessionID uint64) {
	if sessionID == 0 {
		return
	}
	m.sessions.Delete(sessionID)
}

// StoreSession stores an externally constructed session, used for
// multi-round-trip authentication where the session ID is reserved before
// the session is fully set up.
func (m *Manager) StoreSession(s *Session) {
	m.sessions.Store(s.SessionID, s)
}

// GetOrCreateSession returns the existing session for sessionID, the shared
// anonymous session for ID 0, or a placeholder session if neither exists yet
// (credit tracking for a session still being authenticated).
func (m *Manager) GetOrCreateSession(sessionID uint64) *Session {
	if s, ok := m.GetSession(sessionID); ok {
		return s
	}
	if sessionID == 0 {
		v, _ := m.sessions.Load(uint64(0))
		return v.(*Session)
	}
	s := NewSession(sessionID, "", false, "", "")
	actual, loaded := m.sessions.LoadOrStore(sessionID, s)
	if loaded {
		return actual.(*Session)
	}
	return s
}

// GenerateSessionID reserves a new session ID without storing a session,
// for handlers that need the ID before the session object is ready.
func (m *Manager) GenerateSessionID() uint64 {
	return m.nextSessionID.Add(1)
}

// RequestStarted records that a request began processing on sessionID.
func (m *Manager) RequestStarted(sessionID uint64) {
	m.activeRequests.Add(1)
	if s, ok := m.GetSession(sessionID); ok {
		s.RequestStarted()
	}
}

// RequestCompleted records that a request finished processing on sessionID.
func (m *Manager) RequestCompleted(sessionID uint64) {
	m.activeRequests.Add(-1)
	if s, ok := m.GetSession(sessionID); ok {
		s.RequestCompleted()
	}
}

// GrantCredits records the request's credit charge and returns the number of
// credits to grant in the response, per the configured Strategy.
func (m *Manager) GrantCredits(sessionID uint64, requested, creditCharge uint16) uint16 {
	s, ok := m.GetSession(sessionID)
	if !ok {
		if sessionID == 0 {
			s = m.GetOrCreateSession(0)
		} else {
			// Session torn down (e.g. post-LOGOFF); grant the minimum so the
			// client's next request isn't starved.
			return MinimumCreditGrant
		}
	}
	s.credits.LastActivity.Store(time.Now().Unix())
	s.ConsumeCredits(creditCharge)

	var grant uint16
	switch m.strategy {
	case StrategyFixed:
		grant = m.grantFixed()
	case StrategyEcho:
		grant = m.grantEcho(requested)
	case StrategyAdaptive:
		grant = m.grantAdaptive(s, requested)
	default:
		grant = m.grantFixed()
	}

	s.GrantCredits(grant)
	m.totalGrants.Add(uint64(grant))
	m.totalOperations.Add(1)
	return grant
}

func (m *Manager) grantFixed() uint16 {
	return m.config.InitialGrant
}

func (m *Manager) grantEcho(requested uint16) uint16 {
	if requested == 0 {
		return m.config.InitialGrant
	}
	if requested < m.config.MinGrant {
		return m.config.MinGrant
	}
	if requested > m.config.MaxGrant {
		return m.config.MaxGrant
	}
	return requested
}

func (m *Manager) grantAdaptive(s *Session, requested uint16) uint16 {
	baseGrant := float64(m.config.InitialGrant)

	activeReqs := m.activeRequests.Load()
	if activeReqs > m.config.LoadThresholdHigh {
		loadFactor := float64(m.config.LoadThresholdHigh) / float64(activeReqs)
		if loadFactor < 0.25 {
			loadFactor = 0.25
		}
		baseGrant *= loadFactor
	} else if activeReqs < m.config.LoadThresholdLow {
		baseGrant *= 1.5
	}

	clientOutstanding := s.GetOutstandingRequests()
	if clientOutstanding > m.config.AggressiveClientThreshold {
		clientFactor := float64(m.config.AggressiveClientThreshold) / float64(clientOutstanding)
		if clientFactor < 0.5 {
			clientFactor = 0.5
		}
		baseGrant *= clientFactor
	}

	currentOutstanding := s.GetOutstanding()
	if currentOutstanding > 0 && uint32(currentOutstanding) > m.config.MaxSessionCredits/2 {
		sessionFactor := float64(m.config.MaxSessionCredits) / float64(currentOutstanding*2)
		if sessionFactor < 0.5 {
			sessionFactor = 0.5
		}
		baseGrant *= sessionFactor
	}

	grant := uint16(baseGrant)
	if grant < m.config.MinGrant {
		grant = m.config.MinGrant
	}
	if grant > m.config.MaxGrant {
		grant = m.config.MaxGrant
	}

	if requested > 0 && requested < grant {
		grant = requested
		if grant < m.config.MinGrant {
			grant = m.config.MinGrant
		}
	}

	return grant
}

// ManagerStats is a server-wide snapshot of session and credit statistics.
type ManagerStats struct {
	ActiveRequests  int64
	TotalGrants     uint64
	TotalOperations uint64
	SessionCount    int
}

// GetStats returns a server-wide statistics snapshot.
func (m *Manager) GetStats() ManagerStats {
	count := 0
	m.sessions.Range(func(_, _ any) bool {
		count++
		return true
	})
	return ManagerStats{
		ActiveRequests:  m.activeRequests.Load(),
		TotalGrants:     m.totalGrants.Load(),
		TotalOperations: m.totalOperations.Load(),
		SessionCount:    count,
	}
}

// GetSessionStats returns a statistics snapshot for sessionID, or nil if it
// doesn't exist.
func (m *Manager) GetSessionStats(sessionID uint64) *Stats {
	s, ok := m.GetSession(sessionID)
	if !ok {
		return nil
	}
	stats := s.GetStats()
	return &stats
}
