package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerReservesAnonymousSession(t *testing.T) {
	m := NewDefaultManager()
	s, ok := m.GetSession(0)
	require.True(t, ok)
	assert.Equal(t, uint64(0), s.SessionID)

	m.DeleteSession(0)
	_, ok = m.GetSession(0)
	assert.True(t, ok, "anonymous session must survive DeleteSession")
}

func TestCreateSessionAssignsIncreasingIDs(t *testing.T) {
	m := NewDefaultManager()
	s1 := m.CreateSession("10.0.0.1:445", false, "alice", "CORP")
	s2 := m.CreateSession("10.0.0.2:445", false, "bob", "CORP")
	assert.Greater(t, s2.SessionID, s1.SessionID)
}

func TestGetOrCreateSessionIsIdempotent(t *testing.T) {
	m := NewDefaultManager()
	id := m.GenerateSessionID()
	first := m.GetOrCreateSession(id)
	second := m.GetOrCreateSession(id)
	assert.Same(t, first, second)
}

func TestGrantCreditsFixedStrategy(t *testing.T) {
	cfg := DefaultCreditConfig()
	m := NewManagerWithStrategy(StrategyFixed, cfg)
	s := m.CreateSession("", false, "alice", "")
	grant := m.GrantCredits(s.SessionID, 10, 1)
	assert.Equal(t, cfg.InitialGrant, grant)
}

func TestGrantCreditsEchoStrategyClampsToRange(t *testing.T) {
	cfg := DefaultCreditConfig()
	m := NewManagerWithStrategy(StrategyEcho, cfg)
	s := m.CreateSession("", false, "alice", "")

	tooHigh := m.GrantCredits(s.SessionID, cfg.MaxGrant+1000, 1)
	assert.Equal(t, cfg.MaxGrant, tooHigh)
}

func TestGrantCreditsAfterSessionDeletedReturnsMinimum(t *testing.T) {
	m := NewDefaultManager()
	s := m.CreateSession("", false, "alice", "")
	m.DeleteSession(s.SessionID)
	grant := m.GrantCredits(s.SessionID, 128, 1)
	assert.Equal(t, uint16(MinimumCreditGrant), grant)
}

func TestCalculateCreditCharge(t *testing.T) {
	assert.Equal(t, uint16(1), CalculateCreditCharge(0))
	assert.Equal(t, uint16(1), CalculateCreditCharge(65536))
	assert.Equal(t, uint16(2), CalculateCreditCharge(65537))
}

func TestSessionCreditAccounting(t *testing.T) {
	s := NewSession(1, "", false, "alice", "")
	s.GrantCredits(100)
	s.ConsumeCredits(10)
	assert.Equal(t, int32(90), s.GetOutstanding())
	assert.Equal(t, uint32(100), s.GetHighWaterMark())
}

func TestManagerGetStats(t *testing.T) {
	m := NewDefaultManager()
	s := m.CreateSession("", false, "alice", "")
	m.GrantCredits(s.SessionID, 10, 1)
	stats := m.GetStats()
	assert.GreaterOrEqual(t, stats.SessionCount, 2) // anonymous + created
	assert.EqualValues(t, 1, stats.TotalOperations)
}
