// Package conn models the per-TCP-connection state the protocol state
// machine threads through every request: negotiated dialect/capabilities,
// the 3.1.1 preauth integrity hash chain, session tracking, and the write
// serialization a single connection requires when compound or async
// responses can be produced out of band.
package conn

import (
	"crypto/sha512"
	"net"
	"sync"
	"time"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/google/uuid"
)

// CryptoState holds per-connection cryptographic negotiation state: the
// fields NEGOTIATE sets once, plus the preauth integrity hash chain used
// by 3.1.1 key derivation. [MS-SMB2] 3.2.5.2:
//
//	H(i) = SHA-512(H(i-1) || Message(i))
//
// H(0) is 64 zero bytes; each Message(i) is a complete NEGOTIATE or
// SESSION_SETUP request/response, accumulated in wire order.
type CryptoState struct {
	Dialect                types.Dialect
	CipherId               uint16
	SigningAlgorithmId     uint16
	ServerGUID             [16]byte
	ServerCapabilities     types.Capabilities
	ServerSecurityMode     types.SecurityMode
	ClientCapabilities     types.Capabilities
	ClientGUID             [16]byte
	ClientSecurityMode     types.SecurityMode
	ClientDialects         []types.Dialect
	PreauthIntegrityHashId uint16

	hashMu      sync.RWMutex
	preauthHash [64]byte
}

// NewCryptoState returns a CryptoState with H(0) = 64 zero bytes.
func NewCryptoState() *CryptoState {
	return &CryptoState{}
}

// UpdatePreauthHash folds message into the running preauth integrity hash.
// Callers must pass the complete wire bytes (header + body) of each
// NEGOTIATE/SESSION_SETUP request and response, in the order sent/received.
func (cs *CryptoState) UpdatePreauthHash(message []byte) {
	cs.hashMu.Lock()
	defer cs.hashMu.Unlock()
	h := sha512.New()
	h.Write(cs.preauthHash[:])
	h.Write(message)
	copy(cs.preauthHash[:], h.Sum(nil))
}

// PreauthHash returns a copy of the current preauth integrity hash value.
func (cs *CryptoState) PreauthHash() [64]byte {
	cs.hashMu.RLock()
	defer cs.hashMu.RUnlock()
	return cs.preauthHash
}

// WriteSerializer serializes response writes to a connection so compound
// or async responses from different goroutines never interleave on the wire.
type WriteSerializer struct {
	sync.Mutex
}

// SessionTracker lets the dispatch layer register/unregister sessions
// against the owning Connection without importing it back (avoids the
// import cycle session <-> conn would otherwise create).
type SessionTracker interface {
	TrackSession(sessionID uint64)
	UntrackSession(sessionID uint64)
}

// Connection is the server-side state of a single accepted SMB2 TCP
// connection, spanning its entire lifetime from the first NEGOTIATE
// through the last LOGOFF/disconnect.
type Connection struct {
	ID           string
	Conn         net.Conn
	Crypto       *CryptoState
	WriteMu      *WriteSerializer
	WriteTimeout time.Duration
	CreatedAt    time.Time

	sessionsMu sync.Mutex
	sessionIDs map[uint64]struct{}
}

// NewConnection wraps an accepted net.Conn in connection-lifetime state.
func NewConnection(nc net.Conn, writeTimeout time.Duration) *Connection {
	return &Connection{
		ID:           uuid.NewString(),
		Conn:         nc,
		Crypto:       NewCryptoState(),
		WriteMu:      &WriteSerializer{},
		WriteTimeout: writeTimeout,
		CreatedAt:    time.Now(),
		sessionIDs:   make(map[uint64]struct{}),
	}
}

// RemoteAddr reports the connected client's address, or "" if unavailable.
func (c *Connection) RemoteAddr() string {
	if c.Conn == nil {
		return ""
	}
	return c.Conn.RemoteAddr().String()
}

// TrackSession records sessionID as belonging to this connection.
func (c *Connection) TrackSession(sessionID uint64) {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	c.sessionIDs[sessionID] = struct{}{}
}

// UntrackSession removes sessionID from this connection's tracked set.
func (c *Connection) UntrackSession(sessionID uint64) {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	delete(c.sessionIDs, sessionID)
}

// SessionIDs returns a snapshot of the sessions currently tracked on this
// connection, used to tear them all down when the TCP connection drops.
func (c *Connection) SessionIDs() []uint64 {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	ids := make([]uint64, 0, len(c.sessionIDs))
	for id := range c.sessionIDs {
		ids = append(ids, id)
	}
	return ids
}
