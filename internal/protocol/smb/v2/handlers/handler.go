package handlers

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/coredoor/smbd/internal/protocol/smb/rpc"
	"github.com/coredoor/smbd/internal/protocol/smb/session"
	"github.com/coredoor/smbd/internal/protocol/smb/share"
	"github.com/coredoor/smbd/internal/protocol/smb/types"
)

// AuthProviderFactory builds a fresh share.AuthProvider for one pending
// SESSION_SETUP handshake. A factory rather than a shared instance because
// AcceptSecurityContext's challenge/authenticate exchange is itself
// stateful (see internal/auth/ntlmauth.Conversation) and must not be
// shared across concurrent logons.
type AuthProviderFactory func() share.AuthProvider

// PendingAuth is the state a Handler keeps between a SESSION_SETUP request
// that returned StatusMoreProcessingRequired and the follow-up request that
// completes it. Session ID is reserved up front so both legs of the
// exchange, and the eventual Session, share identity.
type PendingAuth struct {
	SessionID  uint64
	ClientAddr string
	CreatedAt  time.Time
	Provider   share.AuthProvider
}

// TreeConnection is one outstanding TREE_CONNECT: a session's binding to a
// SharedResource under a server-assigned tree ID.
type TreeConnection struct {
	TreeID     uint32
	SessionID  uint64
	ShareName  string
	ShareType  types.ShareType
	CreatedAt  time.Time
	Permission types.AccessMask
}

// OpenFile is one outstanding CREATE: a session's handle on a path within a
// tree, plus the enumeration cursor QUERY_DIRECTORY advances across calls.
type OpenFile struct {
	FileID    [16]byte
	TreeID    uint32
	SessionID uint64
	ShareName string
	OpenTime  time.Time

	Handle        share.ResourceHandle
	Path          string
	IsDirectory   bool
	DesiredAccess types.AccessMask

	IsPipe   bool
	PipeName string

	DeletePending bool

	mu                 sync.Mutex
	enumerationStarted bool
	enumerationEntries []string
	enumerationIndex   int
}

// Handler owns every piece of server-side state a connection's command
// handlers read or mutate: the session table, the published share set, the
// tree/file tables keyed off server-assigned IDs, and the pending
// authentication handshakes in flight.
type Handler struct {
	Shares map[string]share.SharedResource

	NewAuthProvider AuthProviderFactory
	ServerName      string

	SessionManager *session.Manager
	ServerGUID     [16]byte
	StartTime      time.Time

	PipeManager *rpc.PipeManager

	MaxTransactSize uint32
	MaxReadSize     uint32
	MaxWriteSize    uint32

	pendingAuth  sync.Map // sessionID -> *PendingAuth
	trees        sync.Map // treeID -> *TreeConnection
	nextTreeID   atomic.Uint32
	files        sync.Map // fileID ([16]byte) -> *OpenFile
	nextFileID   atomic.Uint64
}

// NewHandler builds a Handler over the given share set, wiring a shared
// PipeManager seeded from the same shares so SRVSVC enumeration reports the
// real configuration.
func NewHandler(shares map[string]share.SharedResource, newAuthProvider AuthProviderFactory, serverName string, serverGUID [16]byte) *Handler {
	pm := rpc.NewPipeManager()
	resources := make([]share.SharedResource, 0, len(shares))
	for _, s := range shares {
		resources = append(resources, s)
	}
	pm.SetSharedResources(resources)

	return &Handler{
		Shares:          shares,
		NewAuthProvider: newAuthProvider,
		ServerName:      serverName,
		SessionManager:  session.NewDefaultManager(),
		ServerGUID:      serverGUID,
		StartTime:       time.Now(),
		PipeManager:     pm,
		MaxTransactSize: 1048576,
		MaxReadSize:     1048576,
		MaxWriteSize:    1048576,
	}
}

// StorePendingAuth records an in-flight authentication handshake.
func (h *Handler) StorePendingAuth(p *PendingAuth) {
	h.pendingAuth.Store(p.SessionID, p)
}

// GetPendingAuth retrieves the handshake state for sessionID, if any.
func (h *Handler) GetPendingAuth(sessionID uint64) (*PendingAuth, bool) {
	v, ok := h.pendingAuth.Load(sessionID)
	if !ok {
		return nil, false
	}
	return v.(*PendingAuth), true
}

// DeletePendingAuth removes a completed or abandoned handshake.
func (h *Handler) DeletePendingAuth(sessionID uint64) {
	h.pendingAuth.Delete(sessionID)
}

// GenerateTreeID returns a fresh, never-zero tree ID.
func (h *Handler) GenerateTreeID() uint32 {
	return h.nextTreeID.Add(1)
}

// GenerateFileID returns a fresh, never-zero 16-byte file ID: the low 8
// bytes are a monotonic counter, the high 8 bytes are zero (persistent part
// unused since durable handles are a Non-goal).
func (h *Handler) GenerateFileID() [16]byte {
	var id [16]byte
	n := h.nextFileID.Add(1)
	for i := 0; i < 8; i++ {
		id[i] = byte(n >> (8 * i))
	}
	return id
}

// StoreTree records a new TREE_CONNECT binding.
func (h *Handler) StoreTree(t *TreeConnection) {
	h.trees.Store(t.TreeID, t)
}

// GetTree retrieves a tree connection by ID.
func (h *Handler) GetTree(treeID uint32) (*TreeConnection, bool) {
	v, ok := h.trees.Load(treeID)
	if !ok {
		return nil, false
	}
	return v.(*TreeConnection), true
}

// DeleteTree removes a tree connection, used on TREE_DISCONNECT.
func (h *Handler) DeleteTree(treeID uint32) {
	h.trees.Delete(treeID)
}

// ShareForTree resolves the SharedResource a tree ID is currently bound to.
func (h *Handler) ShareForTree(treeID uint32) (share.SharedResource, bool) {
	t, ok := h.GetTree(treeID)
	if !ok {
		return nil, false
	}
	s, ok := h.Shares[t.ShareName]
	return s, ok
}

// StoreOpenFile records a newly opened handle.
func (h *Handler) StoreOpenFile(f *OpenFile) {
	h.files.Store(f.FileID, f)
}

// GetOpenFile retrieves an open handle by file ID.
func (h *Handler) GetOpenFile(fileID [16]byte) (*OpenFile, bool) {
	v, ok := h.files.Load(fileID)
	if !ok {
		return nil, false
	}
	return v.(*OpenFile), true
}

// DeleteOpenFile removes a handle from the table without closing it; callers
// close the underlying share.ResourceHandle themselves.
func (h *Handler) DeleteOpenFile(fileID [16]byte) {
	h.files.Delete(fileID)
}

// CloseAllFilesForTree closes and removes every open handle bound to treeID,
// used on TREE_DISCONNECT.
func (h *Handler) CloseAllFilesForTree(treeID uint32) {
	var toClose []*OpenFile
	h.files.Range(func(key, value any) bool {
		f := value.(*OpenFile)
		if f.TreeID == treeID {
			toClose = append(toClose, f)
		}
		return true
	})
	for _, f := range toClose {
		if f.Handle != nil {
			_ = f.Handle.Close()
		}
		h.files.Delete(f.FileID)
		if f.IsPipe {
			h.PipeManager.ClosePipe(f.FileID)
		}
	}
}

// DeleteAllTreesForSession removes every tree connection bound to sessionID,
// used on LOGOFF.
func (h *Handler) DeleteAllTreesForSession(sessionID uint64) {
	var treeIDs []uint32
	h.trees.Range(func(key, value any) bool {
		t := value.(*TreeConnection)
		if t.SessionID == sessionID {
			treeIDs = append(treeIDs, t.TreeID)
		}
		return true
	})
	for _, id := range treeIDs {
		h.CloseAllFilesForTree(id)
		h.trees.Delete(id)
	}
}

// CleanupSession tears down every resource (trees, open files, pending
// auth, and the session itself) owned by sessionID. Called on LOGOFF and on
// connection loss.
func (h *Handler) CleanupSession(sessionID uint64) {
	h.DeleteAllTreesForSession(sessionID)
	h.DeletePendingAuth(sessionID)
	h.SessionManager.DeleteSession(sessionID)
}
