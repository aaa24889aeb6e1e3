// Package share defines the boundary between the protocol core and the
// backends that actually own data and identity: a share exposes a
// filesystem-like namespace through SharedResource/ResourceHandle, and an
// AuthProvider validates a client's security token without the core ever
// seeing NTLM, Kerberos, or password material directly.
package share

import (
	"context"
	"time"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
)

// ResourceType classifies what a SharedResource backs. [MS-SMB2] 2.2.10
// ShareType.
type ResourceType int

const (
	ResourceTypeDisk ResourceType = iota
	ResourceTypePipe
	ResourceTypePrint
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeDisk:
		return "Disk"
	case ResourceTypePipe:
		return "Pipe"
	case ResourceTypePrint:
		return "Print"
	default:
		return "Unknown"
	}
}

// ShareFlags mirrors the SMB2_SHAREFLAG_* bits reported in TREE_CONNECT
// responses (caching mode, DFS root, access-based enumeration, ...).
type ShareFlags uint32

const (
	ShareFlagManualCaching       ShareFlags = 0x00000000
	ShareFlagAutoCaching         ShareFlags = 0x00000010
	ShareFlagVDOCaching          ShareFlags = 0x00000020
	ShareFlagNoCaching           ShareFlags = 0x00000030
	ShareFlagDFS                 ShareFlags = 0x00000001
	ShareFlagDFSRoot             ShareFlags = 0x00000002
	ShareFlagRestrictExclusive   ShareFlags = 0x00000100
	ShareFlagForceSharedDelete   ShareFlags = 0x00000200
	ShareFlagAllowNamespaceCache ShareFlags = 0x00000400
	ShareFlagAccessBasedDirEnum  ShareFlags = 0x00000800
	ShareFlagForceLevelIIOplock  ShareFlags = 0x00001000
	ShareFlagEnableHashV1        ShareFlags = 0x00002000
	ShareFlagEnableHashV2        ShareFlags = 0x00004000
	ShareFlagEncryptData         ShareFlags = 0x00008000
)

// Times holds the four FILETIME-equivalent timestamps [MS-FSCC] attaches to
// every file/directory.
type Times struct {
	Created    time.Time
	LastAccess time.Time
	LastWrite  time.Time
	Change     time.Time
}

// Metadata is what a handle reports back to populate CREATE and
// QUERY_INFO responses.
type Metadata struct {
	Times          Times
	AllocationSize uint64
	EndOfFile      uint64
	Attributes     types.FileAttributes
}

// ResourceHandle is an open instance of a file, directory, or pipe within a
// SharedResource. Implementations are provided externally; the core only
// calls through this interface, never touching the backing storage itself.
type ResourceHandle interface {
	// Close releases the handle. Idempotent implementations are expected
	// to tolerate a second call returning a benign error.
	Close() error

	// IsDirectory reports whether this handle was opened against a
	// directory, independent of Metadata().Attributes.
	IsDirectory() bool

	// Path returns the handle's path relative to the owning share's root.
	Path() string

	// Metadata returns the current timestamps, sizes, and attributes.
	Metadata() (Metadata, error)

	// Read returns up to length bytes starting at offset. A short read
	// before EOF is an error; returning fewer bytes than length signals
	// end of file, matching io.Reader's final-read convention.
	Read(offset int64, length int) ([]byte, error)

	// Write stores data at offset, returning the number of bytes written.
	Write(offset int64, data []byte) (int, error)
}

// SharedResource is a single namespace published under a tree name (e.g.
// the target of a TREE_CONNECT). The core asks it whether a user may
// connect, what a user may do once connected, and to open paths within it;
// everything else about the backing store is opaque.
type SharedResource interface {
	// Name is the share's tree name, as offered in TREE_CONNECT and
	// enumerated over the IPC$ SRVSVC pipe.
	Name() string

	ResourceType() ResourceType

	Flags() ShareFlags

	// HandleCreate opens or creates path according to disposition,
	// returning a handle the core can Read/Write/Close through.
	HandleCreate(path string, disposition types.CreateDisposition, isDirectory bool) (ResourceHandle, error)

	// ConnectAllowed reports whether user may TREE_CONNECT to this share
	// at all, independent of what they can do once connected.
	ConnectAllowed(user string) bool

	// ResourcePerms reports the access mask granted to user on this
	// share, used to populate CREATE's MaximalAccess and to pre-fail
	// requests the user could never satisfy.
	ResourcePerms(user string) types.AccessMask
}

// SecurityContext is the identity and key material an AuthProvider
// establishes once AcceptSecurityContext completes (or completes enough
// to need no further round trips).
type SecurityContext interface {
	// SessionKey is the negotiated key used to derive signing and
	// encryption keys for the session. It is empty until authentication
	// completes.
	SessionKey() []byte

	// UserName is the authenticated identity, used for share ACL checks.
	UserName() string
}

// AuthProvider validates SESSION_SETUP security tokens without exposing
// the mechanism (NTLM, Kerberos, guest, ...) to the protocol core.
// Implementations drive a GSS-API-style accept loop: a caller repeatedly
// supplies input_token until the returned status is no longer
// STATUS_MORE_PROCESSING_REQUIRED.
type AuthProvider interface {
	// OID is the mechanism OID this provider negotiates under SPNEGO,
	// e.g. NTLMSSP's 1.3.6.1.4.1.311.2.2.10.
	OID() []byte

	// AcceptSecurityContext processes one leg of the exchange. A
	// StatusMoreProcessingRequired return means outputToken must be sent
	// back to the client and the exchange continued with its reply;
	// StatusSuccess means ctx is now valid and usable; any other status
	// is a hard authentication failure.
	AcceptSecurityContext(ctx context.Context, inputToken []byte) (status types.Status, outputToken []byte, sctx SecurityContext, err error)
}
