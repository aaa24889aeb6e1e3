// Package memshare is an in-memory SharedResource, used as the IPC$ pipe
// backing and as a fixture for exercising the dispatch and handler layers
// without a real filesystem behind them.
package memshare

import (
	"errors"
	"sync"
	"time"

	"github.com/coredoor/smbd/internal/protocol/smb/share"
	"github.com/coredoor/smbd/internal/protocol/smb/types"
)

var (
	ErrNotFound     = errors.New("memshare: path not found")
	ErrAlreadyExist = errors.New("memshare: path already exists")
	ErrIsDirectory  = errors.New("memshare: path is a directory")
)

// entry is one file or directory living in a Share's flat path index.
type entry struct {
	mu         sync.RWMutex
	path       string
	isDir      bool
	content    []byte
	attributes types.FileAttributes
	created    time.Time
	modified   time.Time
	accessed   time.Time
}

// Share is a fully in-memory SharedResource: all state lives in a map
// keyed by path, guarded by a single mutex. It is not meant to scale, only
// to give the protocol core something real to Create/Read/Write/Close
// against in tests and for the IPC$ administrative share.
type Share struct {
	name         string
	resourceType share.ResourceType
	flags        share.ShareFlags

	mu      sync.RWMutex
	entries map[string]*entry

	// allowedUsers, when non-nil, restricts ConnectAllowed to its keys.
	// A nil map means any user may connect.
	allowedUsers map[string]types.AccessMask
}

// NewDiskShare builds an empty in-memory disk share with a root directory.
func NewDiskShare(name string) *Share {
	s := &Share{
		name:         name,
		resourceType: share.ResourceTypeDisk,
		flags:        share.ShareFlagAutoCaching,
		entries:      make(map[string]*entry),
	}
	now := nowFunc()
	s.entries[""] = &entry{
		path:       "",
		isDir:      true,
		attributes: types.FileAttributeDirectory,
		created:    now,
		modified:   now,
		accessed:   now,
	}
	return s
}

// NewPipeShare builds an IPC$-style named-pipe share exposing no files.
func NewPipeShare(name string) *Share {
	return &Share{
		name:         name,
		resourceType: share.ResourceTypePipe,
		flags:        share.ShareFlagManualCaching,
		entries:      make(map[string]*entry),
	}
}

// nowFunc is indirected so tests can pin timestamps; production code never
// overrides it.
var nowFunc = time.Now

func (s *Share) Name() string                  { return s.name }
func (s *Share) ResourceType() share.ResourceType { return s.resourceType }
func (s *Share) Flags() share.ShareFlags       { return s.flags }

// ConnectAllowed reports true unless an allow-list was configured and
// excludes user.
func (s *Share) ConnectAllowed(user string) bool {
	if s.allowedUsers == nil {
		return true
	}
	_, ok := s.allowedUsers[user]
	return ok
}

// SetAllowedUsers restricts ConnectAllowed/ResourcePerms to the given
// user->access map. Passing nil reopens the share to everyone with full
// access.
func (s *Share) SetAllowedUsers(perms map[string]types.AccessMask) {
	s.allowedUsers = perms
}

// ResourcePerms reports full access unless an allow-list says otherwise.
func (s *Share) ResourcePerms(user string) types.AccessMask {
	if s.allowedUsers == nil {
		return types.AccessMask(0x001F01FF) // FILE_ALL_ACCESS
	}
	return s.allowedUsers[user]
}

// PutFile seeds the share with a file at path, for use by tests and by
// whatever loads static content (e.g. a print queue listing) at startup.
func (s *Share) PutFile(path string, content []byte, attrs types.FileAttributes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := nowFunc()
	s.entries[path] = &entry{
		path:       path,
		content:    append([]byte(nil), content...),
		attributes: attrs,
		created:    now,
		modified:   now,
		accessed:   now,
	}
}

// PutDirectory seeds the share with an empty directory at path.
func (s *Share) PutDirectory(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := nowFunc()
	s.entries[path] = &entry{
		path:       path,
		isDir:      true,
		attributes: types.FileAttributeDirectory,
		created:    now,
		modified:   now,
		accessed:   now,
	}
}

// ListDirectory returns the names of direct children of dir, sorted by
// insertion is not guaranteed; callers needing a stable listing order
// should sort the result themselves (QUERY_DIRECTORY does).
func (s *Share) ListDirectory(dir string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parent, ok := s.entries[dir]
	if !ok {
		return nil, ErrNotFound
	}
	if !parent.isDir {
		return nil, ErrIsDirectory
	}

	var names []string
	for p := range s.entries {
		if p == dir {
			continue
		}
		if parentOf(p) == dir {
			names = append(names, baseOf(p))
		}
	}
	return names, nil
}

// HandleCreate opens path, creating it first when disposition demands it.
func (s *Share) HandleCreate(path string, disposition types.CreateDisposition, isDirectory bool) (share.ResourceHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[path]

	switch disposition {
	case types.FileOpen:
		if !exists {
			return nil, ErrNotFound
		}
	case types.FileCreate:
		if exists {
			return nil, ErrAlreadyExist
		}
		e = s.createLocked(path, isDirectory)
	case types.FileOpenIf:
		if !exists {
			e = s.createLocked(path, isDirectory)
		}
	case types.FileOverwrite, types.FileOverwriteIf, types.FileSupersede:
		if !exists {
			if disposition == types.FileOverwrite {
				return nil, ErrNotFound
			}
			e = s.createLocked(path, isDirectory)
		} else if !e.isDir {
			e.mu.Lock()
			e.content = nil
			e.modified = nowFunc()
			e.mu.Unlock()
		}
	default:
		if !exists {
			return nil, ErrNotFound
		}
	}

	return &handle{share: s, entry: e}, nil
}

func (s *Share) createLocked(path string, isDirectory bool) *entry {
	now := nowFunc()
	attrs := types.FileAttributeNormal
	if isDirectory {
		attrs = types.FileAttributeDirectory
	}
	e := &entry{
		path:       path,
		isDir:      isDirectory,
		attributes: attrs,
		created:    now,
		modified:   now,
		accessed:   now,
	}
	s.entries[path] = e
	return e
}

// handle is the ResourceHandle returned by Share.HandleCreate.
type handle struct {
	share *Share
	entry *entry
}

func (h *handle) Close() error { return nil }

func (h *handle) IsDirectory() bool { return h.entry.isDir }

func (h *handle) Path() string { return h.entry.path }

func (h *handle) Metadata() (share.Metadata, error) {
	h.entry.mu.RLock()
	defer h.entry.mu.RUnlock()
	return share.Metadata{
		Times: share.Times{
			Created:    h.entry.created,
			LastAccess: h.entry.accessed,
			LastWrite:  h.entry.modified,
			Change:     h.entry.modified,
		},
		AllocationSize: uint64(len(h.entry.content)),
		EndOfFile:      uint64(len(h.entry.content)),
		Attributes:     h.entry.attributes,
	}, nil
}

func (h *handle) Read(offset int64, length int) ([]byte, error) {
	if h.entry.isDir {
		return nil, ErrIsDirectory
	}
	h.entry.mu.Lock()
	h.entry.accessed = nowFunc()
	content := h.entry.content
	h.entry.mu.Unlock()

	if offset >= int64(len(content)) {
		return nil, nil
	}
	end := offset + int64(length)
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	return content[offset:end], nil
}

func (h *handle) Write(offset int64, data []byte) (int, error) {
	if h.entry.isDir {
		return 0, ErrIsDirectory
	}
	h.entry.mu.Lock()
	defer h.entry.mu.Unlock()

	end := offset + int64(len(data))
	if end > int64(len(h.entry.content)) {
		grown := make([]byte, end)
		copy(grown, h.entry.content)
		h.entry.content = grown
	}
	copy(h.entry.content[offset:], data)
	h.entry.modified = nowFunc()
	return len(data), nil
}

func parentOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '\\' || path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

func baseOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '\\' || path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
