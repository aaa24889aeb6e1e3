package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/coredoor/smbd/internal/protocol/smb/rpc"
	"github.com/coredoor/smbd/internal/protocol/smb/share"
	"github.com/coredoor/smbd/internal/protocol/smb/share/memshare"
	"github.com/coredoor/smbd/internal/protocol/smb/types"
	v2 "github.com/coredoor/smbd/internal/protocol/smb/v2"
)

// Create handles SMB2 CREATE against both real SharedResource paths and,
// when the tree is IPC$, named pipes driven through the PipeManager. The
// MxAc/QFid create contexts are answered when requested since real clients
// (explorer.exe among them) treat their absence as a protocol violation
// rather than simply skipping the information.
func (h *Handler) Create(treeID uint32, sessionID uint64, req *v2.CreateRequest) *HandlerResult {
	tree, ok := h.GetTree(treeID)
	if !ok {
		return NewErrorResult(types.StatusNetworkNameDeleted)
	}
	s, ok := h.Shares[tree.ShareName]
	if !ok {
		return NewErrorResult(types.StatusNetworkNameDeleted)
	}

	if s.ResourceType() == share.ResourceTypePipe {
		return h.createPipe(tree, sessionID, req)
	}

	isDirectory := req.CreateOptions&types.FileDirectoryFile != 0
	resourceHandle, err := s.HandleCreate(req.Name, req.CreateDisposition, isDirectory)
	if err != nil {
		return NewErrorResult(statusForCreateError(err))
	}

	meta, err := resourceHandle.Metadata()
	if err != nil {
		_ = resourceHandle.Close()
		return NewErrorResult(types.StatusUnsuccessful)
	}

	fileID := h.GenerateFileID()
	h.StoreOpenFile(&OpenFile{
		FileID:        fileID,
		TreeID:        treeID,
		SessionID:     sessionID,
		ShareName:     tree.ShareName,
		OpenTime:      time.Now(),
		Handle:        resourceHandle,
		Path:          req.Name,
		IsDirectory:   resourceHandle.IsDirectory(),
		DesiredAccess: req.DesiredAccess,
	})

	createAction := types.FileOpened
	if req.CreateDisposition == types.FileCreate {
		createAction = types.FileCreated
	}

	resp := &v2.CreateResponse{
		OplockLevel:  types.OplockLevelNone,
		CreateAction: createAction,
		Times: v2.CreateTimes{
			Creation:   toFILETIME(meta.Times.Created),
			LastAccess: toFILETIME(meta.Times.LastAccess),
			LastWrite:  toFILETIME(meta.Times.LastWrite),
			Change:     toFILETIME(meta.Times.Change),
		},
		AllocationSize: meta.AllocationSize,
		EndOfFile:      meta.EndOfFile,
		FileAttributes: meta.Attributes,
		FileID:         fileID,
		Contexts:       createResponseContexts(req, tree, s, fileID),
	}
	return NewResult(types.StatusSuccess, resp.Encode())
}

func statusForCreateError(err error) types.Status {
	switch {
	case errors.Is(err, memshare.ErrAlreadyExist):
		return types.StatusObjectNameCollision
	case errors.Is(err, memshare.ErrIsDirectory):
		return types.StatusFileIsADirectory
	default:
		return types.StatusObjectNameNotFound
	}
}

// createResponseContexts answers the create contexts the request actually
// asked for: MxAc with the session's maximal access on the share, QFid with
// the assigned file ID.
func createResponseContexts(req *v2.CreateRequest, tree *TreeConnection, s share.SharedResource, fileID [16]byte) []v2.CreateContext {
	var contexts []v2.CreateContext
	for _, c := range req.Contexts {
		switch c.Name {
		case v2.CreateCtxMxAc:
			contexts = append(contexts, v2.CreateContext{
				Name: v2.CreateCtxMxAc,
				Data: v2.MaximalAccessContext{
					QueryStatus:   types.StatusSuccess,
					MaximalAccess: tree.Permission,
				}.Encode(),
			})
		case v2.CreateCtxQFid:
			contexts = append(contexts, v2.CreateContext{
				Name: v2.CreateCtxQFid,
				Data: v2.FileIDContext{FileID: fileID}.Encode(),
			})
		}
	}
	return contexts
}

// createPipe handles CREATE against an IPC$ tree: it opens (or reopens) a
// named pipe by the path's base name and registers it with the
// PipeManager so subsequent IOCTL FSCTL_PIPE_TRANSCEIVE calls can reach it.
func (h *Handler) createPipe(tree *TreeConnection, sessionID uint64, req *v2.CreateRequest) *HandlerResult {
	pipeName := strings.ToLower(req.Name)
	if !rpc.IsSupportedPipe(pipeName) {
		return NewErrorResult(types.StatusObjectNameNotFound)
	}

	fileID := h.GenerateFileID()
	h.PipeManager.CreatePipe(fileID, pipeName)

	h.StoreOpenFile(&OpenFile{
		FileID:    fileID,
		TreeID:    tree.TreeID,
		SessionID: sessionID,
		ShareName: tree.ShareName,
		OpenTime:  time.Now(),
		Path:      pipeName,
		IsPipe:    true,
		PipeName:  pipeName,
	})

	resp := &v2.CreateResponse{
		OplockLevel:  types.OplockLevelNone,
		CreateAction: types.FileOpened,
		FileID:       fileID,
	}
	return NewResult(types.StatusSuccess, resp.Encode())
}
