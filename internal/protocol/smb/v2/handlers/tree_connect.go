package handlers

import (
	"github.com/coredoor/smbd/internal/protocol/smb/share"
	"github.com/coredoor/smbd/internal/protocol/smb/types"
	v2 "github.com/coredoor/smbd/internal/protocol/smb/v2"
)

// TreeConnect handles SMB2 TREE_CONNECT: it resolves the requested share by
// name, checks the session's user against ConnectAllowed, and hands back a
// fresh tree ID bound to that share for the session's lifetime.
func (h *Handler) TreeConnect(sessionID uint64, username string, req *v2.TreeConnectRequest) *HandlerResult {
	name := req.ShareName()
	s, ok := h.Shares[name]
	if !ok {
		return NewErrorResult(types.StatusBadNetworkName)
	}
	if !s.ConnectAllowed(username) {
		return NewErrorResult(types.StatusAccessDenied)
	}

	treeID := h.GenerateTreeID()
	perms := s.ResourcePerms(username)

	h.StoreTree(&TreeConnection{
		TreeID:     treeID,
		SessionID:  sessionID,
		ShareName:  name,
		ShareType:  shareTypeOf(s),
		Permission: perms,
	})

	resp := &v2.TreeConnectResponse{
		ShareType:     shareTypeOf(s),
		ShareFlags:    uint32(s.Flags()),
		MaximalAccess: perms,
	}

	return &HandlerResult{Data: resp.Encode(), Status: types.StatusSuccess, TreeID: treeID}
}

func shareTypeOf(s share.SharedResource) types.ShareType {
	switch s.ResourceType() {
	case share.ResourceTypePipe:
		return types.ShareTypePipe
	case share.ResourceTypePrint:
		return types.ShareTypePrint
	default:
		return types.ShareTypeDisk
	}
}

// TreeDisconnect handles SMB2 TREE_DISCONNECT: it closes every open file
// under the tree and removes the binding.
func (h *Handler) TreeDisconnect(treeID uint32) *HandlerResult {
	if _, ok := h.GetTree(treeID); !ok {
		return NewErrorResult(types.StatusNetworkNameDeleted)
	}
	h.CloseAllFilesForTree(treeID)
	h.DeleteTree(treeID)
	return &HandlerResult{Data: v2.EncodeTreeDisconnectResponse(), Status: types.StatusSuccess}
}
