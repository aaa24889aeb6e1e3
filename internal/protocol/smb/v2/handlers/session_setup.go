package handlers

import (
	"context"
	"time"

	"github.com/coredoor/smbd/internal/protocol/smb/conn"
	"github.com/coredoor/smbd/internal/protocol/smb/session"
	"github.com/coredoor/smbd/internal/protocol/smb/share"
	"github.com/coredoor/smbd/internal/protocol/smb/signing"
	"github.com/coredoor/smbd/internal/protocol/smb/types"
	v2 "github.com/coredoor/smbd/internal/protocol/smb/v2"
)

// SessionSetup handles SMB2 SESSION_SETUP. Authentication always runs over
// NTLM (wrapped in SPNEGO where the client expects it); Kerberos ticket
// validation has no configuration surface on this server and is never
// attempted. The exchange is driven by share.AuthProvider's
// AcceptSecurityContext loop, with per-handshake state tracked by
// sessionID in Handler.pendingAuth across the request/response pair that
// returns StatusMoreProcessingRequired.
func (h *Handler) SessionSetup(c *conn.Connection, sessionID uint64, req *v2.SessionSetupRequest, rawRequest []byte) (*HandlerResult, uint64) {
	pending, ok := h.GetPendingAuth(sessionID)
	if !ok {
		sessionID = h.SessionManager.GenerateSessionID()
		pending = &PendingAuth{
			SessionID:  sessionID,
			ClientAddr: c.RemoteAddr(),
			CreatedAt:  time.Now(),
			Provider:   h.NewAuthProvider(),
		}
		h.StorePendingAuth(pending)
	}

	c.Crypto.UpdatePreauthHash(rawRequest)

	status, outputToken, sctx, err := pending.Provider.AcceptSecurityContext(context.Background(), req.SecurityBuffer)
	if err != nil && status == types.StatusSuccess {
		status = types.StatusLogonFailure
	}

	resp := &v2.SessionSetupResponse{SecurityBuffer: outputToken}

	switch status {
	case types.StatusMoreProcessingRequired:
		encoded := resp.Encode()
		c.Crypto.UpdatePreauthHash(encoded)
		return &HandlerResult{Data: encoded, Status: status}, sessionID

	case types.StatusSuccess:
		h.DeletePendingAuth(sessionID)
		isGuest := false
		username, domain := "", ""
		if g, ok := sctx.(interface{ IsGuest() bool }); ok {
			isGuest = g.IsGuest()
		}
		username = sctx.UserName()
		if d, ok := sctx.(interface{ Domain() string }); ok {
			domain = d.Domain()
		}

		s := session.NewSession(sessionID, pending.ClientAddr, isGuest, username, domain)
		h.deriveSigningKeys(c, s, sctx)
		h.SessionManager.StoreSession(s)
		c.TrackSession(sessionID)

		if isGuest {
			resp.SessionFlags = uint16(types.SessionFlagIsGuest)
		}

		encoded := resp.Encode()
		c.Crypto.UpdatePreauthHash(encoded)
		return &HandlerResult{Data: encoded, Status: status}, sessionID

	default:
		h.DeletePendingAuth(sessionID)
		return NewErrorResult(status), sessionID
	}
}

// deriveSigningKeys establishes a session's signing (and, on 3.x, encryption)
// keys from the negotiated session key: a direct HMAC-SHA256 derivation
// pre-3.0, or the SP800-108 KDF from 3.0 onward, whose context is the
// connection's preauth integrity hash on 3.1.1 and a fixed string on
// 3.0/3.0.2.
func (h *Handler) deriveSigningKeys(c *conn.Connection, s *session.Session, sctx share.SecurityContext) {
	s.Signing = signing.NewSessionSigningState()
	if c.Crypto.Dialect >= types.Dialect0300 {
		s.Signing.DeriveSessionKeys(sctx.SessionKey(), c.Crypto.Dialect, c.Crypto.PreauthHash(), c.Crypto.CipherId, c.Crypto.SigningAlgorithmId)
	} else {
		s.Signing.SetSessionKey(sctx.SessionKey())
	}
	s.EnableSigning(c.Crypto.ServerSecurityMode.Has(types.SecurityModeSigningRequired) ||
		c.Crypto.ClientSecurityMode.Has(types.SecurityModeSigningRequired))
}
