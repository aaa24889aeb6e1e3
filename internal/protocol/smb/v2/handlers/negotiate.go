package handlers

import (
	"crypto/rand"
	"time"

	"github.com/coredoor/smbd/internal/protocol/smb/conn"
	"github.com/coredoor/smbd/internal/protocol/smb/types"
	v2 "github.com/coredoor/smbd/internal/protocol/smb/v2"
)

// supportedDialects lists every concrete dialect this server can negotiate,
// in preference order (highest first) once the wildcard/legacy indirection
// has been resolved.
var supportedDialects = []types.Dialect{
	types.Dialect0311,
	types.Dialect0302,
	types.Dialect0300,
	types.Dialect0210,
	types.Dialect0202,
}

// ntTimeEpochOffset100ns is the number of 100ns intervals between the FILETIME
// epoch (1601-01-01) and the Unix epoch (1970-01-01).
const ntTimeEpochOffset100ns = 116444736000000000

func toFILETIME(t time.Time) uint64 {
	return uint64(t.UnixNano()/100) + ntTimeEpochOffset100ns
}

// selectDialect picks the highest mutually supported dialect from the
// client's offer, resolving CommandLegacyNegotiate's synthetic wildcard-only
// request to the highest dialect this server speaks.
func selectDialect(req *v2.NegotiateRequest) (types.Dialect, bool) {
	if req.HasDialect(types.DialectWildcard) && len(req.Dialects) == 1 {
		return supportedDialects[0], true
	}
	for _, d := range supportedDialects {
		if req.HasDialect(d) {
			return d, true
		}
	}
	return 0, false
}

// Negotiate handles SMB2 NEGOTIATE: it selects a dialect, records the
// client's offer on the connection's CryptoState so later 3.1.1 key
// derivation and preauth-hash checks have what they need, and builds the
// response including the negotiate-context list when 0x0311 was selected.
func (h *Handler) Negotiate(c *conn.Connection, req *v2.NegotiateRequest, rawRequest []byte) *HandlerResult {
	dialect, ok := selectDialect(req)
	if !ok {
		return NewErrorResult(types.StatusNotSupported)
	}

	c.Crypto.Dialect = dialect
	c.Crypto.ClientGUID = req.ClientGUID
	c.Crypto.ClientCapabilities = req.Capabilities
	c.Crypto.ClientSecurityMode = req.SecurityMode
	c.Crypto.ClientDialects = req.Dialects

	resp := &v2.NegotiateResponse{
		SecurityMode:    types.SecurityModeSigningEnabled,
		DialectRevision: dialect,
		ServerGUID:      h.ServerGUID,
		Capabilities:    types.CapDFS | types.CapLargeMTU,
		MaxTransactSize: h.MaxTransactSize,
		MaxReadSize:     h.MaxReadSize,
		MaxWriteSize:    h.MaxWriteSize,
		SystemTime:      toFILETIME(time.Now()),
		ServerStartTime: toFILETIME(h.StartTime),
		SecurityBuffer:  h.negotiateSecurityBuffer(),
	}

	if dialect == types.Dialect0311 {
		// A wildcard-only request is the synthetic upgrade from an SMB1
		// frame (see LegacyNegotiateRequest): SMB1 carries no negotiate
		// contexts at all, so the presence rule below only binds a genuine
		// SMB2 dialect-list offer.
		isLegacyUpgrade := req.HasDialect(types.DialectWildcard) && len(req.Dialects) == 1
		if !isLegacyUpgrade && !hasPreauthIntegrityContext(req) {
			return NewErrorResult(types.StatusInvalidParameter)
		}
		h.negotiate311(c, req, resp)
	} else if dialect >= types.Dialect0300 {
		resp.Capabilities |= types.CapEncryption
	}

	c.Crypto.ServerCapabilities = resp.Capabilities
	c.Crypto.ServerSecurityMode = resp.SecurityMode

	encoded := resp.Encode()
	c.Crypto.UpdatePreauthHash(rawRequest)
	c.Crypto.UpdatePreauthHash(encoded)
	return NewResult(types.StatusSuccess, encoded)
}

// hasPreauthIntegrityContext reports whether req carries a
// PreAuthIntegrityCapabilities negotiate context, mandatory on any 0x0311
// NEGOTIATE per MS-SMB2; a 3.1.1 client never omits it.
func hasPreauthIntegrityContext(req *v2.NegotiateRequest) bool {
	for _, nc := range req.NegotiateContexts {
		if nc.ContextType == types.NegCtxPreauthIntegrity {
			return true
		}
	}
	return false
}

// negotiate311 picks preauth-integrity/cipher/signing algorithms for 3.1.1
// and records the selection on the connection and response.
func (h *Handler) negotiate311(c *conn.Connection, req *v2.NegotiateRequest, resp *v2.NegotiateResponse) {
	c.Crypto.PreauthIntegrityHashId = types.HashAlgorithmSHA512
	c.Crypto.CipherId = types.CipherAES128GCM
	c.Crypto.SigningAlgorithmId = types.SigningAlgorithmAESCMAC

	for _, nc := range req.NegotiateContexts {
		switch nc.ContextType {
		case types.NegCtxEncryptionCaps:
			if caps, err := types.DecodeEncryptionCaps(nc.Data); err == nil {
				c.Crypto.CipherId = negotiateCipher(caps.Ciphers)
			}
		case types.NegCtxSigningCaps:
			if caps, err := types.DecodeSigningCaps(nc.Data); err == nil {
				c.Crypto.SigningAlgorithmId = negotiateSigningAlgorithm(caps.SigningAlgorithms)
			}
		}
	}

	salt := make([]byte, 32)
	_, _ = rand.Read(salt)

	resp.Capabilities |= types.CapEncryption
	resp.NegotiateContextCnt = 2
	resp.NegotiateContexts = []types.NegotiateContext{
		{
			ContextType: types.NegCtxPreauthIntegrity,
			Data: types.PreauthIntegrityCaps{
				HashAlgorithms: []uint16{types.HashAlgorithmSHA512},
				Salt:           salt,
			}.Encode(),
		},
		{
			ContextType: types.NegCtxEncryptionCaps,
			Data: types.EncryptionCaps{
				Ciphers: []uint16{c.Crypto.CipherId},
			}.Encode(),
		},
	}
}

func negotiateCipher(offered []uint16) uint16 {
	preference := []uint16{types.CipherAES256GCM, types.CipherAES128GCM, types.CipherAES256CCM, types.CipherAES128CCM}
	for _, p := range preference {
		for _, o := range offered {
			if o == p {
				return p
			}
		}
	}
	return types.CipherAES128GCM
}

func negotiateSigningAlgorithm(offered []uint16) uint16 {
	preference := []uint16{types.SigningAlgorithmAESGMAC, types.SigningAlgorithmAESCMAC, types.SigningAlgorithmHMACSHA256}
	for _, p := range preference {
		for _, o := range offered {
			if o == p {
				return p
			}
		}
	}
	return types.SigningAlgorithmAESCMAC
}

// negotiateSecurityBuffer would carry a SPNEGO NegTokenInit advertising the
// server's supported mechanism list (NTLM only). Left empty: clients that
// speak SMB2 always send their own mechanism offer unprompted on
// SESSION_SETUP, and internal/auth/spnego only builds NegTokenResp/reject
// framing for that reply, not the initial NegTokenInit a server-initiated
// offer here would need.
func (h *Handler) negotiateSecurityBuffer() []byte {
	return nil
}
