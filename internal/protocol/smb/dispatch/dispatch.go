// Package dispatch routes parsed SMB2 requests to their command handlers:
// session/tree precondition checks, signature verification, the handler
// call itself, and response signing/credit-granting, all per request.
package dispatch

import (
	"encoding/binary"

	"github.com/coredoor/smbd/internal/logger"
	"github.com/coredoor/smbd/internal/protocol/smb/conn"
	"github.com/coredoor/smbd/internal/protocol/smb/header"
	"github.com/coredoor/smbd/internal/protocol/smb/session"
	"github.com/coredoor/smbd/internal/protocol/smb/types"
	v2 "github.com/coredoor/smbd/internal/protocol/smb/v2"
	"github.com/coredoor/smbd/internal/protocol/smb/v2/handlers"
	"github.com/coredoor/smbd/internal/wire"
)

// RequestContext carries everything a dispatched command handler needs:
// the parsed header, the raw body bytes it still has to decode itself
// (each message-catalog record owns its own Decode), and the session the
// precondition check already resolved, when the command requires one.
type RequestContext struct {
	Handler *handlers.Handler
	Conn    *conn.Connection
	Header  *header.SMB2Header
	Body    []byte
	Session *session.Session
}

// CommandHandler decodes a request body against RequestContext and
// produces the result the response header/body will carry.
type CommandHandler func(rc *RequestContext) *handlers.HandlerResult

// Command is one DispatchTable entry: the handler function plus the
// precondition flags ProcessSingleRequest checks before calling it.
type Command struct {
	Name         string
	Handler      CommandHandler
	NeedsSession bool
	NeedsTree    bool
}

// DispatchTable maps every command this server answers (other than
// NEGOTIATE and SESSION_SETUP, handled directly by ProcessSingleRequest
// since both read or mutate session identity outside the normal
// session/tree precondition flow) to its Command entry.
var DispatchTable map[types.Command]*Command

func init() {
	DispatchTable = map[types.Command]*Command{
		types.CommandLogoff: {
			Name:         "LOGOFF",
			NeedsSession: true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				return rc.Handler.Logoff(rc.Header.SessionID)
			},
		},
		types.CommandTreeConnect: {
			Name:         "TREE_CONNECT",
			NeedsSession: true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				req, err := v2.DecodeTreeConnectRequest(rc.Body)
				if err != nil {
					return handlers.NewErrorResult(types.StatusInvalidParameter)
				}
				return rc.Handler.TreeConnect(rc.Header.SessionID, rc.Session.Username, req)
			},
		},
		types.CommandTreeDisconnect: {
			Name:         "TREE_DISCONNECT",
			NeedsSession: true,
			NeedsTree:    true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				return rc.Handler.TreeDisconnect(rc.Header.TreeID)
			},
		},
		types.CommandCreate: {
			Name:         "CREATE",
			NeedsSession: true,
			NeedsTree:    true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				req, err := v2.DecodeCreateRequest(rc.Body)
				if err != nil {
					return handlers.NewErrorResult(types.StatusInvalidParameter)
				}
				return rc.Handler.Create(rc.Header.TreeID, rc.Header.SessionID, req)
			},
		},
		types.CommandClose: {
			Name:         "CLOSE",
			NeedsSession: true,
			NeedsTree:    true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				req, err := v2.DecodeCloseRequest(rc.Body)
				if err != nil {
					return handlers.NewErrorResult(types.StatusInvalidParameter)
				}
				return rc.Handler.Close(req)
			},
		},
		types.CommandFlush: {
			Name:         "FLUSH",
			NeedsSession: true,
			NeedsTree:    true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				req, err := v2.DecodeFlushRequest(rc.Body)
				if err != nil {
					return handlers.NewErrorResult(types.StatusInvalidParameter)
				}
				return rc.Handler.Flush(req)
			},
		},
		types.CommandRead: {
			Name:         "READ",
			NeedsSession: true,
			NeedsTree:    true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				req, err := v2.DecodeReadRequest(rc.Body)
				if err != nil {
					return handlers.NewErrorResult(types.StatusInvalidParameter)
				}
				return rc.Handler.Read(req)
			},
		},
		types.CommandWrite: {
			Name:         "WRITE",
			NeedsSession: true,
			NeedsTree:    true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				req, err := v2.DecodeWriteRequest(rc.Body)
				if err != nil {
					return handlers.NewErrorResult(types.StatusInvalidParameter)
				}
				return rc.Handler.Write(req)
			},
		},
		types.CommandLock: {
			Name:         "LOCK",
			NeedsSession: true,
			NeedsTree:    true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				req, err := v2.DecodeLockRequest(rc.Body)
				if err != nil {
					return handlers.NewErrorResult(types.StatusInvalidParameter)
				}
				return rc.Handler.Lock(req)
			},
		},
		types.CommandIoctl: {
			Name:         "IOCTL",
			NeedsSession: true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				req, err := v2.DecodeIoctlRequest(rc.Body)
				if err != nil {
					return handlers.NewErrorResult(types.StatusInvalidParameter)
				}
				return rc.Handler.Ioctl(rc.Conn, req)
			},
		},
		types.CommandCancel: {
			Name: "CANCEL",
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				return rc.Handler.Cancel()
			},
		},
		types.CommandEcho: {
			Name: "ECHO",
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				return rc.Handler.Echo()
			},
		},
		types.CommandQueryDirectory: {
			Name:         "QUERY_DIRECTORY",
			NeedsSession: true,
			NeedsTree:    true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				req, err := v2.DecodeQueryDirectoryRequest(rc.Body)
				if err != nil {
					return handlers.NewErrorResult(types.StatusInvalidParameter)
				}
				return rc.Handler.QueryDirectory(req)
			},
		},
		types.CommandChangeNotify: {
			Name:         "CHANGE_NOTIFY",
			NeedsSession: true,
			NeedsTree:    true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				req, err := v2.DecodeChangeNotifyRequest(rc.Body)
				if err != nil {
					return handlers.NewErrorResult(types.StatusInvalidParameter)
				}
				return rc.Handler.ChangeNotify(req)
			},
		},
		types.CommandQueryInfo: {
			Name:         "QUERY_INFO",
			NeedsSession: true,
			NeedsTree:    true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				req, err := v2.DecodeQueryInfoRequest(rc.Body)
				if err != nil {
					return handlers.NewErrorResult(types.StatusInvalidParameter)
				}
				return rc.Handler.QueryInfo(req)
			},
		},
		types.CommandSetInfo: {
			Name:         "SET_INFO",
			NeedsSession: true,
			NeedsTree:    true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				req, err := v2.DecodeSetInfoRequest(rc.Body)
				if err != nil {
					return handlers.NewErrorResult(types.StatusInvalidParameter)
				}
				return rc.Handler.SetInfo(req)
			},
		},
		types.CommandOplockBreak: {
			Name:         "OPLOCK_BREAK",
			NeedsSession: true,
			NeedsTree:    true,
			Handler: func(rc *RequestContext) *handlers.HandlerResult {
				ack, err := v2.DecodeOplockBreakAck(rc.Body)
				if err != nil {
					return handlers.NewErrorResult(types.StatusInvalidParameter)
				}
				return rc.Handler.OplockBreak(ack)
			},
		},
	}
}

// ProcessSingleRequest decodes one NetBIOS-framed SMB buffer and returns its
// encoded response. The buffer may be a compound request: one or more
// (header, body) pairs chained by each header's NextCommand offset
// ([MS-SMB2] 3.2.4.1.4). Each chained request is dispatched in order and its
// response appended to the last, producing a single compound reply when the
// request was compounded. NEGOTIATE and SESSION_SETUP are handled directly,
// outside DispatchTable: NEGOTIATE runs before any session exists, and
// SESSION_SETUP can itself mint the session ID the rest of the exchange
// will use.
func ProcessSingleRequest(h *handlers.Handler, c *conn.Connection, rawMessage []byte) []byte {
	if header.IsSMB1Message(rawMessage) {
		req := v2.LegacyNegotiateRequest{}.AsNegotiateRequest()
		hdr := legacyNegotiateHeader()
		return encodeResponse(h, hdr, h.Negotiate(c, req, rawMessage), nil, true)
	}

	frames := splitCompoundFrames(rawMessage)

	var out []byte
	var chainSessionID uint64
	var chainTreeID uint32
	for i, frame := range frames {
		isLast := i == len(frames)-1
		resp, sessionID, treeID := processOneRequest(h, c, frame, chainSessionID, chainTreeID, isLast)
		if resp == nil {
			if i == 0 {
				return nil
			}
			break
		}
		if sessionID != 0 {
			chainSessionID = sessionID
		}
		if treeID != 0 {
			chainTreeID = treeID
		}
		out = append(out, resp...)
	}
	return out
}

// splitCompoundFrames breaks rawMessage into the individual (header, body)
// requests its NextCommand chain describes. A header whose NextCommand is
// zero, or whose value would run past the end of the remaining buffer, ends
// the chain: the rest of the buffer is that last (or only) request.
func splitCompoundFrames(rawMessage []byte) [][]byte {
	var frames [][]byte
	offset := 0
	for {
		remaining := rawMessage[offset:]
		if len(remaining) < header.Size {
			frames = append(frames, remaining)
			break
		}
		hdr, err := header.Parse(remaining)
		if err != nil {
			frames = append(frames, remaining)
			break
		}
		if hdr.NextCommand == 0 || int(hdr.NextCommand) >= len(remaining) {
			frames = append(frames, remaining)
			break
		}
		frames = append(frames, remaining[:hdr.NextCommand])
		offset += int(hdr.NextCommand)
	}
	return frames
}

// processOneRequest dispatches a single (header, body) frame, which may be
// one leg of a compound chain. inheritSessionID/inheritTreeID are the
// session/tree IDs established earlier in the same chain, used only when
// this frame sets SMB2_FLAGS_RELATED_OPERATIONS and carries a zero ID of
// its own ([MS-SMB2] 3.3.5.2.10). It returns the encoded response plus
// whatever session/tree ID this step established or inherited, so the next
// related frame in the chain can reuse them.
func processOneRequest(h *handlers.Handler, c *conn.Connection, frame []byte, inheritSessionID uint64, inheritTreeID uint32, isLast bool) ([]byte, uint64, uint32) {
	hdr, err := header.Parse(frame)
	if err != nil {
		return nil, 0, 0
	}
	body := frame[header.Size:]

	if hdr.IsRelated() {
		if hdr.SessionID == 0 {
			hdr.SessionID = inheritSessionID
		}
		if hdr.TreeID == 0 {
			hdr.TreeID = inheritTreeID
		}
	}

	switch hdr.Command {
	case types.CommandNegotiate:
		req, err := v2.DecodeNegotiateRequest(body)
		if err != nil {
			return encodeResponse(h, hdr, handlers.NewErrorResult(types.StatusInvalidParameter), nil, isLast), 0, 0
		}
		return encodeResponse(h, hdr, h.Negotiate(c, req, frame), nil, isLast), 0, 0
	case types.CommandSessionSetup:
		resp, sessionID := processSessionSetup(h, c, hdr, body, frame, isLast)
		return resp, sessionID, 0
	}

	cmd, ok := DispatchTable[hdr.Command]
	if !ok {
		logger.Warn("dispatch: unsupported command", logger.Command(hdr.Command.String()))
		return encodeResponse(h, hdr, handlers.NewErrorResult(types.StatusNotSupported), nil, isLast), 0, 0
	}

	var sess *session.Session
	if cmd.NeedsSession {
		sess, ok = h.SessionManager.GetSession(hdr.SessionID)
		if !ok {
			return encodeResponse(h, hdr, handlers.NewErrorResult(types.StatusUserSessionDeleted), nil, isLast), 0, 0
		}
	}
	if cmd.NeedsTree {
		if _, ok := h.GetTree(hdr.TreeID); !ok {
			return encodeResponse(h, hdr, handlers.NewErrorResult(types.StatusNetworkNameDeleted), sess, isLast), 0, 0
		}
	}

	if sess != nil {
		sess.RequestStarted()
		defer sess.RequestCompleted()
		if sess.ShouldVerify() && !sess.VerifyMessage(frame) {
			return encodeResponse(h, hdr, handlers.NewErrorResult(types.StatusAccessDenied), sess, isLast), 0, 0
		}
	}

	rc := &RequestContext{Handler: h, Conn: c, Header: hdr, Body: body, Session: sess}
	result := cmd.Handler(rc)

	treeID := hdr.TreeID
	if result.TreeID != 0 {
		hdr.TreeID = result.TreeID
		treeID = result.TreeID
	}

	return encodeResponse(h, hdr, result, sess, isLast), hdr.SessionID, treeID
}

// legacyNegotiateHeader stands in for the SMB1 NEGOTIATE request header a
// pre-SMB2 client actually sent: SMB1's own 32-byte header carries no
// fields ProcessSingleRequest's response path needs, so this synthesizes
// the minimal SMB2-shaped request identity (message/session/tree all
// zero, one credit requested) that drives the upgrade response.
func legacyNegotiateHeader() *header.SMB2Header {
	return &header.SMB2Header{
		StructureSize: header.Size,
		Command:       types.CommandLegacyNegotiate,
		Credits:       1,
	}
}

func processSessionSetup(h *handlers.Handler, c *conn.Connection, hdr *header.SMB2Header, body, rawMessage []byte, isLast bool) ([]byte, uint64) {
	req, err := v2.DecodeSessionSetupRequest(body)
	if err != nil {
		return encodeResponse(h, hdr, handlers.NewErrorResult(types.StatusInvalidParameter), nil, isLast), 0
	}
	result, sessionID := h.SessionSetup(c, hdr.SessionID, req, rawMessage)
	respHdr := header.NewResponseHeader(hdr, result.Status)
	respHdr.SessionID = sessionID
	encoded := finishResponse(encodeWithHeader(respHdr, result), nil, isLast)
	return encoded, sessionID
}

// encodeResponse builds a response header, asking the session manager for
// a credit grant when a session is known, then finalizes the message (see
// finishResponse).
func encodeResponse(h *handlers.Handler, reqHdr *header.SMB2Header, result *handlers.HandlerResult, sess *session.Session, isLast bool) []byte {
	credits := reqHdr.Credits
	if credits == 0 {
		credits = 1
	}
	granted := h.SessionManager.GrantCredits(reqHdr.SessionID, credits, reqHdr.CreditCharge)

	respHdr := header.NewResponseHeaderWithCredits(reqHdr, result.Status, granted)
	encoded := encodeWithHeader(respHdr, result)
	return finishResponse(encoded, sess, isLast)
}

// finishResponse closes out one response within a (possibly compound)
// reply: every non-final leg is padded to the next 8-byte boundary and has
// its NextCommand field set to that padded length, exactly mirroring the
// request chain it answers ([MS-SMB2] 3.3.4.1.4), and only then is the
// message signed, so a signature covers the NextCommand value actually put
// on the wire.
func finishResponse(encoded []byte, sess *session.Session, isLast bool) []byte {
	if !isLast {
		pad := (8 - len(encoded)%8) % 8
		encoded = append(encoded, make([]byte, pad)...)
		binary.LittleEndian.PutUint32(encoded[20:24], uint32(len(encoded)))
	}
	if sess != nil && sess.ShouldSign() {
		sess.SignMessage(encoded)
	}
	return encoded
}

func encodeWithHeader(respHdr *header.SMB2Header, result *handlers.HandlerResult) []byte {
	body := result.Data
	if !result.Status.IsSuccess() && !result.Status.IsWarning() && len(body) == 0 {
		body = makeErrorBody()
	}
	return append(respHdr.Encode(), body...)
}

func makeErrorBody() []byte {
	w := wire.NewWriter(8)
	w.WriteUint16(9) // StructureSize
	w.WriteUint16(0) // Reserved
	w.WriteUint32(0) // ByteCount
	return w.Bytes()
}
