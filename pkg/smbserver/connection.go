package smbserver

import (
	"io"
	"net"

	"github.com/coredoor/smbd/internal/logger"
	"github.com/coredoor/smbd/internal/protocol/smb/conn"
	"github.com/coredoor/smbd/internal/protocol/smb/dispatch"
	"github.com/coredoor/smbd/internal/protocol/smb/header"
	"github.com/coredoor/smbd/internal/protocol/smb/v2/handlers"
)

// serveConnection owns one accepted TCP connection end to end: it reads
// NetBIOS-framed SMB messages, hands each to dispatch.ProcessSingleRequest,
// writes the framed response back, and tears down every session this
// connection opened once the client disconnects.
//
// Requests on a single connection are processed one at a time, in the order
// received. A single NetBIOS frame may itself carry a compound request
// (several SMB2 messages chained by next_command); ProcessSingleRequest
// walks that chain internally and returns one concatenated reply, so this
// loop still sees exactly one write per frame read. Nothing in this
// server's scope (asynchronous CHANGE_NOTIFY delivery, multi-channel) needs
// the per-request goroutine fan-out the teacher's adapter uses for its
// richer async surface.
func serveConnection(h *handlers.Handler, cfg Config, nc net.Conn) {
	c := conn.NewConnection(nc, cfg.WriteTimeout)
	clientAddr := c.RemoteAddr()

	connectionsTotal.Inc()
	connectionsActive.Inc()
	logger.Info("smbserver: connection accepted", "client", clientAddr)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("smbserver: panic in connection handler", "client", clientAddr, "error", r)
		}
		for _, sessionID := range c.SessionIDs() {
			h.CleanupSession(sessionID)
		}
		_ = nc.Close()
		connectionsActive.Dec()
		logger.Info("smbserver: connection closed", "client", clientAddr)
	}()

	for {
		message, err := readMessage(nc, cfg.MaxMessageSize, cfg.IdleTimeout, cfg.ReadTimeout)
		if err != nil {
			if err != io.EOF {
				logger.Debug("smbserver: read error", "client", clientAddr, "error", err)
			}
			return
		}

		reqHdr, parseErr := header.Parse(message)
		cmdName := "UNKNOWN"
		if parseErr == nil {
			cmdName = reqHdr.Command.String()
		}

		response := dispatch.ProcessSingleRequest(h, c, message)
		if response == nil {
			logger.Debug("smbserver: malformed request dropped", "client", clientAddr)
			return
		}

		requestsTotal.WithLabelValues(cmdName).Inc()
		if respHdr, err := header.Parse(response); err == nil && !respHdr.Status.IsSuccess() && !respHdr.Status.IsWarning() {
			requestErrorsTotal.WithLabelValues(cmdName).Inc()
		}

		if err := writeMessage(nc, response, cfg.WriteTimeout); err != nil {
			logger.Debug("smbserver: write error", "client", clientAddr, "error", err)
			return
		}
	}
}
