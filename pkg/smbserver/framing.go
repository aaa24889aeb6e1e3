package smbserver

import (
	"fmt"
	"io"
	"net"
	"time"
)

// readMessage reads one complete SMB message off conn: a 4-byte NetBIOS
// session header (1 byte type + 3-byte big-endian length) followed by that
// many bytes of SMB1 or SMB2 payload.
//
// idleTimeout bounds how long the connection may sit with no request
// pending before it is dropped; readTimeout is a separate, tighter deadline
// applied once the NetBIOS length is known, bounding how long reading the
// declared message body may take so a client that trickles bytes can't hold
// a worker for the full idle window.
func readMessage(conn net.Conn, maxSize int, idleTimeout, readTimeout time.Duration) ([]byte, error) {
	if idleTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
	}

	var nbHeader [4]byte
	if _, err := io.ReadFull(conn, nbHeader[:]); err != nil {
		return nil, err
	}

	msgLen := uint32(nbHeader[1])<<16 | uint32(nbHeader[2])<<8 | uint32(nbHeader[3])
	if msgLen == 0 || int(msgLen) > maxSize {
		return nil, fmt.Errorf("smbserver: message size %d out of bounds (max %d)", msgLen, maxSize)
	}

	if readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
	}

	message := make([]byte, msgLen)
	if _, err := io.ReadFull(conn, message); err != nil {
		return nil, fmt.Errorf("smbserver: read message body: %w", err)
	}
	return message, nil
}

// writeMessage wraps payload in its 4-byte NetBIOS session header and
// writes both in one call so the frame reaches the wire atomically.
func writeMessage(conn net.Conn, payload []byte, writeTimeout time.Duration) error {
	if writeTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}

	frame := make([]byte, 4+len(payload))
	frame[0] = 0x00
	frame[1] = byte(len(payload) >> 16)
	frame[2] = byte(len(payload) >> 8)
	frame[3] = byte(len(payload))
	copy(frame[4:], payload)

	_, err := conn.Write(frame)
	return err
}
