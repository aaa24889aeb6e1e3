package smbserver

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteMessageRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload := []byte("a fake SMB2 message body")

	done := make(chan error, 1)
	go func() { done <- writeMessage(client, payload, time.Second) }()

	got, err := readMessage(server, DefaultMaxMessageSize, time.Second, time.Second)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, payload, got)
}

func TestReadMessageRejectsOversizedFrame(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() { done <- writeMessage(client, make([]byte, 128), time.Second) }()

	_, err := readMessage(server, 64, time.Second, time.Second)
	assert.Error(t, err)
	<-done
}

func TestReadMessageAppliesSeparateBodyReadTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		_, writeErr := client.Write([]byte{0x00, 0x00, 0x00, 0x10})
		done <- writeErr
	}()

	_, err := readMessage(server, DefaultMaxMessageSize, time.Second, 10*time.Millisecond)
	assert.Error(t, err)
	<-done
}

func TestReadMessageRejectsZeroLengthFrame(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		_, writeErr := client.Write([]byte{0x00, 0x00, 0x00, 0x00})
		done <- writeErr
	}()

	_, err := readMessage(server, DefaultMaxMessageSize, time.Second, time.Second)
	assert.Error(t, err)
	<-done
}
