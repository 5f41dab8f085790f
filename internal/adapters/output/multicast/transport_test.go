package multicast

import (
	"context"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_SendReceive(t *testing.T) {
	responder, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer responder.Close()

	go func() {
		buf := make([]byte, 512)
		n, from, err := responder.ReadFrom(buf)
		if err != nil {
			return
		}
		responder.WriteTo(append([]byte("echo "), buf[:n]...), from)
	}()

	tr := NewTransport()
	c, err := tr.Open(context.Background())
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Send(ctx, []byte("M-SEARCH"), responder.LocalAddr().String()))

	payload, from, err := c.Receive(time.Now().Add(2 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, "echo M-SEARCH", string(payload))
	assert.Equal(t, responder.LocalAddr().String(), from)
}

func TestTransport_ReceiveDeadline(t *testing.T) {
	c, err := NewTransport().Open(context.Background())
	require.NoError(t, err)
	defer c.Close()

	_, _, err = c.Receive(time.Now().Add(20 * time.Millisecond))
	assert.True(t, errors.Is(err, os.ErrDeadlineExceeded), "got %v", err)
}

func TestTransport_ReceiveAfterClose(t *testing.T) {
	c, err := NewTransport().Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, _, err = c.Receive(time.Now().Add(time.Second))
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestTransport_UnknownInterface(t *testing.T) {
	tr := NewTransport()
	tr.Interface = "does-not-exist0"
	_, err := tr.Open(context.Background())
	assert.Error(t, err)
}
