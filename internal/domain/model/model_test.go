package model

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptional(t *testing.T) {
	var unset Optional[uint8]
	assert.False(t, unset.IsSet())
	assert.Nil(t, unset.Ptr())
	assert.Equal(t, uint8(7), unset.OrElse(7))
	assert.Equal(t, "-", unset.String())

	zero := Some(uint8(0))
	assert.True(t, zero.IsSet())
	v, ok := zero.Get()
	assert.True(t, ok)
	assert.Equal(t, uint8(0), v)
	assert.Equal(t, uint8(0), *zero.Ptr())

	var p *uint16
	assert.False(t, FromPtr(p).IsSet())
	n := uint16(366)
	assert.Equal(t, Some(uint16(366)), FromPtr(&n))
}

func TestBridgeDescriptor(t *testing.T) {
	d := BridgeDescriptor{Address: "192.168.1.2"}
	assert.Equal(t, "192.168.1.2", d.Key())
	assert.Equal(t, "http://192.168.1.2/", d.BaseURL())
	assert.False(t, d.Confirmed())

	d.ID = "001788FFFE102201"
	d.Sources = []Source{SourceLocal, SourceRemote}
	assert.Equal(t, "001788fffe102201", d.Key())
	assert.True(t, d.Confirmed())

	assert.Equal(t, "http://127.0.0.1:8080/", BaseURL("http://127.0.0.1:8080"))
}

func TestStateUpdate_IsEmpty(t *testing.T) {
	assert.True(t, StateUpdate{}.IsEmpty())
	assert.False(t, StateUpdate{Alert: Some("select")}.IsEmpty())
}

func TestBridgeError(t *testing.T) {
	err := fmt.Errorf("get light: %w", &BridgeError{Kind: KindNotFound, Code: 3, Address: "/lights/9", Description: "not available"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "type 3")

	var be *BridgeError
	assert.True(t, errors.As(err, &be))
	assert.Equal(t, "/lights/9", be.Address)
	assert.Equal(t, "not_found", be.Kind.String())
}

func TestPairingError(t *testing.T) {
	timeout := &PairingError{Kind: PairingTimeout}
	assert.ErrorIs(t, timeout, ErrPairingTimeout)
	assert.NotErrorIs(t, timeout, ErrPairingRejected)

	abandoned := &PairingError{Kind: PairingRejected, Reason: "abandoned", Err: context.Canceled}
	assert.ErrorIs(t, abandoned, ErrPairingRejected)
	assert.ErrorIs(t, abandoned, context.Canceled)
	assert.Contains(t, abandoned.Error(), "abandoned")
}

func TestDiscoveryAndTransportErrors(t *testing.T) {
	cause := errors.New("bind: address in use")
	de := &DiscoveryError{Kind: DiscoveryNoTransport, Err: cause}
	assert.ErrorIs(t, de, ErrNoTransport)
	assert.ErrorIs(t, de, cause)

	te := &TransportError{Op: "GET", URL: "http://x/api", Err: cause}
	assert.ErrorIs(t, te, ErrTransport)
	assert.ErrorIs(t, te, cause)
	assert.Contains(t, te.Error(), "GET http://x/api")
}
