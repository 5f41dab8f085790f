package multicast

import (
	"context"
	"fmt"
	"hue-bridge-client/internal/ports"
	"net"
	"time"

	"golang.org/x/net/ipv4"
)

const maxDatagram = 2048

// Transport opens UDP sockets able to send SSDP searches to the multicast
// group and receive the unicast answers.
type Transport struct {
	// Interface names the network interface for outgoing multicast. Empty
	// leaves the choice to the system.
	Interface string
	// TTL of outgoing multicast datagrams.
	TTL int
	// Loopback delivers our own datagrams back to local listeners.
	Loopback bool
	// Bind is the local address, ":0" when empty.
	Bind string
}

var _ ports.DatagramTransport = (*Transport)(nil)

func NewTransport() *Transport {
	return &Transport{TTL: 2}
}

func (t *Transport) Open(ctx context.Context) (ports.DatagramConn, error) {
	bind := t.Bind
	if bind == "" {
		bind = ":0"
	}
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp4", bind)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}

	p := ipv4.NewPacketConn(pc)
	if t.TTL > 0 {
		if err := p.SetMulticastTTL(t.TTL); err != nil {
			pc.Close()
			return nil, fmt.Errorf("set multicast ttl: %w", err)
		}
	}
	if err := p.SetMulticastLoopback(t.Loopback); err != nil {
		pc.Close()
		return nil, fmt.Errorf("set multicast loopback: %w", err)
	}
	if t.Interface != "" {
		ifi, err := net.InterfaceByName(t.Interface)
		if err != nil {
			pc.Close()
			return nil, err
		}
		if err := p.SetMulticastInterface(ifi); err != nil {
			pc.Close()
			return nil, fmt.Errorf("set multicast interface: %w", err)
		}
	}
	return &conn{pc: pc}, nil
}

type conn struct {
	pc net.PacketConn
}

func (c *conn) Send(ctx context.Context, payload []byte, dest string) error {
	addr, err := net.ResolveUDPAddr("udp4", dest)
	if err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	if err := c.pc.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err = c.pc.WriteTo(payload, addr)
	return err
}

func (c *conn) Receive(deadline time.Time) ([]byte, string, error) {
	if err := c.pc.SetReadDeadline(deadline); err != nil {
		return nil, "", err
	}
	buf := make([]byte, maxDatagram)
	n, from, err := c.pc.ReadFrom(buf)
	if err != nil {
		return nil, "", err
	}
	return buf[:n], from.String(), nil
}

func (c *conn) LocalAddr() net.Addr { return c.pc.LocalAddr() }

func (c *conn) Close() error { return c.pc.Close() }
