package bridgetest

import (
	"context"
	"fmt"
	"hue-bridge-client/internal/ports"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// SSDPReply is the answer a bridge gives to an M-SEARCH, pointing at its
// description document.
func (b *Bridge) SSDPReply() []byte {
	return []byte(fmt.Sprintf("HTTP/1.1 200 OK\r\n"+
		"HOST: 239.255.255.250:1900\r\n"+
		"EXT:\r\n"+
		"CACHE-CONTROL: max-age=100\r\n"+
		"LOCATION: %s/description.xml\r\n"+
		"SERVER: Hue/1.0 UPnP/1.0 IpBridge/1.60.0\r\n"+
		"hue-bridgeid: %s\r\n"+
		"ST: upnp:rootdevice\r\n"+
		"USN: uuid:2f402f80-da50-11e1-9b23-001788102201::upnp:rootdevice\r\n\r\n", b.server.URL, b.ID))
}

// Datagrams is an in-memory ports.DatagramTransport. Every M-SEARCH sent on
// a connection it opened is answered with Replies, in order.
type Datagrams struct {
	Replies [][]byte
	OpenErr error
	SendErr error

	mu       sync.Mutex
	searches []string
}

var _ ports.DatagramTransport = (*Datagrams)(nil)

func (d *Datagrams) Open(ctx context.Context) (ports.DatagramConn, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	return &conn{owner: d, inbox: make(chan []byte, len(d.Replies)+1), closed: make(chan struct{})}, nil
}

// Searches returns the search datagrams sent so far.
func (d *Datagrams) Searches() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.searches...)
}

type conn struct {
	owner     *Datagrams
	inbox     chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func (c *conn) Send(ctx context.Context, payload []byte, dest string) error {
	if c.owner.SendErr != nil {
		return c.owner.SendErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := string(payload)
	c.owner.mu.Lock()
	c.owner.searches = append(c.owner.searches, msg)
	c.owner.mu.Unlock()

	if strings.Contains(msg, "M-SEARCH") {
		for _, r := range c.owner.Replies {
			c.inbox <- r
		}
	}
	return nil
}

func (c *conn) Receive(deadline time.Time) ([]byte, string, error) {
	select {
	case <-c.closed:
		return nil, "", net.ErrClosed
	default:
	}
	select {
	case p := <-c.inbox:
		return p, "127.0.0.1:1900", nil
	default:
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case p := <-c.inbox:
		return p, "127.0.0.1:1900", nil
	case <-timer.C:
		return nil, "", os.ErrDeadlineExceeded
	case <-c.closed:
		return nil, "", net.ErrClosed
	}
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}
