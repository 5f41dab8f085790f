package ports

import (
	"context"
	"net/http"
	"time"
)

// HTTPDoer sends one HTTP request and returns its response. *http.Client
// satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DatagramTransport opens datagram sockets for the discovery probe.
type DatagramTransport interface {
	Open(ctx context.Context) (DatagramConn, error)
}

type DatagramConn interface {
	Send(ctx context.Context, payload []byte, dest string) error
	// Receive blocks until a datagram arrives or the deadline passes. On
	// deadline it returns an error matching os.ErrDeadlineExceeded.
	Receive(deadline time.Time) (payload []byte, from string, err error)
	Close() error
}

// Clock abstracts time for the pairing poll loop.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}
