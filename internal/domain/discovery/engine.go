// Package discovery locates bridges on the local network.
//
// Two strategies are available. The local probe multicasts an SSDP search
// and reads the LOCATION header of every answer; the remote lookup asks a
// public service which bridges registered from this network. Results from
// both are merged by address and handed out as a lazy, single-use sequence.
// Discovery never ranks candidates: choosing a bridge is the caller's job.
package discovery

import (
	"context"
	"errors"
	"hue-bridge-client/internal/domain/model"
	"hue-bridge-client/internal/ports"
	"iter"
	"os"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Strategy int

const (
	StrategyLocal Strategy = 1 << iota
	StrategyRemote

	StrategyBoth = StrategyLocal | StrategyRemote
)

func (s Strategy) has(other Strategy) bool { return s&other != 0 }

const (
	defaultMX = 3
	// sendTimeout bounds the search datagram write on its own, so a short
	// discovery window never turns into a send failure.
	sendTimeout = time.Second
)

type Engine struct {
	datagrams    ports.DatagramTransport
	http         ports.HTTPDoer
	strategy     Strategy
	remoteURL    string
	quiet        time.Duration
	mx           int
	descriptions bool
	logger       zerolog.Logger
}

type Option func(*Engine)

func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

func WithRemoteURL(u string) Option {
	return func(e *Engine) { e.remoteURL = u }
}

// WithQuietInterval ends the local probe early once no reply has arrived for d.
func WithQuietInterval(d time.Duration) Option {
	return func(e *Engine) { e.quiet = d }
}

func WithMX(seconds int) Option {
	return func(e *Engine) { e.mx = seconds }
}

// WithDescriptions makes the local probe fetch each bridge's description
// document to fill in its friendly name and model.
func WithDescriptions(enabled bool) Option {
	return func(e *Engine) { e.descriptions = enabled }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(datagrams ports.DatagramTransport, doer ports.HTTPDoer, opts ...Option) *Engine {
	e := &Engine{
		datagrams: datagrams,
		http:      doer,
		strategy:  StrategyBoth,
		remoteURL: DefaultRemoteURL,
		mx:        defaultMX,
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.datagrams == nil {
		e.strategy &^= StrategyLocal
	}
	if e.http == nil {
		e.strategy &^= StrategyRemote
		e.descriptions = false
	}
	e.logger = e.logger.With().Str("component", "discovery").Logger()
	return e
}

// Results is the outcome of one Discover call. It must be iterated to the
// end or closed; it cannot be iterated twice.
type Results struct {
	out  <-chan model.BridgeDescriptor
	stop context.CancelFunc
	used atomic.Bool
}

// All yields each discovered bridge once. Iteration ends when the discovery
// window closes. A second call yields nothing.
func (r *Results) All() iter.Seq[model.BridgeDescriptor] {
	return func(yield func(model.BridgeDescriptor) bool) {
		if !r.used.CompareAndSwap(false, true) {
			return
		}
		defer r.stop()
		for d := range r.out {
			if !yield(d) {
				return
			}
		}
	}
}

// Collect drains the sequence.
func (r *Results) Collect() []model.BridgeDescriptor {
	found := slices.Collect(r.All())
	if found == nil {
		found = []model.BridgeDescriptor{}
	}
	return found
}

// Close abandons a sequence that will not be iterated.
func (r *Results) Close() {
	r.used.Store(true)
	r.stop()
}

// Discover searches for bridges for at most timeout. It fails only when no
// strategy can run at all, with a DiscoveryError of kind NoTransport; an
// empty result is not an error.
func (e *Engine) Discover(ctx context.Context, timeout time.Duration) (*Results, error) {
	if e.strategy == 0 {
		return nil, &model.DiscoveryError{Kind: model.DiscoveryNoTransport, Err: errors.New("no discovery strategy available")}
	}
	if timeout <= 0 {
		out := make(chan model.BridgeDescriptor)
		close(out)
		return &Results{out: out, stop: func() {}}, nil
	}

	consumerCtx, stop := context.WithCancel(ctx)
	searchCtx, cancelSearch := context.WithTimeout(consumerCtx, timeout)

	strategy := e.strategy
	var conn ports.DatagramConn
	if strategy.has(StrategyLocal) {
		var err error
		conn, err = e.openProbe(consumerCtx, timeout)
		if err != nil {
			if !strategy.has(StrategyRemote) {
				cancelSearch()
				stop()
				return nil, &model.DiscoveryError{Kind: model.DiscoveryNoTransport, Err: err}
			}
			e.logger.Warn().Err(err).Msg("Local probe unavailable, using remote lookup only")
			strategy &^= StrategyLocal
		}
	}
	if strategy == 0 {
		cancelSearch()
		stop()
		return nil, &model.DiscoveryError{Kind: model.DiscoveryNoTransport, Err: errors.New("no discovery strategy available")}
	}

	local := make(chan model.BridgeDescriptor)
	remote := make(chan []model.BridgeDescriptor, 1)
	out := make(chan model.BridgeDescriptor)

	g, gctx := errgroup.WithContext(searchCtx)
	if conn != nil {
		g.Go(func() error {
			defer close(local)
			e.probe(gctx, conn, local)
			return nil
		})
	} else {
		close(local)
	}
	if strategy.has(StrategyRemote) {
		g.Go(func() error {
			found, err := e.lookupRemote(gctx)
			if err != nil {
				e.logger.Warn().Err(err).Msg("Remote bridge lookup failed")
			}
			remote <- found
			return nil
		})
	} else {
		remote <- nil
	}

	go func() {
		defer close(out)
		defer stop()
		defer cancelSearch()
		n := merge(consumerCtx, local, remote, out)
		_ = g.Wait()
		e.logger.Debug().Int("bridges", n).Msg("Discovery finished")
	}()

	return &Results{out: out, stop: stop}, nil
}

func (e *Engine) openProbe(ctx context.Context, timeout time.Duration) (ports.DatagramConn, error) {
	conn, err := e.datagrams.Open(ctx)
	if err != nil {
		return nil, err
	}
	mx := e.mx
	if secs := int(timeout / time.Second); secs < mx {
		mx = max(secs, 1)
	}
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := conn.Send(sendCtx, SearchMessage(mx), MulticastAddr); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// probe reads replies until the context ends or the quiet interval passes
// without any datagram.
func (e *Engine) probe(ctx context.Context, conn ports.DatagramConn, out chan<- model.BridgeDescriptor) {
	defer conn.Close()
	stopClose := context.AfterFunc(ctx, func() { conn.Close() })
	defer stopClose()

	end, _ := ctx.Deadline()
	seen := make(map[string]bool)
	last := time.Now()
	for {
		deadline := end
		if e.quiet > 0 && last.Add(e.quiet).Before(deadline) {
			deadline = last.Add(e.quiet)
		}
		payload, from, err := conn.Receive(deadline)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, os.ErrDeadlineExceeded) {
				e.logger.Debug().Err(err).Msg("Discovery socket closed")
			}
			return
		}
		last = time.Now()

		reply, err := ParseReply(payload)
		if errors.Is(err, errNotBridge) {
			e.logger.Trace().Str("from", from).Msg("Ignoring non-bridge SSDP reply")
			continue
		}
		if err != nil {
			e.logger.Debug().Err(err).Str("from", from).Msg("Skipping malformed discovery reply")
			continue
		}
		if seen[reply.Address] {
			continue
		}
		seen[reply.Address] = true

		d := model.BridgeDescriptor{
			Address: reply.Address,
			ID:      reply.BridgeID,
			Sources: []model.Source{model.SourceLocal},
		}
		if e.descriptions {
			d = e.describe(ctx, d, reply.Location)
		}
		select {
		case out <- d:
		case <-ctx.Done():
			return
		}
	}
}

// merge forwards local sightings to out, combining each with the remote
// entry of the same address. Local sightings that arrive before the remote
// lookup finishes are held back so they can still be combined. Remote-only
// entries follow once the local probe is done. It returns how many
// descriptors were delivered.
func merge(ctx context.Context, local <-chan model.BridgeDescriptor, remote <-chan []model.BridgeDescriptor, out chan<- model.BridgeDescriptor) int {
	pending := make(map[string]model.BridgeDescriptor)
	emitted := make(map[string]bool)
	var held []model.BridgeDescriptor
	remoteDone := false
	n := 0

	emit := func(d model.BridgeDescriptor) bool {
		if emitted[d.Address] {
			return true
		}
		emitted[d.Address] = true
		select {
		case out <- d:
			n++
			return true
		case <-ctx.Done():
			return false
		}
	}
	combine := func(d model.BridgeDescriptor) model.BridgeDescriptor {
		r, ok := pending[d.Address]
		if !ok {
			return d
		}
		delete(pending, d.Address)
		if d.ID == "" {
			d.ID = r.ID
		}
		d.Sources = []model.Source{model.SourceLocal, model.SourceRemote}
		return d
	}

	for local != nil || !remoteDone {
		select {
		case d, ok := <-local:
			if !ok {
				local = nil
				continue
			}
			if !remoteDone {
				held = append(held, d)
				continue
			}
			if !emit(combine(d)) {
				return n
			}
		case found := <-remote:
			remoteDone = true
			for _, r := range found {
				if _, dup := pending[r.Address]; !dup {
					pending[r.Address] = r
				}
			}
			for _, d := range held {
				if !emit(combine(d)) {
					return n
				}
			}
			held = nil
		case <-ctx.Done():
			return n
		}
	}

	rest := make([]string, 0, len(pending))
	for addr := range pending {
		rest = append(rest, addr)
	}
	sort.Strings(rest)
	for _, addr := range rest {
		if !emit(pending[addr]) {
			return n
		}
	}
	return n
}
