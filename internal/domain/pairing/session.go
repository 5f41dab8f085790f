// Package pairing obtains a credential from a bridge through the link button
// flow.
//
// A Session POSTs a registration request and, while the bridge answers
// "link button not pressed", keeps polling at a fixed interval until the
// button is pressed or the caller's budget runs out. Each session is
// single-use.
package pairing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hue-bridge-client/internal/domain/codec"
	"hue-bridge-client/internal/domain/model"
	"hue-bridge-client/internal/ports"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxDeviceNameLength is the longest devicetype a bridge accepts.
const MaxDeviceNameLength = 40

// MinPollInterval is the shortest wait between registration attempts.
const MinPollInterval = 100 * time.Millisecond

var ErrSessionUsed = errors.New("pairing: session already used")

type State int

const (
	StateUnauthenticated State = iota
	StateAwaitingLinkButton
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingLinkButton:
		return "awaiting_link_button"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	}
	return "unauthenticated"
}

type Session struct {
	bridge model.BridgeDescriptor
	http   ports.HTTPDoer
	clock  ports.Clock
	logger zerolog.Logger

	mu    sync.Mutex
	state State
	used  bool
}

var _ ports.CredentialRequester = (*Session)(nil)

type Option func(*Session)

func WithClock(c ports.Clock) Option {
	return func(s *Session) { s.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func NewSession(bridge model.BridgeDescriptor, doer ports.HTTPDoer, opts ...Option) *Session {
	s := &Session{
		bridge: bridge,
		http:   doer,
		clock:  systemClock{},
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "pairing").Str("bridge", bridge.Address).Logger()
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// RequestCredential registers deviceName with the bridge. While the link
// button has not been pressed it retries every pollInterval until maxWait has
// elapsed, then fails with a PairingError of kind PairingTimeout. Any other
// bridge error fails immediately with kind PairingRejected. Poll intervals
// below MinPollInterval are raised to it.
func (s *Session) RequestCredential(ctx context.Context, deviceName string, pollInterval, maxWait time.Duration) (model.Credential, error) {
	s.mu.Lock()
	if s.used {
		s.mu.Unlock()
		return model.Credential{}, ErrSessionUsed
	}
	s.used = true
	s.mu.Unlock()

	if err := validateDeviceName(deviceName); err != nil {
		return s.fail(&model.PairingError{Kind: model.PairingRejected, Reason: "invalid device name", Err: err})
	}
	body, err := codec.EncodeRegistration(deviceName)
	if err != nil {
		return s.fail(&model.PairingError{Kind: model.PairingRejected, Reason: "encode request", Err: err})
	}

	pollInterval = max(pollInterval, MinPollInterval)
	deadline := s.clock.Now().Add(maxWait)
	var lastErr error
	for attempt := 1; ; attempt++ {
		cred, err := s.register(ctx, body)
		if err == nil {
			s.setState(StateAuthenticated)
			s.logger.Info().Int("attempts", attempt).Msg("Paired with bridge")
			return cred, nil
		}

		var te *model.TransportError
		switch {
		case errors.Is(err, model.ErrLinkButton):
			s.setState(StateAwaitingLinkButton)
			lastErr = nil
			s.logger.Debug().Int("attempt", attempt).Msg("Waiting for link button")
		case errors.As(err, &te):
			if ctx.Err() != nil {
				return s.abandon(ctx)
			}
			lastErr = err
			s.logger.Debug().Err(err).Int("attempt", attempt).Msg("Registration request failed, retrying")
		default:
			return s.fail(&model.PairingError{Kind: model.PairingRejected, Reason: describe(err), Err: err})
		}

		remaining := deadline.Sub(s.clock.Now())
		if remaining <= 0 {
			return s.fail(&model.PairingError{Kind: model.PairingTimeout, Reason: fmt.Sprintf("after %s", maxWait), Err: lastErr})
		}
		if err := s.clock.Sleep(ctx, min(pollInterval, remaining)); err != nil {
			return s.abandon(ctx)
		}
	}
}

func (s *Session) register(ctx context.Context, body []byte) (model.Credential, error) {
	url := codec.RegisterURL(s.bridge.BaseURL())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return model.Credential{}, &model.TransportError{Op: http.MethodPost, URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return model.Credential{}, &model.TransportError{Op: http.MethodPost, URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Credential{}, &model.TransportError{Op: http.MethodPost, URL: url, Err: err}
	}
	return codec.DecodeRegistration(resp.StatusCode, data)
}

func (s *Session) fail(err *model.PairingError) (model.Credential, error) {
	s.setState(StateFailed)
	s.logger.Warn().Err(err).Msg("Pairing failed")
	return model.Credential{}, err
}

func (s *Session) abandon(ctx context.Context) (model.Credential, error) {
	return s.fail(&model.PairingError{Kind: model.PairingRejected, Reason: "abandoned", Err: context.Cause(ctx)})
}

func describe(err error) string {
	var be *model.BridgeError
	if errors.As(err, &be) && be.Description != "" {
		return be.Description
	}
	return "bridge rejected registration"
}

func validateDeviceName(name string) error {
	if name == "" {
		return errors.New("device name is empty")
	}
	if len(name) > MaxDeviceNameLength {
		return fmt.Errorf("device name is %d characters, limit is %d", len(name), MaxDeviceNameLength)
	}
	return nil
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
