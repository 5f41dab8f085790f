package model

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is against these; use errors.As with the
// structured types below to read codes and descriptions.
var (
	ErrNoTransport = errors.New("discovery: transport unavailable")

	ErrPairingRejected = errors.New("pairing: rejected")
	ErrPairingTimeout  = errors.New("pairing: timed out waiting for link button")

	ErrNotFound           = errors.New("bridge: resource not found")
	ErrUnauthorized       = errors.New("bridge: unauthorized user")
	ErrBadRequest         = errors.New("bridge: bad request")
	ErrInternal           = errors.New("bridge: internal error")
	ErrMethodNotSupported = errors.New("bridge: method not supported for resource")
	ErrLinkButton         = errors.New("bridge: link button not pressed")
	ErrUnclassified       = errors.New("bridge: unclassified error")

	ErrTransport = errors.New("transport failure")
)

type DiscoveryErrorKind int

const (
	DiscoveryNoTransport DiscoveryErrorKind = iota
)

// DiscoveryError is returned when discovery cannot run at all. Finding no
// bridge is not an error.
type DiscoveryError struct {
	Kind DiscoveryErrorKind
	Err  error
}

func (e *DiscoveryError) Error() string {
	if e.Err == nil {
		return ErrNoTransport.Error()
	}
	return fmt.Sprintf("%s: %v", ErrNoTransport, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

func (e *DiscoveryError) Is(target error) bool {
	return target == ErrNoTransport && e.Kind == DiscoveryNoTransport
}

type PairingErrorKind int

const (
	PairingRejected PairingErrorKind = iota
	PairingTimeout
)

// PairingError ends a pairing session in the Failed state.
type PairingError struct {
	Kind   PairingErrorKind
	Reason string
	Err    error
}

func (e *PairingError) Error() string {
	base := ErrPairingRejected
	if e.Kind == PairingTimeout {
		base = ErrPairingTimeout
	}
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", base, e.Reason, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", base, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", base, e.Err)
	}
	return base.Error()
}

func (e *PairingError) Unwrap() error { return e.Err }

func (e *PairingError) Is(target error) bool {
	switch target {
	case ErrPairingRejected:
		return e.Kind == PairingRejected
	case ErrPairingTimeout:
		return e.Kind == PairingTimeout
	}
	return false
}

// ErrorKind classifies bridge-reported errors. The set is open: codes this
// package does not know map to KindUnclassified with the raw code kept.
type ErrorKind int

const (
	KindUnclassified ErrorKind = iota
	KindNotFound
	KindUnauthorized
	KindBadRequest
	KindInternal
	KindMethodNotSupported
	KindLinkButtonNotPressed
)

var kindSentinels = map[ErrorKind]error{
	KindUnclassified:         ErrUnclassified,
	KindNotFound:             ErrNotFound,
	KindUnauthorized:         ErrUnauthorized,
	KindBadRequest:           ErrBadRequest,
	KindInternal:             ErrInternal,
	KindMethodNotSupported:   ErrMethodNotSupported,
	KindLinkButtonNotPressed: ErrLinkButton,
}

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindBadRequest:
		return "bad_request"
	case KindInternal:
		return "internal"
	case KindMethodNotSupported:
		return "method_not_supported"
	case KindLinkButtonNotPressed:
		return "link_button_not_pressed"
	}
	return "unclassified"
}

// BridgeError is an error reported by the bridge, or a response the codec
// could not make sense of. Code is the bridge error type (0 when the bridge
// sent none); Status and Raw are filled for protocol-level failures.
type BridgeError struct {
	Kind        ErrorKind
	Code        int
	Address     string
	Description string
	Status      int
	Raw         string
}

func (e *BridgeError) Error() string {
	msg := kindSentinels[e.Kind].Error()
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (type %d)", msg, e.Code)
	}
	if e.Address != "" {
		msg += " at " + e.Address
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s [http %d]", msg, e.Status)
	}
	return msg
}

func (e *BridgeError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// TransportError wraps a failure of the underlying HTTP or datagram exchange.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
