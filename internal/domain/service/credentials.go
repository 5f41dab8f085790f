package service

import (
	"context"
	"errors"
	"fmt"
	"hue-bridge-client/internal/domain/model"
	"hue-bridge-client/internal/ports"
)

var (
	ErrNoPairedBridge  = errors.New("no paired bridge")
	ErrAmbiguousBridge = errors.New("several paired bridges, choose one")
)

// CredentialService remembers which bridges have been paired and with which
// credential.
type CredentialService struct {
	repo ports.CredentialRepository
}

func NewCredentialService(repo ports.CredentialRepository) *CredentialService {
	return &CredentialService{repo: repo}
}

func (s *CredentialService) Remember(ctx context.Context, bridge model.BridgeDescriptor, cred model.Credential) error {
	if cred.IsZero() {
		return errors.New("refusing to store an empty credential")
	}
	return s.repo.Save(ctx, &ports.PairedBridge{Bridge: bridge, Credential: cred})
}

// Lookup finds a paired bridge by key or address. An empty selector returns
// the only paired bridge, if there is exactly one.
func (s *CredentialService) Lookup(ctx context.Context, selector string) (*ports.PairedBridge, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if selector == "" {
		switch len(all) {
		case 0:
			return nil, ErrNoPairedBridge
		case 1:
			return all[0], nil
		default:
			return nil, ErrAmbiguousBridge
		}
	}
	for _, p := range all {
		if p.Bridge.Key() == selector || p.Bridge.Address == selector || p.Bridge.ID == selector {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoPairedBridge, selector)
}

func (s *CredentialService) List(ctx context.Context) ([]*ports.PairedBridge, error) {
	return s.repo.List(ctx)
}

func (s *CredentialService) Forget(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}
