package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"hue-bridge-client/internal/domain/model"
	"hue-bridge-client/internal/ports"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Get(ctx context.Context, key string) (*ports.PairedBridge, error) {
	args := m.Called(ctx, key)
	p, _ := args.Get(0).(*ports.PairedBridge)
	return p, args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]*ports.PairedBridge, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*ports.PairedBridge), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, paired *ports.PairedBridge) error {
	return m.Called(ctx, paired).Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func TestCredentialService_Remember(t *testing.T) {
	repo := new(MockRepository)
	bridge := model.BridgeDescriptor{Address: "192.168.1.2", ID: "001788FFFE102201"}
	cred := model.Credential{Username: "abc"}
	repo.On("Save", mock.Anything, &ports.PairedBridge{Bridge: bridge, Credential: cred}).Return(nil)

	s := NewCredentialService(repo)
	require.NoError(t, s.Remember(context.Background(), bridge, cred))
	assert.Error(t, s.Remember(context.Background(), bridge, model.Credential{}))
	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestCredentialService_Lookup(t *testing.T) {
	a := &ports.PairedBridge{Bridge: model.BridgeDescriptor{Address: "192.168.1.2", ID: "001788FFFE102201"}, Credential: model.Credential{Username: "a"}}
	b := &ports.PairedBridge{Bridge: model.BridgeDescriptor{Address: "192.168.1.3"}, Credential: model.Credential{Username: "b"}}

	repo := new(MockRepository)
	repo.On("List", mock.Anything).Return([]*ports.PairedBridge{a, b}, nil)
	s := NewCredentialService(repo)

	_, err := s.Lookup(context.Background(), "")
	assert.ErrorIs(t, err, ErrAmbiguousBridge)

	got, err := s.Lookup(context.Background(), "001788fffe102201")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Credential.Username)

	got, err = s.Lookup(context.Background(), "192.168.1.3")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Credential.Username)

	_, err = s.Lookup(context.Background(), "10.0.0.1")
	assert.ErrorIs(t, err, ErrNoPairedBridge)
}

func TestCredentialService_LookupSingleAndEmpty(t *testing.T) {
	only := &ports.PairedBridge{Bridge: model.BridgeDescriptor{Address: "192.168.1.2"}, Credential: model.Credential{Username: "a"}}

	repo := new(MockRepository)
	repo.On("List", mock.Anything).Return([]*ports.PairedBridge{only}, nil).Once()
	repo.On("List", mock.Anything).Return([]*ports.PairedBridge{}, nil).Once()
	s := NewCredentialService(repo)

	got, err := s.Lookup(context.Background(), "")
	require.NoError(t, err)
	assert.Same(t, only, got)

	_, err = s.Lookup(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoPairedBridge)
}
