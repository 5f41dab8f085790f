package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"hue-bridge-client/internal/domain/model"
	"hue-bridge-client/internal/ports"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// JSONCredentialRepository keeps paired bridges in one JSON file, keyed by
// bridge id (or address when the id is unknown).
type JSONCredentialRepository struct {
	filepath string
	mu       sync.RWMutex
}

var _ ports.CredentialRepository = (*JSONCredentialRepository)(nil)

type credentialFile struct {
	Bridges map[string]*ports.PairedBridge `json:"bridges"`
}

// Files written before multi-bridge support held a single pairing.
type legacyCredentialFile struct {
	Address  string `json:"bridge_address"`
	BridgeID string `json:"bridge_id"`
	Username string `json:"username"`
}

func NewJSONCredentialRepository(filepath string) *JSONCredentialRepository {
	return &JSONCredentialRepository{filepath: filepath}
}

func (r *JSONCredentialRepository) Get(ctx context.Context, key string) (*ports.PairedBridge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, err := r.load()
	if err != nil {
		return nil, err
	}
	p, ok := f.Bridges[strings.ToLower(key)]
	if !ok {
		return nil, nil
	}
	return p, nil
}

// List returns the paired bridges ordered by key.
func (r *JSONCredentialRepository) List(ctx context.Context) ([]*ports.PairedBridge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, err := r.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(f.Bridges))
	for k := range f.Bridges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*ports.PairedBridge, 0, len(keys))
	for _, k := range keys {
		out = append(out, f.Bridges[k])
	}
	return out, nil
}

// Save stores paired, replacing any earlier pairing with the same key.
func (r *JSONCredentialRepository) Save(ctx context.Context, paired *ports.PairedBridge) error {
	if paired == nil || paired.Credential.IsZero() {
		return errors.New("persistence: nothing to save")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.load()
	if err != nil {
		return err
	}
	f.Bridges[paired.Bridge.Key()] = paired
	return r.write(f)
}

func (r *JSONCredentialRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.load()
	if err != nil {
		return err
	}
	key = strings.ToLower(key)
	if _, ok := f.Bridges[key]; !ok {
		return nil
	}
	delete(f.Bridges, key)
	return r.write(f)
}

func (r *JSONCredentialRepository) load() (*credentialFile, error) {
	data, err := os.ReadFile(r.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return &credentialFile{Bridges: map[string]*ports.PairedBridge{}}, nil
		}
		return nil, err
	}

	var f credentialFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Bridges) == 0 {
		return r.migrate(data), nil
	}
	return &f, nil
}

func (r *JSONCredentialRepository) migrate(data []byte) *credentialFile {
	f := &credentialFile{Bridges: map[string]*ports.PairedBridge{}}
	var legacy legacyCredentialFile
	if err := json.Unmarshal(data, &legacy); err != nil {
		return f
	}
	if legacy.Address == "" || legacy.Username == "" {
		return f
	}
	p := &ports.PairedBridge{
		Bridge:     model.BridgeDescriptor{Address: legacy.Address, ID: legacy.BridgeID},
		Credential: model.Credential{Username: legacy.Username},
	}
	f.Bridges[p.Bridge.Key()] = p
	return f
}

func (r *JSONCredentialRepository) write(f *credentialFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(r.filepath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	// Usernames are bearer credentials.
	return os.WriteFile(r.filepath, data, 0o600)
}
