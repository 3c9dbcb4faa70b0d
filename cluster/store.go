package cluster

import (
	"errors"
	"os"
	"sync"

	cbor "github.com/fxamacker/cbor/v2"

	"github.com/unkn0wn-root/confwire"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	em, _ := cbor.CanonicalEncOptions().EncMode()
	dm, _ := (cbor.DecOptions{}).DecMode()
	cborEnc, cborDec = em, dm
}

// Store holds the live transient and persistent scopes on the receiving
// side. Scopes never merge here; precedence between them belongs to
// whoever assembles the effective configuration.
type Store struct {
	mu         sync.RWMutex
	transient  map[string]string
	persistent map[string]string

	path       string // "" = in-memory only
	persistDig uint64 // digest of the last persisted state
}

type storeFile struct {
	Persistent map[string]string `cbor:"p"`
}

// OpenStore loads the persistent scope from path when the file exists.
// The transient scope always starts empty. An empty path keeps the store
// in memory only.
func OpenStore(path string) (*Store, error) {
	st := &Store{
		transient:  make(map[string]string),
		persistent: make(map[string]string),
		path:       path,
	}
	if path == "" {
		return st, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		st.persistDig = confwire.FromMap(st.persistent).Digest()
		return st, nil
	}
	if err != nil {
		return nil, err
	}
	var f storeFile
	if err := cborDec.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if f.Persistent != nil {
		st.persistent = f.Persistent
	}
	st.persistDig = confwire.FromMap(st.persistent).Digest()
	return st, nil
}

// Apply merges req into the live scopes: removals first, then puts, per
// scope. A key listed in both an overlay and the same-scope removal set
// therefore ends up set. The persistent scope is flushed to disk when it
// changed.
func (s *Store) Apply(req *SettingsUpdateRequest) (*SettingsUpdateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applyScope(s.transient, req.TransientSettingsToRemove(), req.TransientSettings())
	applyScope(s.persistent, req.PersistentSettingsToRemove(), req.PersistentSettings())

	if err := s.flushLocked(); err != nil {
		return nil, err
	}
	return &SettingsUpdateResponse{
		Acknowledged: true,
		Persistent:   confwire.FromMap(s.persistent),
		Transient:    confwire.FromMap(s.transient),
	}, nil
}

func applyScope(live map[string]string, remove map[string]struct{}, overlay *confwire.Settings) {
	for name := range remove {
		delete(live, name)
	}
	for k, v := range overlay.AsMap() {
		live[k] = v
	}
}

// TransientSettings returns a snapshot of the transient scope.
func (s *Store) TransientSettings() *confwire.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return confwire.FromMap(s.transient)
}

// PersistentSettings returns a snapshot of the persistent scope.
func (s *Store) PersistentSettings() *confwire.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return confwire.FromMap(s.persistent)
}

// flushLocked writes the persistent scope to disk unless it is unchanged
// since the last flush. Write-then-rename keeps the file whole under crash.
func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}
	snap := confwire.FromMap(s.persistent)
	dig := snap.Digest()
	if dig == s.persistDig {
		return nil
	}
	raw, err := cborEnc.Marshal(storeFile{Persistent: snap.AsMap()})
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	s.persistDig = dig
	return nil
}
