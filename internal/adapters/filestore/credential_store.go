// Package filestore keeps the credential pair in a single JSON file on local disk.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	domainauth "github.com/Alqudimi/wifi-network-manager/internal/domain/auth"
	"github.com/Alqudimi/wifi-network-manager/internal/ports"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

var _ ports.CredentialStore = (*CredentialStore)(nil)

type record struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	SavedAt      time.Time `json:"saved_at"`
}

// CredentialStore writes both tokens as one record. A save goes to a temp file in the
// same directory that is renamed over the old one, so a crash leaves either the old
// pair or the new pair on disk.
type CredentialStore struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// New creates a store at path. The directory is created on first save.
func New(path string) (*CredentialStore, error) {
	if path == "" {
		return nil, errors.New("credential file path is required")
	}
	return &CredentialStore{path: filepath.Clean(path), now: time.Now}, nil
}

// Path returns the credential file location.
func (s *CredentialStore) Path() string { return s.path }

func (s *CredentialStore) Load(_ context.Context) (domainauth.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domainauth.Credential{}, nil
	}
	if err != nil {
		return domainauth.Credential{}, fmt.Errorf("read credential file: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return domainauth.Credential{}, fmt.Errorf("decode credential file %s: %w", s.path, err)
	}
	if rec.RefreshToken == "" {
		return domainauth.Credential{}, nil
	}
	return domainauth.Credential{AccessToken: rec.AccessToken, RefreshToken: rec.RefreshToken}, nil
}

func (s *CredentialStore) Save(ctx context.Context, cred domainauth.Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(record{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		SavedAt:      s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode credential file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAtomic(data)
}

func (s *CredentialStore) writeAtomic(data []byte) (err error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp credential file: %w", err)
	}
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp credential file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp credential file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp credential file: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

func (s *CredentialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
