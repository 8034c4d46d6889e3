package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	domainauth "github.com/Alqudimi/wifi-network-manager/internal/domain/auth"
	"github.com/Alqudimi/wifi-network-manager/internal/ports"
	"github.com/Alqudimi/wifi-network-manager/internal/transport"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.CredentialStore = (*MemoryCredentialStore)(nil)
	_ ports.Transport       = (*StubTransport)(nil)
)

// MemoryCredentialStore keeps the credential pair in memory. The Func hooks
// replace the default behavior for failure injection.
type MemoryCredentialStore struct {
	LoadFunc  func(ctx context.Context) (domainauth.Credential, error)
	SaveFunc  func(ctx context.Context, cred domainauth.Credential) error
	ClearFunc func(ctx context.Context) error

	mu     sync.Mutex
	cred   domainauth.Credential
	saves  int
	clears int
}

// NewMemoryCredentialStore creates a store, optionally pre-seeded with cred.
func NewMemoryCredentialStore(cred ...domainauth.Credential) *MemoryCredentialStore {
	m := &MemoryCredentialStore{}
	if len(cred) > 0 {
		m.cred = cred[0]
	}
	return m
}

func (m *MemoryCredentialStore) Load(ctx context.Context) (domainauth.Credential, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred, nil
}

func (m *MemoryCredentialStore) Save(ctx context.Context, cred domainauth.Credential) error {
	m.mu.Lock()
	m.saves++
	m.mu.Unlock()

	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, cred); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = cred
	return nil
}

func (m *MemoryCredentialStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.clears++
	m.mu.Unlock()

	if m.ClearFunc != nil {
		if err := m.ClearFunc(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = domainauth.Credential{}
	return nil
}

// Stored returns what a fresh process would load.
func (m *MemoryCredentialStore) Stored() domainauth.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred
}

// Saves reports how many times Save was called, including failed calls.
func (m *MemoryCredentialStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Clears reports how many times Clear was called, including failed calls.
func (m *MemoryCredentialStore) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// StubTransport answers requests from DoFunc and records every request it sees.
type StubTransport struct {
	DoFunc func(ctx context.Context, req transport.Request, out any) error

	mu       sync.Mutex
	requests []transport.Request
}

func (s *StubTransport) Do(ctx context.Context, req transport.Request, out any) error {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.DoFunc != nil {
		return s.DoFunc(ctx, req, out)
	}
	return nil
}

// Requests returns a copy of the recorded requests.
func (s *StubTransport) Requests() []transport.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transport.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests hit path.
func (s *StubTransport) Count(path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}
