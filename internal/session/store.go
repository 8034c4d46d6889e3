// Package session holds the process-wide authentication state: the current identity,
// the credential pair and the ordered list of listeners that observe identity changes.
//
// A Store is constructed once by the application root and injected into the auth
// service, which is its only writer. Everything else reads it or subscribes to it.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	domainauth "github.com/Alqudimi/wifi-network-manager/internal/domain/auth"
	"github.com/Alqudimi/wifi-network-manager/internal/ports"
)

// Listener observes identity changes. It runs synchronously on the writer's goroutine
// and must not call back into SetIdentity, SetCredential or Clear.
type Listener func(identity *domainauth.Identity, authenticated bool)

// Options groups dependencies for Store.
type Options struct {
	Credentials ports.CredentialStore
	Logger      *slog.Logger
}

// Store implements ports.SessionStore.
type Store struct {
	creds  ports.CredentialStore
	logger *slog.Logger

	// notifyMu serializes identity writes with their notification so every listener
	// observes changes in the order they were made.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	identity  *domainauth.Identity
	cred      *domainauth.Credential
	loaded    bool
	listeners []*Subscription
	nextID    uint64
}

var _ ports.SessionStore = (*Store)(nil)

// New constructs a Store backed by opts.Credentials.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		creds:  opts.Credentials,
		logger: logger.With("component", "session_store"),
	}
}

// Load rebuilds the credential cache from durable storage and reports whether a
// credential pair was found. It is called once at process start.
func (s *Store) Load(ctx context.Context) (bool, error) {
	cred, err := s.creds.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	if cred.IsZero() {
		s.cred = nil
		return false, nil
	}
	s.cred = &cred
	return true, nil
}

// Credential returns the current pair. It never fails: a storage error is logged and
// reported as "no credential".
func (s *Store) Credential(ctx context.Context) (domainauth.Credential, bool) {
	s.mu.RLock()
	loaded, cred := s.loaded, s.cred
	s.mu.RUnlock()

	if !loaded {
		if _, err := s.Load(ctx); err != nil {
			s.logger.WarnContext(ctx, "credential store unavailable", "error", err)
			return domainauth.Credential{}, false
		}
		s.mu.RLock()
		cred = s.cred
		s.mu.RUnlock()
	}

	if cred == nil {
		return domainauth.Credential{}, false
	}
	return *cred, true
}

// SetCredential persists cred as one unit, or clears both tokens when cred is nil.
// A failed save leaves the previous pair in place. A failed clear still drops the
// in-memory pair so the process never keeps acting on a credential it tried to discard.
func (s *Store) SetCredential(ctx context.Context, cred *domainauth.Credential) error {
	if cred == nil {
		err := s.creds.Clear(ctx)
		s.mu.Lock()
		s.cred = nil
		s.loaded = true
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("clear credentials: %w", err)
		}
		return nil
	}

	if err := cred.Validate(); err != nil {
		return err
	}
	if err := s.creds.Save(ctx, *cred); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	cp := *cred
	s.mu.Lock()
	s.cred = &cp
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Identity returns a copy of the current identity, or nil when anonymous.
func (s *Store) Identity() *domainauth.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.Clone()
}

// Snapshot returns the current {identity, authenticated} pair.
func (s *Store) Snapshot() domainauth.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domainauth.NewSnapshot(s.identity)
}

// SetIdentity replaces the identity and notifies every listener in subscription order.
func (s *Store) SetIdentity(identity *domainauth.Identity) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.identity = identity.Clone()
	snap := domainauth.NewSnapshot(s.identity)
	listeners := make([]*Subscription, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, sub := range listeners {
		s.invoke(sub, snap)
	}
}

// Clear drops the credential pair (durably) and the identity. The identity is
// cleared and broadcast even when the durable clear fails.
func (s *Store) Clear(ctx context.Context) error {
	err := s.SetCredential(ctx, nil)
	s.SetIdentity(nil)
	return err
}

// Subscribe registers fn and returns the handle that removes it.
func (s *Store) Subscribe(fn Listener) *Subscription {
	if fn == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub := &Subscription{id: s.nextID, fn: fn, store: s}
	s.listeners = append(s.listeners, sub)
	return sub
}

// Unsubscribe removes sub. Unknown or nil handles are ignored.
func (s *Store) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.listeners {
		if l.id == sub.id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

// Listeners reports how many listeners are subscribed.
func (s *Store) Listeners() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

func (s *Store) invoke(sub *Subscription, snap domainauth.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session listener panicked",
				"subscription", sub.id,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	// Each listener gets its own copy so one cannot mutate what the next one sees.
	sub.fn(snap.Identity.Clone(), snap.Authenticated)
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id    uint64
	fn    Listener
	store *Store
}

// Unsubscribe removes the listener from its store. Calling it more than once is safe.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.store == nil {
		return
	}
	s.store.Unsubscribe(s)
}
