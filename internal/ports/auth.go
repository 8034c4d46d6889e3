// Package ports defines the interfaces (hexagonal ports) between the auth and voucher
// services and their collaborators. Implementations live in internal/adapters,
// internal/session and internal/transport; orchestration in internal/service.
package ports

import (
	"context"

	domainauth "github.com/Alqudimi/wifi-network-manager/internal/domain/auth"
	"github.com/Alqudimi/wifi-network-manager/internal/transport"
)

// CredentialStore is the durable home of the credential pair.
// Save and Clear affect both tokens as a single unit: a reader never observes
// an access token from one pair next to a refresh token from another.
type CredentialStore interface {
	// Load returns the stored pair, or a zero Credential when nothing is stored.
	Load(ctx context.Context) (domainauth.Credential, error)
	Save(ctx context.Context, cred domainauth.Credential) error
	Clear(ctx context.Context) error
}

// SessionStore holds the current identity and credential pair and broadcasts
// identity changes. The auth service is its only writer.
type SessionStore interface {
	Credential(ctx context.Context) (domainauth.Credential, bool)
	SetCredential(ctx context.Context, cred *domainauth.Credential) error
	Identity() *domainauth.Identity
	SetIdentity(identity *domainauth.Identity)
	Snapshot() domainauth.Snapshot
	Clear(ctx context.Context) error
}

// Transport sends one JSON request to the backend and decodes the response into out.
type Transport interface {
	Do(ctx context.Context, req transport.Request, out any) error
}

// Caller sends requests under the current authorization context.
type Caller interface {
	// Call uses the stored credential when present and goes anonymous otherwise.
	Call(ctx context.Context, method, path string, in, out any) error
	// Do requires a credential and applies the refresh-on-401 policy.
	Do(ctx context.Context, method, path string, in, out any) error
	Snapshot() domainauth.Snapshot
}
