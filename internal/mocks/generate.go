// Package mocks provides gomock implementations of the ports used by the session
// store and the auth/voucher services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockCredentialStore(ctrl)
//	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
package mocks

// Generate mock for CredentialStore interface from internal/ports package.
// This creates MockCredentialStore with methods for all CredentialStore interface methods:
// Load, Save, Clear
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_store_mock.go github.com/Alqudimi/wifi-network-manager/internal/ports CredentialStore

// Generate mock for Transport interface from internal/ports package.
// This creates MockTransport with the single Do method.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=transport_mock.go github.com/Alqudimi/wifi-network-manager/internal/ports Transport

// Generate mock for Caller interface from internal/ports package.
// This creates MockCaller with Call, Do and Snapshot.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=caller_mock.go github.com/Alqudimi/wifi-network-manager/internal/ports Caller
