package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StoreBackend selects where the credential pair is persisted.
type StoreBackend string

const (
	// StoreBackendFile keeps a single JSON record on local disk.
	StoreBackendFile StoreBackend = "file"
	// StoreBackendRedis keeps both tokens in Redis, written in one transaction.
	StoreBackendRedis StoreBackend = "redis"
	// StoreBackendPostgres keeps one row per namespace in PostgreSQL.
	StoreBackendPostgres StoreBackend = "postgres"
)

const (
	defaultStoreNamespace = "wifi_voucher"
	credentialsFileName   = "credentials.json"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreBackend.
func (b *StoreBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "file", "redis", "postgres":
		*b = StoreBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid StoreBackend: %q (valid options: file, redis, postgres)", v)
	}
}

// CredentialStoreConfig controls durable credential persistence.
type CredentialStoreConfig struct {
	Backend StoreBackend `env:"CREDENTIAL_STORE_BACKEND" envDefault:"file"`

	// Path is the credentials file for the file backend. Empty selects
	// $XDG_STATE_HOME/wifi-voucher/credentials.json.
	Path string `env:"CREDENTIAL_STORE_PATH"`

	// Namespace prefixes Redis keys and keys the PostgreSQL row.
	Namespace string `env:"CREDENTIAL_STORE_NAMESPACE" envDefault:"wifi_voucher"`
}

// Sanitize fills the default path and namespace.
func (c *CredentialStoreConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = StoreBackendFile
	}
	if c.Namespace = strings.TrimSpace(c.Namespace); c.Namespace == "" {
		c.Namespace = defaultStoreNamespace
	}
	if c.Path = strings.TrimSpace(c.Path); c.Path == "" {
		c.Path = defaultCredentialsPath()
	}
}

func defaultCredentialsPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "wifi-voucher", credentialsFileName)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "wifi-voucher", credentialsFileName)
	}
	return filepath.Join(os.TempDir(), "wifi-voucher", credentialsFileName)
}
