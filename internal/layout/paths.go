// Package layout resolves where the daemon keeps its files under the data dir.
package layout

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.wprelay.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wprelay")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnvPath returns the optional .env file loaded before environment overrides.
func EnvPath() string {
	return filepath.Join(BaseDir(), ".env")
}

// Layout is rooted at a data directory.
type Layout struct {
	Root string
}

// New returns the layout for dataDir.
func New(dataDir string) Layout {
	return Layout{Root: dataDir}
}

// TenantsDir holds one credential directory per tenant.
func (l Layout) TenantsDir() string {
	return filepath.Join(l.Root, "tenants")
}

// TenantDir is the credential directory of one tenant.
func (l Layout) TenantDir(tenantID string) string {
	return filepath.Join(l.TenantsDir(), tenantID)
}

// StagingDir holds attachments while they are being relayed.
func (l Layout) StagingDir() string {
	return filepath.Join(l.Root, "staging")
}

// RecordDBPath is the relay's own database (profiles and rules).
func (l Layout) RecordDBPath() string {
	return filepath.Join(l.Root, "relay.db")
}

// LogDir returns the log directory.
func (l Layout) LogDir() string {
	return filepath.Join(l.Root, "logs")
}

// LogPath returns the daemon log file path.
func (l Layout) LogPath() string {
	return filepath.Join(l.LogDir(), "relayd.log")
}

// LockPath returns the data dir lock file.
func (l Layout) LockPath() string {
	return filepath.Join(l.Root, "LOCK")
}

// SocketPath is the default control socket when none is configured.
func (l Layout) SocketPath() string {
	return filepath.Join(l.Root, "relayd.sock")
}

// Ensure creates the directory tree with owner-only permissions.
func (l Layout) Ensure() error {
	dirs := []string{
		l.Root,
		l.TenantsDir(),
		l.StagingDir(),
		l.LogDir(),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
