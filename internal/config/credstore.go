package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/ini.v1"

	"github.com/drivelink/drivelink/internal/models"
)

// CredentialStore persists the access/refresh token pair across process
// restarts. Tokens live under two durable keys in an INI file
// (~/.config/drivelink/credentials, mode 0600) and are opaque: no
// validation happens here. Only the session manager mutates the store.
type CredentialStore struct {
	path string
	mu   sync.Mutex
}

// DefaultCredentialsPath returns the default credentials file location.
func DefaultCredentialsPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credentials"), nil
}

// NewCredentialStore creates a store backed by the given file path.
// An empty path selects the default location. The parent directory is
// created eagerly; failure to do so is a fatal environment error.
func NewCredentialStore(path string) (*CredentialStore, error) {
	if path == "" {
		var err error
		path, err = DefaultCredentialsPath()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}
	return &CredentialStore{path: path}, nil
}

// Set writes each non-empty field of pair to durable storage, leaving
// absent fields untouched.
func (s *CredentialStore) Set(pair models.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.readLocked()
	if pair.AccessToken != "" {
		current.AccessToken = pair.AccessToken
	}
	if pair.RefreshToken != "" {
		current.RefreshToken = pair.RefreshToken
	}
	return s.writeLocked(current)
}

// Get reads both fields. Missing file or keys yield empty strings.
func (s *CredentialStore) Get() models.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// Clear removes both stored tokens.
func (s *CredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) readLocked() models.TokenPair {
	var pair models.TokenPair

	if _, err := os.Stat(s.path); err != nil {
		return pair
	}
	iniFile, err := ini.Load(s.path)
	if err != nil {
		return pair
	}

	auth := iniFile.Section("auth")
	pair.AccessToken = auth.Key("access_token").String()
	pair.RefreshToken = auth.Key("refresh_token").String()
	return pair
}

func (s *CredentialStore) writeLocked(pair models.TokenPair) error {
	iniFile := ini.Empty()

	auth, err := iniFile.NewSection("auth")
	if err != nil {
		return fmt.Errorf("failed to create auth section: %w", err)
	}
	auth.Key("access_token").SetValue(pair.AccessToken)
	auth.Key("refresh_token").SetValue(pair.RefreshToken)

	// Temp file + rename for atomicity; tokens are sensitive, 0600 only.
	tmpPath := s.path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set credentials permissions: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}
