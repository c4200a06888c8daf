package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

// CredentialStore persists the current token set across process restarts.
//
// Load returns (nil, nil) when no token has been saved yet; a corrupt store
// returns an error and is treated by the TokenManager as "no token".
type CredentialStore interface {
	Load() (*oauth2.Token, error)
	Save(token *oauth2.Token) error
}

// FileStore stores the token set as a JSON file on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path, defaulting to
// token_cache.json in the working directory.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = "token_cache.json"
	}
	return &FileStore{path: path}
}

// Load reads the cached token set from disk.
func (s *FileStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("token cache at %s is corrupted: %w", s.path, err)
	}

	return &token, nil
}

// Save atomically replaces the cached token set on disk.
func (s *FileStore) Save(token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}

	return nil
}
