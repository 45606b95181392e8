package token

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kodinohjaus/gateway/pkg/file"
)

// Credential is a bearer token with its absolute expiry.
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the credential exists and has not expired.
func (c Credential) Valid() bool {
	return c.Token != "" && time.Now().Before(c.ExpiresAt)
}

// Store defines methods to manage the persisted bearer credential.
type Store interface {
	// Get returns the current credential, or false when absent or expired.
	// An expired credential is cleared from storage at read time.
	Get() (Credential, bool)
	// Set stores a new token with an expiry ttlSeconds from now.
	Set(token string, ttlSeconds int64) error
	// Clear removes the credential from memory and storage.
	Clear() error
	// IsValid reports whether a usable credential exists.
	IsValid() bool
}

// FileStore persists the credential as a JSON document in a single file.
type FileStore struct {
	path    string
	fileOps file.FileOperations
	logger  zerolog.Logger

	mu      sync.Mutex
	loaded  bool
	current Credential
}

// NewFileStore creates a FileStore backed by the given file path.
func NewFileStore(path string, fileOps file.FileOperations, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:    path,
		fileOps: fileOps,
		logger:  logger,
	}
}

// Get returns the current credential if it is still valid. Expired tokens are
// cleared so they can never be attached to an outgoing request.
func (s *FileStore) Get() (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load stored credential")
		return Credential{}, false
	}

	if s.current.Token == "" {
		return Credential{}, false
	}
	if !s.current.Valid() {
		s.logger.Info().Time("expired_at", s.current.ExpiresAt).Msg("Stored token expired, clearing")
		s.clearLocked()
		return Credential{}, false
	}
	return s.current, true
}

// Set computes the absolute expiry and persists the credential.
func (s *FileStore) Set(tokenValue string, ttlSeconds int64) error {
	if tokenValue == "" {
		return fmt.Errorf("refusing to store empty token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	credential := Credential{
		Token:     tokenValue,
		ExpiresAt: time.Now().Add(time.Duration(ttlSeconds) * time.Second),
	}
	if err := s.fileOps.WriteJsonFile(s.path, credential); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	s.current = credential
	s.loaded = true
	s.logger.Info().Time("expires_at", credential.ExpiresAt).Msg("Credential stored")
	return nil
}

// Clear removes the credential from memory and storage.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

// IsValid reports whether a usable credential exists.
func (s *FileStore) IsValid() bool {
	_, ok := s.Get()
	return ok
}

// loadLocked reads the credential file once; a missing file means no
// credential. Caller holds s.mu.
func (s *FileStore) loadLocked() error {
	if s.loaded {
		return nil
	}

	var credential Credential
	err := s.fileOps.ReadJsonFile(s.path, &credential)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return err
	}

	s.current = credential
	s.loaded = true
	return nil
}

// clearLocked wipes memory state and deletes the credential file. Caller
// holds s.mu.
func (s *FileStore) clearLocked() error {
	s.current = Credential{}
	s.loaded = true
	if err := s.fileOps.RemoveFile(s.path); err != nil {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}
