// ABOUTME: Credential storage capability for OAuth tokens and API keys
// ABOUTME: Defines the Store contract plus file-backed and env-backed implementations
package credstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
)

// Credential keys used by the token manager and clients.
const (
	KeyZohoClientID     = "ZOHO_CLIENT_ID"
	KeyZohoClientSecret = "ZOHO_CLIENT_SECRET"
	KeyZohoRefreshToken = "ZOHO_REFRESH_TOKEN"
	KeyZohoAccessToken  = "ZOHO_ACCESS_TOKEN"
	KeyZohoTokenExpiry  = "ZOHO_TOKEN_EXPIRY"
	KeyApolloAPIKey     = "APOLLO_API_KEY"
)

// Store is the persistence capability the token manager writes through.
// Implementations must not touch keys other than the one being set.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// DefaultPath returns the XDG-compliant path for the credentials file.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "leadsync", "credentials.env")
}

// FileStore persists credentials as KEY=value lines in a text file.
// Set rewrites the matching line in place or appends, leaving unrelated
// keys untouched.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get reads the current value for key from the file.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.readLines()
	if err != nil {
		return "", false
	}

	prefix := key + "="
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix), true
		}
	}
	return "", false
}

// Set replaces the line for key or appends a new one.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.readLines()
	if err != nil {
		return err
	}

	prefix := key + "="
	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(line, prefix) {
			lines[i] = prefix + value
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, prefix+value)
	}

	return s.writeLines(lines)
}

func (s *FileStore) readLines() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	raw := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (s *FileStore) writeLines(lines []string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(s.path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

// EnvStore reads credentials from environment variables. It is read-only;
// refreshed tokens are held in memory only for the process lifetime.
type EnvStore struct {
	mu       sync.RWMutex
	override map[string]string
}

// NewEnvStore creates an environment-backed store.
func NewEnvStore() *EnvStore {
	return &EnvStore{override: make(map[string]string)}
}

// Get returns the in-process override if one was set, else the env value.
func (s *EnvStore) Get(key string) (string, bool) {
	s.mu.RLock()
	if v, ok := s.override[key]; ok {
		s.mu.RUnlock()
		return v, true
	}
	s.mu.RUnlock()

	v := os.Getenv(key)
	return v, v != ""
}

// Set records the value in memory; the environment itself is not modified.
func (s *EnvStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override[key] = value
	return nil
}
