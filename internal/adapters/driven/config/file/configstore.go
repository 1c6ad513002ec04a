package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.EndpointStore = (*ConfigStore)(nil)

// ConfigStore serves endpoints and scheduler settings from a TOML file.
// The parsed file is cached; Load re-reads it.
type ConfigStore struct {
	mu        sync.RWMutex
	filePath  string
	scheduler domain.SchedulerConfig
	endpoints []domain.Endpoint
}

// DefaultPath returns ~/.cmispoll/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".cmispoll", "config.toml"), nil
}

// NewConfigStore loads the configuration at path.
// If path is empty, defaults to ~/.cmispoll/config.toml.
// A missing file yields an empty endpoint list.
func NewConfigStore(path string) (*ConfigStore, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	s := &ConfigStore{
		filePath:  path,
		scheduler: domain.DefaultSchedulerConfig(),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Load re-reads the configuration file. On error the previous
// configuration stays in effect.
func (s *ConfigStore) Load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.scheduler = domain.DefaultSchedulerConfig()
			s.endpoints = nil
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}
	scheduler, err := cfg.SchedulerConfig()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}
	endpoints, err := cfg.EndpointList()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduler = scheduler
	s.endpoints = endpoints
	return nil
}

// SchedulerConfig returns the scheduler settings.
func (s *ConfigStore) SchedulerConfig() domain.SchedulerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheduler
}

// Get retrieves an endpoint by ID.
func (s *ConfigStore) Get(_ context.Context, id string) (*domain.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.endpoints {
		if s.endpoints[i].ID == id {
			ep := s.endpoints[i]
			return &ep, nil
		}
	}
	return nil, fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
}

// List returns all endpoints in file order.
func (s *ConfigStore) List(_ context.Context) ([]domain.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Endpoint, len(s.endpoints))
	copy(result, s.endpoints)
	return result, nil
}
