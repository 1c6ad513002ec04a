package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

// Config is the on-disk configuration file layout.
type Config struct {
	Scheduler SchedulerSection  `toml:"scheduler"`
	Endpoints []EndpointSection `toml:"endpoint"`
}

// SchedulerSection configures background polling.
type SchedulerSection struct {
	// Enabled defaults to true when the section is absent.
	Enabled      *bool  `toml:"enabled"`
	Tick         string `toml:"tick"`
	HistoryLimit int    `toml:"history_limit"`
}

// EndpointSection is one [[endpoint]] table.
type EndpointSection struct {
	ID           string   `toml:"id"`
	URL          string   `toml:"url"`
	RepositoryID string   `toml:"repository_id"`
	Username     string   `toml:"username"`
	Password     string   `toml:"password"`
	Token        string   `toml:"token"`
	FolderPath   string   `toml:"folder_path"`
	Query        string   `toml:"query"`
	ReadContent  bool     `toml:"read_content"`
	ReadSize     int      `toml:"read_size"`
	PageSize     int      `toml:"page_size"`
	Interval     string   `toml:"interval"`
	Include      []string `toml:"include"`
	Sink         string   `toml:"sink"`
	Format       string   `toml:"format"`
	RateLimit    float64  `toml:"rate_limit"`
}

// Parse decodes a configuration document. Unknown keys are rejected so
// that misspelt options do not silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.TrimSpace(strict.String()))
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return &cfg, nil
}

// SchedulerConfig converts the scheduler section, filling defaults.
func (c *Config) SchedulerConfig() (domain.SchedulerConfig, error) {
	sc := domain.DefaultSchedulerConfig()
	if c.Scheduler.Enabled != nil {
		sc.Enabled = *c.Scheduler.Enabled
	}
	if c.Scheduler.Tick != "" {
		tick, err := time.ParseDuration(c.Scheduler.Tick)
		if err != nil || tick <= 0 {
			return sc, fmt.Errorf("%w: scheduler tick %q", domain.ErrInvalidInput, c.Scheduler.Tick)
		}
		sc.TickInterval = tick
	}
	if c.Scheduler.HistoryLimit > 0 {
		sc.HistoryLimit = c.Scheduler.HistoryLimit
	}
	return sc, nil
}

// EndpointList converts and validates every endpoint section.
// Endpoint IDs must be unique.
func (c *Config) EndpointList() ([]domain.Endpoint, error) {
	endpoints := make([]domain.Endpoint, 0, len(c.Endpoints))
	seen := make(map[string]bool, len(c.Endpoints))

	for i := range c.Endpoints {
		ep, err := c.Endpoints[i].toDomain()
		if err != nil {
			return nil, err
		}
		if seen[ep.ID] {
			return nil, fmt.Errorf("%w: duplicate endpoint id %q", domain.ErrInvalidInput, ep.ID)
		}
		seen[ep.ID] = true
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// toDomain converts the section. Credentials may reference environment
// variables as $NAME or ${NAME}.
func (s *EndpointSection) toDomain() (domain.Endpoint, error) {
	ep := domain.Endpoint{
		ID:           s.ID,
		URL:          s.URL,
		RepositoryID: s.RepositoryID,
		Username:     os.ExpandEnv(s.Username),
		Password:     os.ExpandEnv(s.Password),
		Token:        os.ExpandEnv(s.Token),
		FolderPath:   s.FolderPath,
		Query:        s.Query,
		ReadContent:  s.ReadContent,
		ReadSize:     s.ReadSize,
		PageSize:     s.PageSize,
		Include:      s.Include,
		Sink:         s.Sink,
		Format:       s.Format,
		RateLimit:    s.RateLimit,
	}

	if s.Interval != "" {
		interval, err := time.ParseDuration(s.Interval)
		if err != nil || interval <= 0 {
			return ep, fmt.Errorf("%w: endpoint %s: interval %q", domain.ErrInvalidInput, s.ID, s.Interval)
		}
		ep.Interval = interval
	}
	if s.RateLimit < 0 {
		return ep, fmt.Errorf("%w: endpoint %s: rate_limit must not be negative", domain.ErrInvalidInput, s.ID)
	}

	if err := ep.Validate(); err != nil {
		return ep, err
	}
	return ep, nil
}
