package cmis

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

// Config holds the parsed connection settings of an endpoint.
type Config struct {
	// ServiceURL is the browser binding service document URL.
	ServiceURL string

	// RepositoryID selects a repository. Empty picks the only one advertised,
	// or the lowest id when several are.
	RepositoryID string

	Username string
	Password string

	// Token is sent as a bearer token and takes precedence over basic auth.
	Token string

	// RequestRate is the proactive request rate per second.
	RequestRate float64

	// Timeout bounds each JSON exchange and the wait for content response headers.
	Timeout time.Duration
}

// ParseConfig derives connection settings from an endpoint.
func ParseConfig(endpoint domain.Endpoint) (*Config, error) {
	u, err := url.Parse(endpoint.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	cfg := &Config{
		ServiceURL:   strings.TrimRight(endpoint.URL, "/"),
		RepositoryID: endpoint.RepositoryID,
		Username:     endpoint.Username,
		Password:     endpoint.Password,
		Token:        endpoint.Token,
		RequestRate:  DefaultRequestRate,
		Timeout:      DefaultTimeout,
	}
	if endpoint.RateLimit > 0 {
		cfg.RequestRate = endpoint.RateLimit
	}
	// Credentials embedded in the URL are accepted when none are configured.
	if u.User != nil && cfg.Username == "" && cfg.Token == "" {
		cfg.Username = u.User.Username()
		cfg.Password, _ = u.User.Password()
		u.User = nil
		cfg.ServiceURL = strings.TrimRight(u.String(), "/")
	}
	return cfg, nil
}
