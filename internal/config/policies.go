package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fjmerc/arcana/internal/ratelimit"
)

// policyFile is the on-disk shape of a rate limit policy override file.
type policyFile struct {
	Policies map[string]policyEntry `yaml:"policies"`
}

type policyEntry struct {
	Window      string `yaml:"window"` // Go duration string, e.g. "60s", "15m"
	MaxRequests int    `yaml:"max_requests"`
}

// LoadPolicies returns the rate limit policy set: the built-in defaults,
// overlaid with any overrides from the YAML file at path. An empty path
// returns the defaults unchanged. Overrides may tune existing policies or
// define entirely new ones.
func LoadPolicies(path string) (map[string]ratelimit.Config, error) {
	policies := ratelimit.DefaultPolicies()
	if path == "" {
		return policies, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	for name, entry := range file.Policies {
		if name == "" {
			return nil, fmt.Errorf("policy file contains a policy with an empty name")
		}
		window, err := time.ParseDuration(entry.Window)
		if err != nil {
			return nil, fmt.Errorf("policy %q: invalid window %q: %w", name, entry.Window, err)
		}
		if window <= 0 {
			return nil, fmt.Errorf("policy %q: window must be positive, got %s", name, window)
		}
		if entry.MaxRequests <= 0 {
			return nil, fmt.Errorf("policy %q: max_requests must be positive, got %d", name, entry.MaxRequests)
		}
		policies[name] = ratelimit.Config{
			Name:        name,
			Window:      window,
			MaxRequests: entry.MaxRequests,
		}
	}

	return policies, nil
}
