package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Config is the sync configuration: named providers and processors, and the
// zones wired to them.
type Config struct {
	Providers  map[string]ProviderConfig  `yaml:"providers"`
	Processors map[string]ProcessorConfig `yaml:"processors,omitempty"`
	Zones      map[string]ZoneConfig      `yaml:"zones"`
}

// Load reads the configuration from the path specified by the
// DNS_GITOPS_CONFIG environment variable, defaulting to "config.yaml".
func Load() (*Config, error) {
	path := os.Getenv("DNS_GITOPS_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from the given file path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	for name, p := range cfg.Providers {
		p.expandEnv()
		cfg.Providers[name] = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every dangling reference and missing field.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Zones) == 0 {
		errs = append(errs, errors.New("no zones configured"))
	}
	for _, name := range sortedKeys(c.Providers) {
		if c.Providers[name].Class == "" {
			errs = append(errs, fmt.Errorf("provider %q: missing required field 'class'", name))
		}
	}
	for _, name := range sortedKeys(c.Processors) {
		if c.Processors[name].Class == "" {
			errs = append(errs, fmt.Errorf("processor %q: missing required field 'class'", name))
		}
	}
	for _, zone := range c.ZoneNames() {
		zc := c.Zones[zone]
		if !strings.HasSuffix(zone, ".") {
			errs = append(errs, fmt.Errorf("zone %q: name must end with '.'", zone))
		}
		if len(zc.Sources) == 0 {
			errs = append(errs, fmt.Errorf("zone %q: no sources", zone))
		}
		for _, p := range append(append([]string(nil), zc.Sources...), zc.Targets...) {
			if _, ok := c.Providers[p]; !ok {
				errs = append(errs, fmt.Errorf("zone %q: unknown provider %q", zone, p))
			}
		}
		for _, p := range zc.Processors {
			if _, ok := c.Processors[p]; !ok {
				errs = append(errs, fmt.Errorf("zone %q: unknown processor %q", zone, p))
			}
		}
	}
	return utilerrors.NewAggregate(errs)
}

// ZoneNames returns the configured zones in sorted order.
func (c *Config) ZoneNames() []string {
	return sortedKeys(c.Zones)
}

// Drift returns a configuration that plans from the live targets back to the
// sources: every zone with targets gets its targets as sources and its
// sources as targets. Zones without targets are dropped. Providers and
// processors are shared with c.
func (c *Config) Drift() *Config {
	out := &Config{
		Providers:  c.Providers,
		Processors: c.Processors,
		Zones:      make(map[string]ZoneConfig),
	}
	for name, zc := range c.Zones {
		if len(zc.Targets) == 0 {
			continue
		}
		out.Zones[name] = ZoneConfig{
			Sources:    append([]string(nil), zc.Targets...),
			Targets:    append([]string(nil), zc.Sources...),
			Processors: append([]string(nil), zc.Processors...),
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
