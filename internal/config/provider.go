package config

import (
	"os"
)

// ProviderConfig holds a zone provider's class and its class-specific
// settings.
type ProviderConfig struct {
	Class    string            `yaml:"class"`
	Settings map[string]string `yaml:"settings"`
}

// expandEnv expands ${ENV_VAR} references in setting values.
func (p *ProviderConfig) expandEnv() {
	for k, v := range p.Settings {
		p.Settings[k] = os.ExpandEnv(v)
	}
}

// ProcessorConfig holds a processor's class. All other keys are passed to the
// processor as options.
type ProcessorConfig struct {
	Class   string         `yaml:"class"`
	Options map[string]any `yaml:",inline"`
}

// ZoneConfig lists the providers and processors used to sync one zone.
type ZoneConfig struct {
	Sources    []string `yaml:"sources"`
	Targets    []string `yaml:"targets"`
	Processors []string `yaml:"processors,omitempty"`
}
