package processor

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"go.yaml.in/yaml/v3"
)

// ErrUnknownProcessor is returned by New for an unregistered class.
var ErrUnknownProcessor = errors.New("unknown processor class")

// Factory creates a processor named name from its class options.
type Factory func(name string, log logr.Logger, options map[string]any) (Processor, error)

var (
	mu        sync.Mutex
	factories = map[string]Factory{
		"acme-filter": func(name string, log logr.Logger, options map[string]any) (Processor, error) {
			if err := decodeOptions(options, &struct{}{}); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return NewACMEFilter(name, log), nil
		},
		"external-dns-filter": func(name string, log logr.Logger, options map[string]any) (Processor, error) {
			var cfg ExternalDNSConfig
			if err := decodeOptions(options, &cfg); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return NewExternalDNSFilter(name, log, cfg), nil
		},
	}
)

// Register makes a processor class available to New.
func Register(class string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[class]; exists {
		panic(fmt.Sprintf("processor: class %q already registered", class))
	}
	factories[class] = f
}

// Classes returns the registered processor classes in sorted order.
func Classes() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New creates the processor class with the given options.
func New(class, name string, log logr.Logger, options map[string]any) (Processor, error) {
	mu.Lock()
	f, ok := factories[class]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownProcessor, class, Classes())
	}
	return f(name, log, options)
}

// decodeOptions decodes free-form options into out, rejecting unknown keys.
func decodeOptions(options map[string]any, out any) error {
	if len(options) == 0 {
		return nil
	}
	data, err := yaml.Marshal(options)
	if err != nil {
		return fmt.Errorf("encoding options: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decoding options: %w", err)
	}
	return nil
}
