package dns

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
)

// ErrUnknownProvider is returned by NewProvider for an unregistered class.
var ErrUnknownProvider = errors.New("unknown zone provider class")

// Factory is a constructor function that providers register to create themselves.
type Factory func(id string, log logr.Logger, settings map[string]string) (Provider, error)

var (
	mu        sync.Mutex
	factories = make(map[string]Factory)
)

// Register is called by provider packages in their init() to self-register.
func Register(class string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[class]; exists {
		panic(fmt.Sprintf("dns: provider class %q already registered", class))
	}
	factories[class] = f
}

// Classes returns the registered provider classes in sorted order.
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

// NewProvider looks up the provider class in the registry and creates an
// instance named id.
func NewProvider(class, id string, log logr.Logger, settings map[string]string) (Provider, error) {
	mu.Lock()
	f, ok := factories[class]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownProvider, class, Classes())
	}
	return f(id, log, settings)
}
