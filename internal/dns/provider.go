package dns

import "context"

// Provider is the interface that zone providers must implement. A provider
// adds the records it holds for zone.Name to the given zone.
type Provider interface {
	ID() string
	Populate(ctx context.Context, zone *Zone) error
}
