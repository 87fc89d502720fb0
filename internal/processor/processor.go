// Package processor holds the zone processors run by the pipeline between
// populating a zone and planning changes against it. Processors drop records
// that are owned by other systems so that they are never created, updated or
// deleted by a sync.
package processor

import (
	"github.com/yuriy-kovalchuk/dns-gitops/internal/dns"
)

// Processor filters zones before changes are planned. Both hooks mutate the
// zone in place and return the same instance.
type Processor interface {
	Name() string
	// ProcessSourceZone runs on the desired zone assembled from the sources.
	ProcessSourceZone(desired *dns.Zone, sources []dns.Provider) (*dns.Zone, error)
	// ProcessTargetZone runs on the existing zone read from a target.
	ProcessTargetZone(existing *dns.Zone, target dns.Provider) (*dns.Zone, error)
}
