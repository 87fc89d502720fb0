package processor

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/dns-gitops/internal/dns"
)

const acmeChallengePrefix = "_acme-challenge"

// IsACMERecord reports whether r is an ACME challenge record, i.e. its name
// starts with "_acme-challenge". The match is case-sensitive.
func IsACMERecord(r dns.Record) bool {
	return strings.HasPrefix(r.Name, acmeChallengePrefix)
}

// ACMEFilter removes ACME challenge records, which certificate automation
// creates and deletes on its own schedule.
type ACMEFilter struct {
	name string
	log  logr.Logger
}

// NewACMEFilter returns an ACMEFilter logging to log.
func NewACMEFilter(name string, log logr.Logger) *ACMEFilter {
	log.V(1).Info("initialized", "processor", name)
	return &ACMEFilter{name: name, log: log}
}

func (f *ACMEFilter) Name() string { return f.name }

func (f *ACMEFilter) ProcessSourceZone(desired *dns.Zone, _ []dns.Provider) (*dns.Zone, error) {
	return f.filter(desired, "source")
}

func (f *ACMEFilter) ProcessTargetZone(existing *dns.Zone, _ dns.Provider) (*dns.Zone, error) {
	return f.filter(existing, "target")
}

func (f *ACMEFilter) filter(zone *dns.Zone, role string) (*dns.Zone, error) {
	if zone == nil {
		return nil, fmt.Errorf("%s: nil %s zone", f.name, role)
	}
	if err := zone.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}

	var remove []dns.Record
	for _, r := range zone.Records() {
		if IsACMERecord(r) {
			remove = append(remove, r)
			f.log.V(1).Info("found ACME challenge record", "zone", zone.Name, "role", role, "name", r.Name, "type", r.Type)
		}
	}
	for _, r := range remove {
		zone.RemoveRecord(r)
	}

	if len(remove) > 0 {
		f.log.Info("removed ACME challenge records", "zone", zone.Name, "role", role, "count", len(remove))
	}
	return zone, nil
}
