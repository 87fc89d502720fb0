package processor

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/yuriy-kovalchuk/dns-gitops/internal/dns"
)

const (
	heritageMarker = "heritage=external-dns"
	ownerMarker    = "external-dns/owner="

	DefaultTXTPrefix = "extdns"
)

// DefaultTypePrefixes are the record type prefixes external-dns puts between
// the TXT prefix and the hostname of an ownership marker.
var DefaultTypePrefixes = []string{"a-", "aaaa-", "cname-", "txt-"}

// ExternalDNSConfig configures how ownership markers are recognized.
type ExternalDNSConfig struct {
	// TXTPrefix starts every marker name. Defaults to "extdns".
	TXTPrefix string `yaml:"txt_prefix"`
	// TypePrefixes are tried in order after TXTPrefix. A prefix maps to the
	// record type it names without the trailing dash, e.g. "cname-" to CNAME.
	TypePrefixes []string `yaml:"type_prefixes"`
	// OwnerID restricts markers to one external-dns owner. Empty matches any owner.
	OwnerID string `yaml:"owner_id"`
}

func (c ExternalDNSConfig) withDefaults() ExternalDNSConfig {
	if c.TXTPrefix == "" {
		c.TXTPrefix = DefaultTXTPrefix
	}
	if c.TypePrefixes == nil {
		c.TypePrefixes = append([]string(nil), DefaultTypePrefixes...)
	}
	return c
}

// Claim is a record set claimed by an ownership marker.
type Claim struct {
	Hostname string // relative to the zone, "" is the apex
	Type     string
}

// typeForPrefix maps a type prefix such as "aaaa-" to its record type.
func typeForPrefix(prefix string) string {
	return strings.ToUpper(strings.TrimSuffix(prefix, "-"))
}

// ParseMarkerName decodes an ownership marker name of the form
// txtPrefix + [typePrefix] + hostname. Without a type prefix the type is A.
// A hostname equal to the zone's base name is the apex.
//
//	"extdnsa-www"         → ("www", A)
//	"extdnscname-api"     → ("api", CNAME)
//	"extdnsexample.com"   → ("", A) in zone "example.com."
//	"extdnsxxx-www"       → ("xxx-www", A)
func ParseMarkerName(txtName, zoneName, txtPrefix string, typePrefixes []string) (string, string, bool) {
	if !strings.HasPrefix(txtName, txtPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(txtName, txtPrefix)

	rtype := dns.TypeA
	for _, p := range typePrefixes {
		if p != "" && strings.HasPrefix(rest, p) {
			rest = strings.TrimPrefix(rest, p)
			rtype = typeForPrefix(p)
			break
		}
	}
	if rest == "" {
		return "", "", false
	}

	if rest == strings.TrimSuffix(zoneName, ".") {
		return "", rtype, true
	}
	return rest, rtype, true
}

// IsOwnershipMarker reports whether r is an external-dns ownership marker
// and, if so, which record set it claims.
func IsOwnershipMarker(r dns.Record, zoneName string, cfg ExternalDNSConfig) (Claim, bool) {
	if r.Type != dns.TypeTXT {
		return Claim{}, false
	}
	cfg = cfg.withDefaults()
	hostname, rtype, ok := ParseMarkerName(r.Name, zoneName, cfg.TXTPrefix, cfg.TypePrefixes)
	if !ok {
		return Claim{}, false
	}
	for _, v := range r.Values {
		if !strings.Contains(v, heritageMarker) {
			continue
		}
		if cfg.OwnerID == "" || strings.Contains(v, ownerMarker+cfg.OwnerID) {
			return Claim{Hostname: hostname, Type: rtype}, true
		}
	}
	return Claim{}, false
}

// ResolveClaims returns the record sets claimed by the ownership markers
// among records, along with the markers themselves.
func ResolveClaims(records []dns.Record, zoneName string, cfg ExternalDNSConfig) (sets.Set[Claim], []dns.Record) {
	claims := sets.New[Claim]()
	var markers []dns.Record
	for _, r := range records {
		if c, ok := IsOwnershipMarker(r, zoneName, cfg); ok {
			claims.Insert(c)
			markers = append(markers, r)
		}
	}
	return claims, markers
}

// ExternalDNSFilter removes records owned by external-dns together with the
// TXT ownership markers that claim them.
type ExternalDNSFilter struct {
	name string
	cfg  ExternalDNSConfig
	log  logr.Logger
}

// NewExternalDNSFilter returns a filter for cfg; unset fields take their defaults.
func NewExternalDNSFilter(name string, log logr.Logger, cfg ExternalDNSConfig) *ExternalDNSFilter {
	cfg = cfg.withDefaults()
	log.V(1).Info("initialized", "processor", name, "txtPrefix", cfg.TXTPrefix, "typePrefixes", cfg.TypePrefixes, "ownerID", cfg.OwnerID)
	return &ExternalDNSFilter{name: name, cfg: cfg, log: log}
}

func (f *ExternalDNSFilter) Name() string { return f.name }

// Config returns the effective configuration.
func (f *ExternalDNSFilter) Config() ExternalDNSConfig { return f.cfg }

func (f *ExternalDNSFilter) ProcessSourceZone(desired *dns.Zone, _ []dns.Provider) (*dns.Zone, error) {
	return f.filter(desired, "source")
}

func (f *ExternalDNSFilter) ProcessTargetZone(existing *dns.Zone, _ dns.Provider) (*dns.Zone, error) {
	return f.filter(existing, "target")
}

func (f *ExternalDNSFilter) filter(zone *dns.Zone, role string) (*dns.Zone, error) {
	if zone == nil {
		return nil, fmt.Errorf("%s: nil %s zone", f.name, role)
	}
	if err := zone.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}

	records := zone.Records()
	claims, markers := ResolveClaims(records, zone.Name, f.cfg)

	var owned []dns.Record
	for _, r := range records {
		if c, ok := IsOwnershipMarker(r, zone.Name, f.cfg); ok {
			f.log.V(1).Info("found external-dns marker", "zone", zone.Name, "role", role, "name", r.Name, "claims", c.Hostname, "type", c.Type)
			continue
		}
		if claims.Has(Claim{Hostname: r.Name, Type: r.Type}) {
			owned = append(owned, r)
			f.log.V(1).Info("found external-dns managed record", "zone", zone.Name, "role", role, "name", r.Name, "type", r.Type)
		}
	}

	for _, r := range markers {
		zone.RemoveRecord(r)
	}
	for _, r := range owned {
		zone.RemoveRecord(r)
	}
	if total := len(markers) + len(owned); total > 0 {
		f.log.Info("removed external-dns records", "zone", zone.Name, "role", role,
			"total", total, "markers", len(markers), "records", len(owned))
	}

	rewritten, err := stripHeritageValues(zone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}
	if rewritten > 0 {
		f.log.Info("filtered heritage values from TXT records", "zone", zone.Name, "role", role, "count", rewritten)
	}
	return zone, nil
}

// stripHeritageValues drops heritage values from TXT records that also hold
// other values. Records holding only heritage values are left in place.
func stripHeritageValues(zone *dns.Zone) (int, error) {
	type rewrite struct {
		old  dns.Record
		kept []string
	}
	var rewrites []rewrite
	for _, r := range zone.Records() {
		if r.Type != dns.TypeTXT {
			continue
		}
		var kept []string
		heritage := false
		for _, v := range r.Values {
			if strings.Contains(v, heritageMarker) {
				heritage = true
				continue
			}
			kept = append(kept, v)
		}
		if heritage && len(kept) > 0 {
			rewrites = append(rewrites, rewrite{old: r, kept: kept})
		}
	}

	for _, rw := range rewrites {
		zone.RemoveRecord(rw.old)
		updated := dns.Record{Name: rw.old.Name, Type: dns.TypeTXT, Values: rw.kept, TTL: rw.old.TTL}
		if err := zone.AddRecord(updated); err != nil {
			return 0, err
		}
	}
	return len(rewrites), nil
}
