package bindzone

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/miekg/dns"

	zones "github.com/yuriy-kovalchuk/dns-gitops/internal/dns"
)

func init() {
	zones.Register("bind", func(id string, log logr.Logger, settings map[string]string) (zones.Provider, error) {
		return New(id, log, settings)
	})
}

// Provider reads RFC 1035 master files named "<zone>.zone", e.g.
// "example.com.zone" for zone "example.com.".
type Provider struct {
	id        string
	directory string
	log       logr.Logger
}

// New creates a BIND zone file provider.
// Required settings: directory.
func New(id string, log logr.Logger, settings map[string]string) (*Provider, error) {
	directory := settings["directory"]
	if directory == "" {
		return nil, fmt.Errorf("bind: missing required setting 'directory'")
	}
	return &Provider{id: id, directory: directory, log: log}, nil
}

func (p *Provider) ID() string { return p.id }

// Path returns the master file holding the given zone.
func (p *Provider) Path(zoneName string) string {
	return filepath.Join(p.directory, zones.NewZone(zoneName).BaseName()+".zone")
}

// Populate adds the records from the zone's master file. A missing file is an
// empty zone.
func (p *Provider) Populate(ctx context.Context, zone *zones.Zone) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := p.Path(zone.Name)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		p.log.V(1).Info("zone file not found, treating as empty", "zone", zone.Name, "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("bind: opening zone file: %w", err)
	}
	defer f.Close()

	records, err := Parse(f, zone.Name, path, p.log)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := zone.AddRecord(r); err != nil {
			return fmt.Errorf("bind: %s: %w", path, err)
		}
	}
	p.log.V(1).Info("populated zone", "zone", zone.Name, "records", len(records))
	return nil
}

type rrsetKey struct {
	name  string
	rtype uint16
}

// Parse reads a master file for origin and groups its resource records into
// record sets keyed by owner name and type. SOA records are skipped.
func Parse(r io.Reader, origin, file string, log logr.Logger) ([]zones.Record, error) {
	origin = dns.Fqdn(origin)
	zp := dns.NewZoneParser(r, origin, file)

	var order []rrsetKey
	sets := make(map[rrsetKey]*zones.Record)
	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		hdr := rr.Header()
		if hdr.Rrtype == dns.TypeSOA {
			log.Info("unsupported SOA record, skipping", "zone", origin)
			continue
		}
		name, inZone := zones.RelativeName(hdr.Name, origin)
		if !inZone {
			log.Info("record outside of zone, skipping", "zone", origin, "name", hdr.Name)
			continue
		}

		key := rrsetKey{name: name, rtype: hdr.Rrtype}
		set, seen := sets[key]
		if !seen {
			set = &zones.Record{Name: name, Type: dns.TypeToString[hdr.Rrtype], TTL: int(hdr.Ttl)}
			sets[key] = set
			order = append(order, key)
		}
		set.Values = append(set.Values, RData(rr))
	}
	if err := zp.Err(); err != nil {
		return nil, fmt.Errorf("bind: parsing %s: %w", file, err)
	}

	records := make([]zones.Record, 0, len(order))
	for _, key := range order {
		records = append(records, *sets[key])
	}
	return records, nil
}

// RData renders the data part of rr. TXT character strings are joined into
// a single unquoted value.
func RData(rr dns.RR) string {
	if txt, ok := rr.(*dns.TXT); ok {
		return strings.Join(txt.Txt, "")
	}
	return strings.TrimPrefix(rr.String(), rr.Header().String())
}
