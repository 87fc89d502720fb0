package dns

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// ErrMalformedRecord is returned when a record lacks a field every record
// in a zone must carry.
var ErrMalformedRecord = errors.New("malformed record")

// Record types inspected by the filters. Any other type string is valid.
const (
	TypeA     = "A"
	TypeAAAA  = "AAAA"
	TypeCNAME = "CNAME"
	TypeMX    = "MX"
	TypeNS    = "NS"
	TypeTXT   = "TXT"
)

// Record is a DNS record set relative to its zone.
type Record struct {
	Name   string   // relative to the zone, "" is the apex
	Type   string   // "A", "TXT", ...
	Values []string // ordered values, TXT values are unquoted strings
	TTL    int
}

// recordKey is the identity of a record inside a zone. TTL is not part of it.
type recordKey struct {
	name   string
	rtype  string
	values string
}

func (r Record) key() recordKey {
	return recordKey{name: r.Name, rtype: r.Type, values: fmt.Sprintf("%q", r.Values)}
}

// Equal reports whether two records share the same identity.
func (r Record) Equal(o Record) bool {
	return r.key() == o.key()
}

// Validate checks the structural fields of a record.
func (r Record) Validate() error {
	if r.Type == "" {
		return fmt.Errorf("%w: %q has no type", ErrMalformedRecord, r.Name)
	}
	if len(r.Values) == 0 {
		return fmt.Errorf("%w: %q (%s) has no values", ErrMalformedRecord, r.Name, r.Type)
	}
	return nil
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s %d %v", displayName(r.Name), r.Type, r.TTL, r.Values)
}

func displayName(name string) string {
	if name == "" {
		return "@"
	}
	return name
}

// Zone is a named set of records. It is not safe for concurrent use.
type Zone struct {
	Name    string // fully qualified, e.g. "example.com."
	records map[recordKey]Record
}

// NewZone returns an empty zone. The name is normalized to end with a dot.
func NewZone(name string) *Zone {
	if !strings.HasSuffix(name, ".") {
		name += "."
	}
	return &Zone{Name: name, records: make(map[recordKey]Record)}
}

// BaseName returns the zone name without its trailing dot.
func (z *Zone) BaseName() string {
	return strings.TrimSuffix(z.Name, ".")
}

// AddRecord adds r to the zone, replacing a record with the same identity.
func (z *Zone) AddRecord(r Record) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("zone %s: %w", z.Name, err)
	}
	if z.records == nil {
		z.records = make(map[recordKey]Record)
	}
	r.Values = append([]string(nil), r.Values...)
	z.records[r.key()] = r
	return nil
}

// RemoveRecord removes any record equal to r. Removing an absent record is a no-op.
func (z *Zone) RemoveRecord(r Record) {
	delete(z.records, r.key())
}

// Records returns a snapshot of the zone's records ordered by name, type and values.
func (z *Zone) Records() []Record {
	out := make([]Record, 0, len(z.records))
	for _, r := range z.records {
		r.Values = append([]string(nil), r.Values...)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].key(), out[j].key()
		if a.name != b.name {
			return a.name < b.name
		}
		if a.rtype != b.rtype {
			return a.rtype < b.rtype
		}
		return a.values < b.values
	})
	return out
}

// Len returns the number of records in the zone.
func (z *Zone) Len() int {
	return len(z.records)
}

// Validate reports every malformed record in the zone.
func (z *Zone) Validate() error {
	var errs []error
	if z.BaseName() == "" {
		errs = append(errs, errors.New("zone has no name"))
	}
	for _, r := range z.Records() {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := utilerrors.NewAggregate(errs); err != nil {
		return fmt.Errorf("zone %s: %w", z.Name, err)
	}
	return nil
}
