package yamlzone

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/go-logr/logr"
	"go.yaml.in/yaml/v3"

	"github.com/yuriy-kovalchuk/dns-gitops/internal/dns"
)

func init() {
	dns.Register("yaml", func(id string, log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(id, log, settings)
	})
}

// Provider reads zones from octodns-style YAML files, one file per zone
// named after the zone, e.g. "example.com.yaml".
type Provider struct {
	id         string
	directory  string
	defaultTTL int
	log        logr.Logger
}

// New creates a YAML zone provider from the given settings map.
// Required settings: directory.
// Optional settings: default_ttl (default 3600).
func New(id string, log logr.Logger, settings map[string]string) (*Provider, error) {
	directory := settings["directory"]
	if directory == "" {
		return nil, fmt.Errorf("yaml: missing required setting 'directory'")
	}

	defaultTTL := 3600
	if v := settings["default_ttl"]; v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("yaml: invalid default_ttl %q: %w", v, err)
		}
		defaultTTL = parsed
	}

	return &Provider{
		id:         id,
		directory:  directory,
		defaultTTL: defaultTTL,
		log:        log,
	}, nil
}

func (p *Provider) ID() string { return p.id }

// Path returns the file holding the given zone.
func (p *Provider) Path(zoneName string) string {
	return filepath.Join(p.directory, dns.NewZone(zoneName).Name+"yaml")
}

// Populate adds the records from the zone's YAML file. A missing file is an
// empty zone.
func (p *Provider) Populate(ctx context.Context, zone *dns.Zone) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := p.Path(zone.Name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		p.log.V(1).Info("zone file not found, treating as empty", "zone", zone.Name, "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("yaml: reading zone file: %w", err)
	}

	records, err := Unmarshal(data, p.defaultTTL)
	if err != nil {
		return fmt.Errorf("yaml: %s: %w", path, err)
	}
	for _, r := range records {
		if err := zone.AddRecord(r); err != nil {
			return fmt.Errorf("yaml: %s: %w", path, err)
		}
	}
	p.log.V(1).Info("populated zone", "zone", zone.Name, "records", len(records))
	return nil
}

// fileRecord is one record entry of a zone file as read. Values stay nodes
// since structured types such as MX carry mappings.
type fileRecord struct {
	Type   string    `yaml:"type"`
	TTL    int       `yaml:"ttl"`
	Value  yaml.Node `yaml:"value"`
	Values yaml.Node `yaml:"values"`
}

// fileEntry is one record entry of a zone file as written.
type fileEntry struct {
	Type   string `yaml:"type"`
	TTL    int    `yaml:"ttl,omitempty"`
	Value  any    `yaml:"value,omitempty"`
	Values []any  `yaml:"values,omitempty"`
}

// Unmarshal parses a zone file. Each name maps to a single record or a list
// of records; records without a ttl get defaultTTL. MX, SRV, CAA, SSHFP,
// TLSA and NAPTR values may be octodns mappings; TXT values may escape
// semicolons as "\;".
func Unmarshal(data []byte, defaultTTL int) ([]dns.Record, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing zone file: %w", err)
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	var records []dns.Record
	for _, name := range names {
		node := doc[name]
		var entries []fileRecord
		switch node.Kind {
		case yaml.SequenceNode:
			if err := node.Decode(&entries); err != nil {
				return nil, fmt.Errorf("record %q: %w", name, err)
			}
		case yaml.MappingNode:
			var single fileRecord
			if err := node.Decode(&single); err != nil {
				return nil, fmt.Errorf("record %q: %w", name, err)
			}
			entries = append(entries, single)
		default:
			return nil, fmt.Errorf("record %q: expected a mapping or a list", name)
		}

		for _, e := range entries {
			values, err := decodeValues(e.Type, &e.Value, &e.Values)
			if err != nil {
				return nil, fmt.Errorf("record %q: %w", name, err)
			}
			ttl := e.TTL
			if ttl == 0 {
				ttl = defaultTTL
			}
			records = append(records, dns.Record{Name: name, Type: e.Type, Values: values, TTL: ttl})
		}
	}
	return records, nil
}

// Marshal renders a zone in the format read by Unmarshal.
func Marshal(zone *dns.Zone) ([]byte, error) {
	doc := make(map[string][]fileEntry)
	for _, r := range zone.Records() {
		e := fileEntry{Type: r.Type, TTL: r.TTL}
		if len(r.Values) == 1 {
			e.Value = encodeValue(r.Type, r.Values[0])
		} else {
			for _, v := range r.Values {
				e.Values = append(e.Values, encodeValue(r.Type, v))
			}
		}
		doc[r.Name] = append(doc[r.Name], e)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("yaml: marshal zone %s: %w", zone.Name, err)
	}
	return data, nil
}
