package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/dns-gitops/internal/dns"
)

// Safety thresholds applied to zones with at least thresholdMinRecords
// existing records.
const (
	thresholdMinRecords = 10
	thresholdPercent    = 30.0
)

// Change is the difference for one (name, type) record set.
type Change struct {
	Name     string
	Type     string
	Existing []dns.Record
	Desired  []dns.Record
}

// Plan holds the changes that would bring a target in line with the
// desired zone.
type Plan struct {
	Zone     string
	Target   string
	Existing int // records in the existing zone after processing
	Creates  []Change
	Updates  []Change
	Deletes  []Change
}

// HasChanges reports whether the plan would change anything.
func (p *Plan) HasChanges() bool {
	return len(p.Creates)+len(p.Updates)+len(p.Deletes) > 0
}

type setKey struct {
	name  string
	rtype string
}

func group(zone *dns.Zone) (map[setKey][]dns.Record, []setKey) {
	sets := make(map[setKey][]dns.Record)
	var keys []setKey
	for _, r := range zone.Records() {
		k := setKey{r.Name, r.Type}
		if _, ok := sets[k]; !ok {
			keys = append(keys, k)
		}
		sets[k] = append(sets[k], r)
	}
	return sets, keys
}

func sameRecords(a, b []dns.Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) || a[i].TTL != b[i].TTL {
			return false
		}
	}
	return true
}

// Diff compares the desired and existing zones record set by record set.
// An existing root NS record set is left alone unless the desired zone
// configures one.
func Diff(desired, existing *dns.Zone, log logr.Logger) *Plan {
	plan := &Plan{Zone: desired.Name, Existing: existing.Len()}
	want, wantKeys := group(desired)
	have, haveKeys := group(existing)

	for _, k := range wantKeys {
		cur, ok := have[k]
		switch {
		case !ok:
			plan.Creates = append(plan.Creates, Change{Name: k.name, Type: k.rtype, Desired: want[k]})
		case !sameRecords(cur, want[k]):
			plan.Updates = append(plan.Updates, Change{Name: k.name, Type: k.rtype, Existing: cur, Desired: want[k]})
		}
	}
	for _, k := range haveKeys {
		if _, ok := want[k]; ok {
			continue
		}
		if k.name == "" && k.rtype == dns.TypeNS {
			log.Info("root NS record supported, but no record is configured", "zone", desired.Name)
			continue
		}
		plan.Deletes = append(plan.Deletes, Change{Name: k.name, Type: k.rtype, Existing: have[k]})
	}
	return plan
}

// Violation describes a plan exceeding a safety threshold.
type Violation struct {
	Zone    string
	Target  string
	Kind    string // "updates" or "deletes"
	Count   int
	Total   int
	Percent float64
}

func (v Violation) String() string {
	return fmt.Sprintf("%s -> %s: %d of %d records (%.0f%%) would be %s",
		v.Zone, v.Target, v.Count, v.Total, v.Percent, strings.TrimSuffix(v.Kind, "s")+"d")
}

// ThresholdViolations returns the plans that update, or else delete, more
// than 30% of the records of a zone holding at least 10 records.
func ThresholdViolations(plans []*Plan) []Violation {
	var out []Violation
	for _, p := range plans {
		if p.Existing < thresholdMinRecords {
			continue
		}
		updatePct := float64(len(p.Updates)) / float64(p.Existing) * 100
		deletePct := float64(len(p.Deletes)) / float64(p.Existing) * 100
		switch {
		case updatePct > thresholdPercent:
			out = append(out, Violation{Zone: p.Zone, Target: p.Target, Kind: "updates", Count: len(p.Updates), Total: p.Existing, Percent: updatePct})
		case deletePct > thresholdPercent:
			out = append(out, Violation{Zone: p.Zone, Target: p.Target, Kind: "deletes", Count: len(p.Deletes), Total: p.Existing, Percent: deletePct})
		}
	}
	return out
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func formatValues(records []dns.Record) string {
	var parts []string
	ttl := 0
	for _, r := range records {
		ttl = r.TTL
		parts = append(parts, r.Values...)
	}
	sort.Strings(parts)
	return fmt.Sprintf("%d [%s]", ttl, strings.Join(parts, ", "))
}

func displayName(name string) string {
	if name == "" {
		return "@"
	}
	return name
}

// Format returns a compact human-readable summary of the plan, or an empty
// string when there is nothing to change.
func (p *Plan) Format() string {
	if !p.HasChanges() {
		return ""
	}
	var counts []string
	if n := len(p.Creates); n > 0 {
		counts = append(counts, plural(n, "create"))
	}
	if n := len(p.Updates); n > 0 {
		counts = append(counts, plural(n, "update"))
	}
	if n := len(p.Deletes); n > 0 {
		counts = append(counts, plural(n, "delete"))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s -> %s (%s)\n", p.Zone, p.Target, strings.Join(counts, ", "))
	for _, c := range p.Creates {
		fmt.Fprintf(&b, "  + %s %s %s\n", displayName(c.Name), c.Type, formatValues(c.Desired))
	}
	for _, c := range p.Updates {
		fmt.Fprintf(&b, "  ~ %s %s %s -> %s\n", displayName(c.Name), c.Type, formatValues(c.Existing), formatValues(c.Desired))
	}
	for _, c := range p.Deletes {
		fmt.Fprintf(&b, "  - %s %s %s\n", displayName(c.Name), c.Type, formatValues(c.Existing))
	}
	return b.String()
}
