package pipeline

import (
	"fmt"
	"strings"
	"testing"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/dns-gitops/internal/dns"
)

func zoneOf(t *testing.T, records ...dns.Record) *dns.Zone {
	t.Helper()
	z := dns.NewZone("example.com.")
	for _, r := range records {
		if err := z.AddRecord(r); err != nil {
			t.Fatal(err)
		}
	}
	return z
}

func TestDiff(t *testing.T) {
	desired := zoneOf(t,
		rec("", dns.TypeA, "1.2.3.4"),
		rec("www", dns.TypeA, "1.2.3.4"),
		rec("ttl", dns.TypeA, "1.2.3.4"),
	)
	existing := zoneOf(t,
		rec("", dns.TypeA, "1.2.3.4"),
		rec("", dns.TypeNS, "ns1.example.net."),
		dns.Record{Name: "ttl", Type: dns.TypeA, Values: []string{"1.2.3.4"}, TTL: 60},
		rec("gone", dns.TypeMX, "10 mail.example.com."),
	)

	p := Diff(desired, existing, logr.Discard())
	if len(p.Creates) != 1 || p.Creates[0].Name != "www" {
		t.Errorf("creates: got %+v", p.Creates)
	}
	if len(p.Updates) != 1 || p.Updates[0].Name != "ttl" {
		t.Errorf("updates: got %+v", p.Updates)
	}
	if len(p.Deletes) != 1 || p.Deletes[0].Name != "gone" {
		t.Errorf("deletes: got %+v", p.Deletes)
	}
	if p.Existing != 4 {
		t.Errorf("expected 4 existing records, got %d", p.Existing)
	}
}

func TestDiff_ConfiguredRootNS(t *testing.T) {
	desired := zoneOf(t, rec("", dns.TypeNS, "ns1.example.org."))
	existing := zoneOf(t, rec("", dns.TypeNS, "ns1.example.net."))

	p := Diff(desired, existing, logr.Discard())
	if len(p.Updates) != 1 {
		t.Errorf("expected root NS update, got %+v", p)
	}
}

func TestPlan_Format(t *testing.T) {
	p := &Plan{
		Zone:    "example.com.",
		Target:  "live",
		Creates: []Change{{Name: "www", Type: "A", Desired: []dns.Record{rec("www", "A", "1.2.3.4")}}},
		Updates: []Change{
			{Name: "", Type: "A", Existing: []dns.Record{rec("", "A", "1.1.1.1")}, Desired: []dns.Record{rec("", "A", "2.2.2.2")}},
			{Name: "api", Type: "A", Existing: []dns.Record{rec("api", "A", "1.1.1.1")}, Desired: []dns.Record{rec("api", "A", "3.3.3.3")}},
		},
	}

	want := "example.com. -> live (1 create, 2 updates)\n" +
		"  + www A 300 [1.2.3.4]\n" +
		"  ~ @ A 300 [1.1.1.1] -> 300 [2.2.2.2]\n" +
		"  ~ api A 300 [1.1.1.1] -> 300 [3.3.3.3]\n"
	if got := p.Format(); got != want {
		t.Errorf("Format mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func changes(n int) []Change {
	out := make([]Change, n)
	for i := range out {
		out[i] = Change{Name: fmt.Sprintf("r%d", i), Type: "A"}
	}
	return out
}

func TestThresholdViolations(t *testing.T) {
	plans := []*Plan{
		{Zone: "small.", Target: "live", Existing: 5, Deletes: changes(5)},
		{Zone: "updates.", Target: "live", Existing: 10, Updates: changes(4), Deletes: changes(4)},
		{Zone: "deletes.", Target: "live", Existing: 10, Updates: changes(3), Deletes: changes(4)},
		{Zone: "fine.", Target: "live", Existing: 10, Updates: changes(3), Deletes: changes(3)},
	}

	got := ThresholdViolations(plans)
	if len(got) != 2 {
		t.Fatalf("expected 2 violations, got %+v", got)
	}
	if got[0].Zone != "updates." || got[0].Kind != "updates" || got[0].Count != 4 {
		t.Errorf("unexpected first violation: %+v", got[0])
	}
	if got[1].Zone != "deletes." || got[1].Kind != "deletes" {
		t.Errorf("unexpected second violation: %+v", got[1])
	}
	if s := got[1].String(); !strings.Contains(s, "4 of 10 records (40%) would be deleted") {
		t.Errorf("unexpected violation string: %q", s)
	}
}
