package bindzone

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/google/go-cmp/cmp"

	"github.com/yuriy-kovalchuk/dns-gitops/internal/dns"
)

const exampleZone = `$ORIGIN example.com.
$TTL 300
@       IN SOA ns1.example.com. hostmaster.example.com. 1 7200 3600 1209600 300
@       IN A     1.2.3.4
www 600 IN A     1.2.3.4
www     IN A     5.6.7.8
extdnsa-www IN TXT "heritage=external-dns,external-dns/owner=default"
long    IN TXT   "v=spf1 " "include:example.net ~all"
mail    IN MX    10 mx.example.com.
`

func TestParse(t *testing.T) {
	var logged []string
	log := funcr.New(func(prefix, args string) {
		logged = append(logged, args)
	}, funcr.Options{})

	records, err := Parse(strings.NewReader(exampleZone), "example.com", "example.com.zone", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []dns.Record{
		{Name: "", Type: "A", Values: []string{"1.2.3.4"}, TTL: 300},
		{Name: "www", Type: "A", Values: []string{"1.2.3.4", "5.6.7.8"}, TTL: 600},
		{Name: "extdnsa-www", Type: "TXT", Values: []string{"heritage=external-dns,external-dns/owner=default"}, TTL: 300},
		{Name: "long", Type: "TXT", Values: []string{"v=spf1 include:example.net ~all"}, TTL: 300},
		{Name: "mail", Type: "MX", Values: []string{"10 mx.example.com."}, TTL: 300},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	found := false
	for _, l := range logged {
		if strings.Contains(l, "unsupported SOA record, skipping") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected SOA skip to be logged, got %v", logged)
	}
}

func TestParse_KeepsOwnerCase(t *testing.T) {
	zone := `$ORIGIN Example.COM.
$TTL 300
Www             IN A   1.2.3.4
_ACME-Challenge IN TXT "keepme"
`
	records, err := Parse(strings.NewReader(zone), "example.com.", "example.com.zone", logr.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []dns.Record{
		{Name: "Www", Type: "A", Values: []string{"1.2.3.4"}, TTL: 300},
		{Name: "_ACME-Challenge", Type: "TXT", Values: []string{"keepme"}, TTL: 300},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(strings.NewReader("www IN A not-an-ip\n"), "example.com.", "bad.zone", logr.Discard())
	if err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestPopulate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "example.com.zone"), []byte(exampleZone), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := New("live", logr.Discard(), map[string]string{"directory": dir})
	if err != nil {
		t.Fatal(err)
	}
	zone := dns.NewZone("example.com.")
	if err := p.Populate(context.Background(), zone); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zone.Len() != 5 {
		t.Errorf("expected 5 records, got %d: %v", zone.Len(), zone.Records())
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	if _, err := New("live", logr.Discard(), nil); err == nil {
		t.Fatal("expected error for missing directory, got nil")
	}
}
