package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	logrtesting "github.com/go-logr/logr/testing"

	"github.com/yuriy-kovalchuk/dns-gitops/internal/config"
	_ "github.com/yuriy-kovalchuk/dns-gitops/internal/dns/providers"
	"github.com/yuriy-kovalchuk/dns-gitops/internal/pipeline"
)

const desiredZone = `'':
  - type: A
    value: 1.2.3.4
  - type: TXT
    values:
      - v=spf1 include:example.net ~all
www:
  type: CNAME
  value: example.com.
api:
  type: A
  value: 5.6.7.8
_acme-challenge.www:
  type: TXT
  value: committed-by-mistake
`

const liveZone = `$ORIGIN example.com.
$TTL 3600
@                      IN SOA ns1.example.net. hostmaster.example.com. 2024010101 7200 3600 1209600 3600
@                      IN NS  ns1.example.net.
@                      IN A   1.2.3.4
@                      IN TXT "v=spf1 include:example.net ~all"
@                      IN TXT "heritage=external-dns,external-dns/owner=prod"
www                    IN CNAME example.com.
api                    IN A   9.9.9.9
legacy                 IN A   10.1.1.1
shop                   IN A   10.0.0.7
extdnsa-shop           IN TXT "heritage=external-dns,external-dns/owner=prod"
extdnscname-blog       IN TXT "heritage=external-dns,external-dns/owner=prod"
preview                IN A   10.0.0.8
extdnsa-preview        IN TXT "heritage=external-dns,external-dns/owner=staging"
_acme-challenge        IN TXT "live-token"
_acme-challenge.api    IN TXT "live-token-2"
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zones", "example.com.yaml"), desiredZone)
	writeFile(t, filepath.Join(dir, "live", "example.com.zone"), liveZone)

	t.Setenv("ZONES_DIR", filepath.Join(dir, "zones"))
	t.Setenv("LIVE_DIR", filepath.Join(dir, "live"))
	writeFile(t, filepath.Join(dir, "config.yaml"), `providers:
  zones:
    class: yaml
    settings:
      directory: ${ZONES_DIR}
  live:
    class: bind
    settings:
      directory: ${LIVE_DIR}
processors:
  acme:
    class: acme-filter
  extdns:
    class: external-dns-filter
    owner_id: prod
zones:
  example.com.:
    sources: [zones]
    targets: [live]
    processors: [acme, extdns]
`)

	cfg, err := config.LoadFromPath(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, err := pipeline.NewManager(logrtesting.NewTestLogger(t), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plans, err := m.PlanAll(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(plans))
	}
	p := plans[0]
	t.Logf("plan:\n%s", p.Format())

	if len(p.Creates) != 0 {
		t.Errorf("expected no creates, got %+v", p.Creates)
	}
	if len(p.Updates) != 1 || p.Updates[0].Name != "api" {
		t.Errorf("expected only 'api' to be updated, got %+v", p.Updates)
	}
	// shop and its marker belong to external-dns (owner prod), blog's marker is
	// dangling, the ACME records belong to cert automation and the root NS is
	// not configured locally. preview belongs to another owner and stays.
	deletes := map[string]bool{}
	for _, c := range p.Deletes {
		deletes[c.Name+"/"+c.Type] = true
	}
	want := map[string]bool{
		"legacy/A":            true,
		"preview/A":           true,
		"extdnsa-preview/TXT": true,
	}
	if len(deletes) != len(want) {
		t.Errorf("expected deletes %v, got %v", want, deletes)
	}
	for k := range want {
		if !deletes[k] {
			t.Errorf("expected delete of %s, got %v", k, deletes)
		}
	}

	drift, err := pipeline.NewManager(logrtesting.NewTestLogger(t), cfg.Drift())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	driftPlans, err := drift.PlanAll(context.Background(), "example.com.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(driftPlans) != 1 || !driftPlans[0].HasChanges() {
		t.Fatalf("expected drift to be detected, got %+v", driftPlans)
	}
	// The live root NS has no local counterpart either.
	if n := len(driftPlans[0].Creates); n != 4 {
		t.Errorf("expected 4 drift creates (NS, legacy, preview, extdnsa-preview), got %d", n)
	}
}

func TestPipeline_YAMLAndBindAgree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zones", "example.com.yaml"), `'':
  type: MX
  values:
    - exchange: mx1.example.com.
      preference: 10
Www:
  type: A
  value: 1.2.3.4
_ACME-Challenge:
  type: TXT
  value: keepme
_sip._tcp:
  type: SRV
  value:
    priority: 10
    weight: 20
    port: 5060
    target: sip.example.com.
`)
	writeFile(t, filepath.Join(dir, "live", "example.com.zone"), `$ORIGIN example.com.
$TTL 3600
@               IN MX  10 mx1.example.com.
Www             IN A   1.2.3.4
_ACME-Challenge IN TXT "keepme"
_sip._tcp       IN SRV 10 20 5060 sip.example.com.
`)
	writeFile(t, filepath.Join(dir, "config.yaml"), `providers:
  zones:
    class: yaml
    settings:
      directory: `+filepath.Join(dir, "zones")+`
  live:
    class: bind
    settings:
      directory: `+filepath.Join(dir, "live")+`
processors:
  acme:
    class: acme-filter
zones:
  example.com.:
    sources: [zones]
    targets: [live]
    processors: [acme]
`)

	cfg, err := config.LoadFromPath(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, err := pipeline.NewManager(logrtesting.NewTestLogger(t), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plans, err := m.PlanAll(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(plans))
	}
	if plans[0].HasChanges() {
		t.Errorf("expected no changes, got:\n%s", plans[0].Format())
	}

	// The ACME prefix is case-sensitive, so the record survives on both sides.
	existing, err := m.Existing(context.Background(), "example.com.", m.Providers["live"])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if existing.Len() != 4 {
		t.Errorf("expected 4 existing records, got %v", existing.Records())
	}
}
