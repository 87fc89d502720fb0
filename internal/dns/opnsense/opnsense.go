package opnsense

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/yuriy-kovalchuk/dns-gitops/internal/dns"
)

func init() {
	dns.Register("opnsense", func(id string, log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(id, log, settings)
	})
}

var searchBackoff = wait.Backoff{
	Duration: 500 * time.Millisecond,
	Factor:   2,
	Steps:    4,
}

// errTransient marks responses worth retrying.
var errTransient = errors.New("transient OPNsense API error")

// Provider reads the Unbound host overrides of an OPNsense firewall as a zone.
type Provider struct {
	id         string
	baseURL    string
	apiKey     string
	apiSecret  string
	defaultTTL int
	client     *http.Client
	backoff    wait.Backoff
	log        logr.Logger
}

// New creates an OPNsense zone provider from the given settings map.
// Required settings: base_url, api_key, api_secret.
// Optional settings: default_ttl (default 300), skip_tls_verify (default false).
func New(id string, log logr.Logger, settings map[string]string) (*Provider, error) {
	baseURL := settings["base_url"]
	if baseURL == "" {
		return nil, fmt.Errorf("opnsense: missing required setting 'base_url'")
	}
	apiKey := settings["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("opnsense: missing required setting 'api_key'")
	}
	apiSecret := settings["api_secret"]
	if apiSecret == "" {
		return nil, fmt.Errorf("opnsense: missing required setting 'api_secret'")
	}

	defaultTTL := 300
	if v := settings["default_ttl"]; v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("opnsense: invalid default_ttl %q: %w", v, err)
		}
		defaultTTL = parsed
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if settings["skip_tls_verify"] == "true" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Provider{
		id:         id,
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		defaultTTL: defaultTTL,
		client:     &http.Client{Transport: transport},
		backoff:    searchBackoff,
		log:        log,
	}, nil
}

func (p *Provider) ID() string { return p.id }

// hostRow represents a single host override row from the search response.
type hostRow struct {
	UUID     string `json:"uuid"`
	Enabled  string `json:"enabled"`
	Hostname string `json:"hostname"`
	Domain   string `json:"domain"`
	RR       string `json:"rr"`
	Server   string `json:"server"`
	MXPrio   string `json:"mxprio"`
	MX       string `json:"mx"`
}

type searchResponse struct {
	Rows []hostRow `json:"rows"`
}

func (p *Provider) get(ctx context.Context, path string) (*http.Response, error) {
	url := strings.TrimRight(p.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("opnsense: build request: %w", err)
	}
	req.SetBasicAuth(p.apiKey, p.apiSecret)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opnsense: GET %s: %w", path, err)
	}
	return resp, nil
}

func (p *Provider) searchOnce(ctx context.Context) ([]hostRow, error) {
	resp, err := p.get(ctx, "unbound/settings/searchHostOverride")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: searchHostOverride returned status %d", errTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("opnsense: searchHostOverride returned status %d: %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("opnsense: decode search response: %w", err)
	}
	return sr.Rows, nil
}

// search lists all host overrides, retrying server errors with backoff.
func (p *Provider) search(ctx context.Context) ([]hostRow, error) {
	var rows []hostRow
	var lastErr error
	err := wait.ExponentialBackoffWithContext(ctx, p.backoff, func(ctx context.Context) (bool, error) {
		r, err := p.searchOnce(ctx)
		if errors.Is(err, errTransient) {
			p.log.V(1).Info("retrying host override search", "error", err.Error())
			lastErr = err
			return false, nil
		}
		if err != nil {
			return false, err
		}
		rows = r
		return true, nil
	})
	if wait.Interrupted(err) && lastErr != nil {
		return nil, fmt.Errorf("opnsense: %w", lastErr)
	}
	return rows, err
}

// rowName returns the absolute owner name of a host override.
func rowName(row hostRow) string {
	if row.Hostname == "" || row.Hostname == "@" {
		return row.Domain
	}
	return row.Hostname + "." + row.Domain
}

func rowValue(row hostRow) string {
	if strings.EqualFold(row.RR, dns.TypeMX) {
		prio := row.MXPrio
		if prio == "" {
			prio = "10"
		}
		mx := row.MX
		if !strings.HasSuffix(mx, ".") {
			mx += "."
		}
		return prio + " " + mx
	}
	return row.Server
}

// Populate adds the enabled host overrides that belong to the zone. Overrides
// of the same name and type become one record.
func (p *Provider) Populate(ctx context.Context, zone *dns.Zone) error {
	rows, err := p.search(ctx)
	if err != nil {
		return err
	}

	type key struct{ name, rtype string }
	grouped := make(map[key][]string)
	var order []key
	for _, row := range rows {
		if row.Enabled != "1" {
			continue
		}
		name, ok := dns.RelativeName(rowName(row), zone.Name)
		if !ok {
			continue
		}
		k := key{name, strings.ToUpper(row.RR)}
		if _, seen := grouped[k]; !seen {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], rowValue(row))
	}

	for _, k := range order {
		r := dns.Record{Name: k.name, Type: k.rtype, Values: grouped[k], TTL: p.defaultTTL}
		if err := zone.AddRecord(r); err != nil {
			return fmt.Errorf("opnsense: %w", err)
		}
	}
	p.log.V(1).Info("loaded host overrides", "zone", zone.Name, "records", len(order))
	return nil
}
