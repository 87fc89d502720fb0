// Package nsreport queries the authoritative nameservers of a zone for every
// record of the local zone and reports whether they answer consistently.
package nsreport

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/miekg/dns"

	zones "github.com/yuriy-kovalchuk/dns-gitops/internal/dns"
	"github.com/yuriy-kovalchuk/dns-gitops/internal/dns/bindzone"
)

// DefaultTimeout bounds a single query.
const DefaultTimeout = 5 * time.Second

// Answer is what one nameserver returned for a record.
type Answer struct {
	Values []string // sorted rdata, empty when the name or type is absent
	Err    error
}

func (a Answer) String() string {
	if a.Err != nil {
		return "ERROR: " + a.Err.Error()
	}
	if len(a.Values) == 0 {
		return "-"
	}
	return strings.Join(a.Values, ", ")
}

// Row is the result for one local record.
type Row struct {
	Name       string
	Type       string
	TTL        int
	Answers    []Answer // one per server, in Report.Servers order
	Consistent bool
}

// Report holds the per-nameserver answers for every record of a zone.
type Report struct {
	Zone    string
	Servers []string
	Rows    []Row
}

// Inconsistent returns the rows whose nameservers disagree.
func (r *Report) Inconsistent() []Row {
	var out []Row
	for _, row := range r.Rows {
		if !row.Consistent {
			out = append(out, row)
		}
	}
	return out
}

// ApexNameservers returns the values of the zone's apex NS record without
// their trailing dots.
func ApexNameservers(zone *zones.Zone) []string {
	for _, r := range zone.Records() {
		if r.Name != "" || r.Type != zones.TypeNS {
			continue
		}
		servers := make([]string, 0, len(r.Values))
		for _, v := range r.Values {
			servers = append(servers, strings.TrimSuffix(v, "."))
		}
		return servers
	}
	return nil
}

// Querier sends the report queries.
type Querier struct {
	client *dns.Client
	log    logr.Logger
}

// NewQuerier returns a Querier whose queries time out after timeout.
func NewQuerier(log logr.Logger, timeout time.Duration) *Querier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Querier{
		client: &dns.Client{
			Net:     "udp",
			Timeout: timeout,
		},
		log: log,
	}
}

// serverAddr appends the DNS port to a nameserver unless it carries one.
func serverAddr(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.TrimSuffix(server, "."), "53")
}

func (q *Querier) exchange(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error) {
	in, _, err := q.client.ExchangeContext(ctx, m, addr)
	if err != nil {
		return nil, err
	}
	if in.Truncated {
		tcp := *q.client
		tcp.Net = "tcp"
		in, _, err = tcp.ExchangeContext(ctx, m, addr)
	}
	return in, err
}

// Query asks server for the record set name/rtype and returns its sorted rdata.
// A name that does not exist yields no values.
func (q *Querier) Query(ctx context.Context, server, name string, rtype uint16) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), rtype)
	m.RecursionDesired = false

	addr := serverAddr(server)
	in, err := q.exchange(ctx, m, addr)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", addr, err)
	}
	if in.Rcode != dns.RcodeSuccess && in.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("querying %s: %s", addr, dns.RcodeToString[in.Rcode])
	}

	var values []string
	for _, rr := range in.Answer {
		if rr.Header().Rrtype == rtype {
			values = append(values, bindzone.RData(rr))
		}
	}
	sort.Strings(values)
	q.log.V(1).Info("queried nameserver", "server", addr, "name", name, "type", dns.TypeToString[rtype], "answers", len(values))
	return values, nil
}

// Run queries every server for every record of zone.
func (q *Querier) Run(ctx context.Context, zone *zones.Zone, servers []string) (*Report, error) {
	if len(servers) == 0 {
		return nil, fmt.Errorf("zone %s: no nameservers to query", zone.Name)
	}
	report := &Report{Zone: zone.Name, Servers: servers}
	for _, r := range zone.Records() {
		rtype, ok := dns.StringToType[r.Type]
		if !ok {
			q.log.Info("unknown record type, skipping", "zone", zone.Name, "name", r.Name, "type", r.Type)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row := Row{Name: r.Name, Type: r.Type, TTL: r.TTL, Consistent: true}
		fqdn := zones.AbsoluteName(r.Name, zone.Name)
		for _, server := range servers {
			values, err := q.Query(ctx, server, fqdn, rtype)
			row.Answers = append(row.Answers, Answer{Values: values, Err: err})
		}
		for _, a := range row.Answers {
			if a.Err != nil || a.String() != row.Answers[0].String() {
				row.Consistent = false
			}
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}
