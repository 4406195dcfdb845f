// Package dnsclient is the async resolver abstraction: resolve (hostname,
// family) to a list of addresses, or time out.
package dnsclient

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/pkg/errors"

	"github.com/datawire/dlib/dlog"
)

// Family selects which RR type to query for.
type Family int

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
)

// Client resolves a hostname to addresses of the requested family.
type Client interface {
	Resolve(ctx context.Context, hostname string, family Family) ([]net.IP, error)
}

// realClient resolves over the network using miekg/dns: build a dns.Msg,
// exchange it against a resolver, and unpack the matching RR type. One
// retry is attempted on a bare timeout; NXDOMAIN/NODATA are not retried.
type realClient struct {
	resolver string // "host:port" of the upstream resolver
	timeout  time.Duration
	exchange func(ctx context.Context, c *dns.Client, m *dns.Msg, addr string) (*dns.Msg, time.Duration, error)
}

// New returns a Client that queries the given upstream resolver address
// ("8.8.8.8:53" style) with the given per-query timeout.
func New(resolver string, timeout time.Duration) Client {
	return &realClient{
		resolver: resolver,
		timeout:  timeout,
		exchange: func(ctx context.Context, c *dns.Client, m *dns.Msg, addr string) (*dns.Msg, time.Duration, error) {
			return c.ExchangeContext(ctx, m, addr)
		},
	}
}

func (r *realClient) Resolve(ctx context.Context, hostname string, family Family) ([]net.IP, error) {
	qtype := dns.TypeA
	if family == FamilyIPv6 {
		qtype = dns.TypeAAAA
	}
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(hostname), qtype)
	msg.RecursionDesired = true

	c := &dns.Client{Timeout: r.timeout}
	resp, _, err := r.exchangeWithRetry(ctx, c, msg)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s (%v)", hostname, family)
	}
	if resp == nil || resp.Rcode != dns.RcodeSuccess {
		return nil, nil
	}
	var out []net.IP
	for _, rr := range resp.Answer {
		switch a := rr.(type) {
		case *dns.A:
			out = append(out, a.A)
		case *dns.AAAA:
			out = append(out, a.AAAA)
		}
	}
	return out, nil
}

func (r *realClient) exchangeWithRetry(ctx context.Context, c *dns.Client, m *dns.Msg) (*dns.Msg, time.Duration, error) {
	resp, rtt, err := r.exchange(ctx, c, m, r.resolver)
	if ne, ok := err.(net.Error); ok && ne.Timeout() && ctx.Err() == nil {
		dlog.Debugf(ctx, "dns query for %s timed out, retrying once", m.Question[0].Name)
		resp, rtt, err = r.exchange(ctx, c, m, r.resolver)
	}
	return resp, rtt, err
}
