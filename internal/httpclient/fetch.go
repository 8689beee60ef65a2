// Package httpclient fetches remote RDF documents for import.
//
// Requests are limited to http and https. Unless AllowPrivate is set, hosts
// that resolve to loopback, link-local or RFC 1918 addresses are refused both
// before the request and again at dial time, so a DNS answer cannot redirect an
// import into the local network.
package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/teranos/ontomap/errors"
)

// Options configures a Fetcher. Zero values take the defaults.
type Options struct {
	Timeout      time.Duration // default 60s
	MaxRedirects int           // default 5
	MaxBytes     int64         // default 64 MiB
	AllowPrivate bool
}

const (
	defaultTimeout      = 60 * time.Second
	defaultMaxRedirects = 5
	defaultMaxBytes     = 64 << 20
)

// Fetcher downloads documents over HTTP with address filtering.
type Fetcher struct {
	client *http.Client
	opts   Options
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}

	f := &Fetcher{opts: opts}
	f.client = &http.Client{
		Timeout: opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.opts.MaxRedirects {
				return errors.Newf("stopped after %d redirects", f.opts.MaxRedirects)
			}
			if err := f.check(req.URL); err != nil {
				return errors.Wrap(err, "redirect blocked")
			}
			return nil
		},
	}

	if !opts.AllowPrivate {
		dialer := &net.Dialer{Timeout: 15 * time.Second, KeepAlive: 30 * time.Second}
		f.client.Transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, _, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, errors.Wrap(err, "invalid address")
				}
				ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to resolve host %q", host)
				}
				for _, ip := range ips {
					if isPrivate(ip) {
						return nil, errors.Newf("private address blocked: %s", ip)
					}
				}
				return dialer.DialContext(ctx, network, addr)
			},
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}

	return f
}

// IsRemote reports whether location is an http(s) URL rather than a path.
func IsRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Validate parses raw and checks it against the fetch policy.
func (f *Fetcher) Validate(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}
	if err := f.check(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (f *Fetcher) check(u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return errors.Newf("scheme %q not allowed", u.Scheme)
	}
	if u.User != nil {
		return errors.New("URL must not carry credentials")
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("URL missing hostname")
	}
	if f.opts.AllowPrivate {
		return nil
	}
	h := strings.ToLower(host)
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return errors.New("localhost access blocked")
	}
	if ip, err := netip.ParseAddr(host); err == nil && isPrivate(ip) {
		return errors.Newf("private address blocked: %s", host)
	}
	return nil
}

// Fetch GETs raw and returns the body. The caller closes it. Bodies over
// MaxBytes fail on read.
func (f *Fetcher) Fetch(ctx context.Context, raw string) (io.ReadCloser, error) {
	u, err := f.Validate(raw)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "text/turtle, application/n-triples;q=0.9, */*;q=0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", u.Redacted())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.Newf("fetch %s: status %d", u.Redacted(), resp.StatusCode)
	}

	return &limitedBody{r: io.LimitReader(resp.Body, f.opts.MaxBytes+1), c: resp.Body, max: f.opts.MaxBytes}, nil
}

type limitedBody struct {
	r    io.Reader
	c    io.Closer
	max  int64
	read int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.read += int64(n)
	if b.read > b.max {
		return n, errors.Newf("response body exceeds %d bytes", b.max)
	}
	return n, err
}

func (b *limitedBody) Close() error { return b.c.Close() }

var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fec0::/10"),
	netip.MustParsePrefix("2001:db8::/32"),
}

func isPrivate(ip netip.Addr) bool {
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, p := range privatePrefixes {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}
