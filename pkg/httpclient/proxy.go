package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

var supportedProxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true, // DNS resolved on the proxy side
}

// ProxyConfig is a parsed proxy URL.
type ProxyConfig struct {
	URL      *url.URL
	Scheme   string
	Host     string
	Port     string
	Username string
	Password string
}

// IsSOCKS reports whether the proxy speaks SOCKS5.
func (p *ProxyConfig) IsSOCKS() bool {
	return p != nil && (p.Scheme == "socks5" || p.Scheme == "socks5h")
}

// Address returns the proxy address in host:port format.
func (p *ProxyConfig) Address() string {
	if p == nil {
		return ""
	}
	return net.JoinHostPort(p.Host, p.Port)
}

// ParseProxyURL validates and parses a proxy URL string.
// An empty string yields nil, nil. A bare host:port is treated as http.
func ParseProxyURL(proxyURL string) (*ProxyConfig, error) {
	if proxyURL == "" {
		return nil, nil
	}
	if !strings.Contains(proxyURL, "://") {
		proxyURL = "http://" + proxyURL
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !supportedProxySchemes[scheme] {
		return nil, fmt.Errorf("%w: unsupported scheme %q, supported: http, https, socks5, socks5h", ErrInvalidProxy, scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidProxy)
	}
	port := parsed.Port()
	if port == "" {
		switch scheme {
		case "http":
			port = "8080"
		case "https":
			port = "8443"
		default:
			port = "1080"
		}
	}

	pc := &ProxyConfig{URL: parsed, Scheme: scheme, Host: host, Port: port}
	if parsed.User != nil {
		pc.Username = parsed.User.Username()
		pc.Password, _ = parsed.User.Password()
	}
	return pc, nil
}

// ValidateProxyURL reports whether proxyURL would be accepted by New.
func ValidateProxyURL(proxyURL string) error {
	_, err := ParseProxyURL(proxyURL)
	return err
}

func applyProxy(transport *http.Transport, pc *ProxyConfig, timeout time.Duration) {
	if !pc.IsSOCKS() {
		transport.Proxy = http.ProxyURL(&url.URL{Scheme: pc.Scheme, Host: pc.Address(), User: pc.URL.User})
		return
	}
	d, err := socksDialer(pc)
	if err != nil {
		return
	}
	transport.Proxy = nil
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProxyConnect, err)
		}
		return conn, nil
	}
}

func socksDialer(pc *ProxyConfig) (proxy.ContextDialer, error) {
	u := &url.URL{Scheme: "socks5", Host: pc.Address()}
	if pc.Username != "" {
		u.User = url.UserPassword(pc.Username, pc.Password)
	}
	d, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProxyConnect, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("%w: dialer does not support context", ErrProxyConnect)
	}
	return cd, nil
}
