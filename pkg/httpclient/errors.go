package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for HTTP client failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidProxy indicates a proxy URL that cannot be used.
	ErrInvalidProxy = errors.New("httpclient: invalid proxy URL")

	// ErrProxyConnect indicates the client failed to connect through
	// the configured proxy.
	ErrProxyConnect = errors.New("httpclient: proxy connection failed")

	// ErrDNS indicates a DNS resolution failure for the target host.
	ErrDNS = errors.New("httpclient: DNS resolution failed")

	// ErrTLS indicates a TLS handshake or certificate verification failure.
	ErrTLS = errors.New("httpclient: TLS handshake failed")

	// ErrTooManyRedirects indicates the redirect chain exceeded
	// Config.MaxRedirects.
	ErrTooManyRedirects = errors.New("httpclient: too many redirects")
)

// Classify wraps a transport error with the matching sentinel so callers
// can log a stable reason. Unrecognized errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrProxyConnect) || errors.Is(err, ErrDNS) || errors.Is(err, ErrTLS) {
		return err
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", ErrDNS, err)
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) ||
		errors.As(err, &hostnameErr) || errors.As(err, &recordErr) {
		return fmt.Errorf("%w: %v", ErrTLS, err)
	}
	return err
}
