package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/waftester/vulnscan/pkg/defaults"
	"github.com/waftester/vulnscan/pkg/duration"
	"github.com/waftester/vulnscan/pkg/httpclient"
	"github.com/waftester/vulnscan/pkg/iohelper"
	"github.com/waftester/vulnscan/pkg/jsonutil"
)

// CrtshSource queries crt.sh certificate transparency logs.
type CrtshSource struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewCrtshSource creates a crt.sh source.
func NewCrtshSource(opts Options) *CrtshSource {
	return &CrtshSource{
		httpClient: apiClient(opts),
		baseURL:    "https://crt.sh",
		userAgent:  userAgent(opts),
	}
}

func (c *CrtshSource) Name() string { return defaults.SourceCrtsh }

type crtshEntry struct {
	NameValue string `json:"name_value"`
}

// Discover returns every name on every certificate logged for *.domain.
// A certificate may carry several names separated by newlines.
func (c *CrtshSource) Discover(ctx context.Context, domain string) ([]string, error) {
	u := c.baseURL + "/?q=" + url.QueryEscape("%."+domain) + "&output=json"
	body, err := getBody(ctx, c.httpClient, u, c.userAgent)
	if err != nil {
		return nil, fmt.Errorf("crt.sh: %w", err)
	}

	var entries []crtshEntry
	if err := jsonutil.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("crt.sh: %w: %v", ErrUpstream, err)
	}

	var names []string
	for _, e := range entries {
		for _, n := range strings.Split(e.NameValue, "\n") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	return names, nil
}

func apiClient(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = duration.HTTPAPI
	}
	cfg := httpclient.WithProxy(opts.Proxy)
	cfg.Timeout = timeout
	return httpclient.New(cfg)
}

func userAgent(opts Options) string {
	if opts.UserAgent != "" {
		return opts.UserAgent
	}
	return defaults.UserAgent("discovery")
}

func getBody(ctx context.Context, c *http.Client, u, ua string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", ua)

	resp, err := c.Do(req)
	if err != nil {
		return nil, httpclient.Classify(err)
	}
	defer iohelper.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return iohelper.ReadBody(resp.Body, iohelper.APIMaxBodySize)
}
