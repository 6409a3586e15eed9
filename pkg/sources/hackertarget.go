package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/waftester/vulnscan/pkg/defaults"
)

// HackerTargetSource queries the hackertarget.com hostsearch API, which
// answers with "host,ip" lines.
type HackerTargetSource struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewHackerTargetSource creates a hackertarget source.
func NewHackerTargetSource(opts Options) *HackerTargetSource {
	return &HackerTargetSource{
		httpClient: apiClient(opts),
		baseURL:    "https://api.hackertarget.com",
		userAgent:  userAgent(opts),
	}
}

func (h *HackerTargetSource) Name() string { return defaults.SourceHackerTarget }

func (h *HackerTargetSource) Discover(ctx context.Context, domain string) ([]string, error) {
	u := h.baseURL + "/hostsearch/?q=" + url.QueryEscape(domain)
	body, err := getBody(ctx, h.httpClient, u, h.userAgent)
	if err != nil {
		return nil, fmt.Errorf("hackertarget: %w", err)
	}

	text := strings.TrimSpace(string(body))
	// Errors come back as a 200 with a single plain-text line.
	if strings.HasPrefix(text, "error") || strings.Contains(text, "API count exceeded") {
		return nil, fmt.Errorf("hackertarget: %w: %s", ErrUpstream, text)
	}

	var names []string
	for _, line := range strings.Split(text, "\n") {
		host, _, _ := strings.Cut(line, ",")
		if host = strings.TrimSpace(host); host != "" {
			names = append(names, host)
		}
	}
	return names, nil
}
