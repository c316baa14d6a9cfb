package httputil

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"rankwatch/config"
)

type Clients struct {
	Scraping *http.Client // proxied, for target sites
	API      *http.Client // direct, for the model API and S3
}

// NewClients builds the two HTTP clients. With no proxy configured both are
// direct; the scraping client still pins HTTP/1.1 and stops at redirects so
// target sites see consistent behavior either way.
func NewClients(proxyCfg *config.ProxyConfig) *Clients {
	transport := &http.Transport{
		ForceAttemptHTTP2: false,
		TLSNextProto:      make(map[string]func(string, *tls.Conn) http.RoundTripper),
	}

	if proxyCfg != nil && proxyCfg.URL != "" {
		if proxyURL, err := url.Parse(proxyCfg.URL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	scraping := &http.Client{
		Timeout:   15 * time.Second,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Clients{
		Scraping: scraping,
		API:      &http.Client{Timeout: 60 * time.Second},
	}
}
