package httpclient

import (
	"net"
	"net/http"
	"time"
)

// UserAgent identifies polite fetches to the sources we ingest.
const UserAgent = "Mozilla/5.0 (compatible; events-harvester/1.0)"

// New builds an http.Client tuned for scraping: pooled connections,
// bounded dial/TLS handshakes, and an overall per-request timeout.
func New(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}
