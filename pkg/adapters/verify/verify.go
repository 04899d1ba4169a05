// Package verify talks to the outside world on behalf of domain verification:
// DNS for TXT records and HTTPS for the well-known file.
package verify

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

// maxBody bounds how much of a verification file is read.
const maxBody = 4 << 10

// NewResolver returns the system DNS resolver.
func NewResolver() ports.TXTResolver {
	return net.DefaultResolver
}

// HTTPFetcher fetches https://<host>/.well-known/loopy-verification.txt.
type HTTPFetcher struct {
	client *http.Client
	scheme string
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}, scheme: "https"}
}

// NewHTTPFetcherWithClient lets callers swap transport and scheme, mostly for tests.
func NewHTTPFetcherWithClient(client *http.Client, scheme string) *HTTPFetcher {
	return &HTTPFetcher{client: client, scheme: scheme}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, host string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.scheme+"://"+host+domain.WellKnownPath, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("User-Agent", "LoopyLink-Verifier/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(body), nil
}

var _ ports.WellKnownFetcher = (*HTTPFetcher)(nil)
