package ports

import "net/http"

// HTTPClient executes ingestion requests.
// Both a plain *http.Client and the OAuth2 client from
// chronicle.NewHTTPClient satisfy it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
