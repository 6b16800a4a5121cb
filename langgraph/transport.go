package langgraph

import (
	"net/http"

	"github.com/BaSui01/agentinbox/internal/tlsutil"
)

// headerTransport stamps deployment auth on every request.
type headerTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.apiKey != "" {
		req.Header.Set("X-Api-Key", t.apiKey)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	return t.base.RoundTrip(req)
}

// newTransport builds the shared transport for both the request/response
// client and the streaming client.
func newTransport(apiKey string) http.RoundTripper {
	return &headerTransport{base: tlsutil.SecureTransport(), apiKey: apiKey}
}
