// Package access provides the authentication and region gates consulted before
// listing channels or guides.
package access

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// DefaultRegionHeader carries the client's ISO country code when the service
// runs behind a CDN.
const DefaultRegionHeader = "CF-IPCountry"

// Gate decides whether a request may proceed.
type Gate interface {
	Allow(r *http.Request) bool
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(r *http.Request) bool

// Allow calls f(r).
func (f GateFunc) Allow(r *http.Request) bool {
	return f(r)
}

// AllowAll admits every request.
var AllowAll Gate = GateFunc(func(*http.Request) bool { return true })

// TokenGate admits requests presenting the configured token either as a bearer
// token or as the "token" query parameter. An empty token admits everything.
type TokenGate struct {
	Token string
}

// Allow implements Gate.
func (g TokenGate) Allow(r *http.Request) bool {
	if g.Token == "" {
		return true
	}

	presented := r.URL.Query().Get("token")
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		presented = strings.TrimPrefix(auth, "Bearer ")
	}

	return subtle.ConstantTimeCompare([]byte(presented), []byte(g.Token)) == 1
}

// RegionGate admits requests whose region header is in the allow-list. An empty
// allow-list admits everything; a missing header is denied otherwise.
type RegionGate struct {
	Header  string
	Allowed []string
}

// Allow implements Gate.
func (g RegionGate) Allow(r *http.Request) bool {
	if len(g.Allowed) == 0 {
		return true
	}

	header := g.Header
	if header == "" {
		header = DefaultRegionHeader
	}

	region := strings.TrimSpace(r.Header.Get(header))
	for _, allowed := range g.Allowed {
		if region != "" && strings.EqualFold(region, allowed) {
			return true
		}
	}
	return false
}
