package target

import (
	"fmt"
	"strings"
	"time"
)

// DefaultVersions are the system versions accepted when none are configured.
var DefaultVersions = []string{"http://localhost:8000", "https://api.gpt-engineer.com"}

// Registry hands out clients for allow-listed system versions.
type Registry struct {
	versions []string
	allowed  map[string]bool
	token    string
	timeout  time.Duration
}

// NewRegistry builds a registry. An empty versions list uses DefaultVersions.
func NewRegistry(versions []string, token string, timeout time.Duration) *Registry {
	if len(versions) == 0 {
		versions = DefaultVersions
	}
	r := &Registry{allowed: make(map[string]bool, len(versions)), token: token, timeout: timeout}
	for _, v := range versions {
		v = normalize(v)
		if v == "" || r.allowed[v] {
			continue
		}
		r.allowed[v] = true
		r.versions = append(r.versions, v)
	}
	return r
}

func normalize(v string) string {
	return strings.TrimRight(strings.TrimSpace(v), "/")
}

// Versions returns the allow-list in configured order.
func (r *Registry) Versions() []string {
	return append([]string(nil), r.versions...)
}

// Allowed reports whether systemVersion is on the allow-list.
func (r *Registry) Allowed(systemVersion string) bool {
	return r.allowed[normalize(systemVersion)]
}

// HasToken reports whether a bearer token for the target is configured.
func (r *Registry) HasToken() bool { return r.token != "" }

// Client returns a client for systemVersion or ErrUnknownVersion.
func (r *Registry) Client(systemVersion string) (*Client, error) {
	v := normalize(systemVersion)
	if !r.allowed[v] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, systemVersion)
	}
	return NewClient(v, r.token, r.timeout), nil
}
