package transport

import (
	"net/http"
	"net/url"
)

// Request describes one call against the backend
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Body is sent as JSON. Form takes precedence and is sent form-encoded.
	Body any
	Form url.Values

	Header http.Header

	// SkipAuth sends no Authorization header. A 401 on such a request is a
	// credentials error and never triggers a refresh.
	SkipAuth bool

	// SkipRefresh propagates a 401 without attempting a refresh
	SkipRefresh bool

	// set on the replay after a refresh so a second 401 propagates
	retried bool
	bearer  string
}

// Blob is a binary response body, as returned by the export endpoints
type Blob struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Retried reports whether r is the replay that followed a refresh
func (r *Request) Retried() bool {
	return r.retried
}

func (r *Request) refreshable() bool {
	return !r.SkipAuth && !r.SkipRefresh && !r.retried
}

// replay clones r with the new token and the retried flag set
func (r *Request) replay(accessToken string) *Request {
	clone := *r
	clone.retried = true
	clone.bearer = accessToken
	if r.Header != nil {
		clone.Header = r.Header.Clone()
	}
	return &clone
}
