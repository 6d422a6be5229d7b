// Package model defines shared types for the auth bridge.
package model

import "net/http"

// AuthRequest is the fetch-style request handed to the external auth handler.
//
// URL is absolute: the incoming path and query are resolved against the
// listener's own host. Header is single-valued per name; when a header
// arrives with multiple values, the first one wins. Body is nil for GET and
// HEAD requests, which must not carry one.
type AuthRequest struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// AuthResponse is the fetch-style response produced by the auth handler.
//
// Header is an ordered multi-value map so that repeated Set-Cookie lines
// survive the trip back to the native response intact. Collapsing them into
// a single comma-joined value would break browser cookie parsing.
type AuthResponse struct {
	StatusCode int
	Header     http.Header
	Body       string
}

// SetCookies returns every Set-Cookie value in the response, in order.
func (r *AuthResponse) SetCookies() []string {
	if r.Header == nil {
		return nil
	}
	return r.Header.Values("Set-Cookie")
}
