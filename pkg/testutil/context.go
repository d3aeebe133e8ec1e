package testutil

import (
	"net/http"
	"time"
)

// WithPassAuth sets the device bearer header the pass web service expects.
// An empty token leaves the request unauthenticated.
func WithPassAuth(req *http.Request, token string) *http.Request {
	if token != "" {
		req.Header.Set("Authorization", "ApplePass "+token)
	}
	return req
}

// WithIfModifiedSince sets the conditional fetch header in HTTP date format.
func WithIfModifiedSince(req *http.Request, t time.Time) *http.Request {
	req.Header.Set("If-Modified-Since", t.UTC().Format(http.TimeFormat))
	return req
}
