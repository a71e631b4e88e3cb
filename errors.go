package arachnid

import (
	"github.com/adamwoolhether/arachnid/client"
	"github.com/adamwoolhether/arachnid/client/throttle"
	"github.com/adamwoolhether/arachnid/tld"
	"github.com/adamwoolhether/arachnid/wiki"
)

// Errors returned by the toolkit's components, for use with errors.Is.
var (
	// ErrRateLimitExceeded is returned by a Fail mode gate over its ceiling.
	ErrRateLimitExceeded = throttle.ErrRateLimitExceeded
	// ErrRemoteUnavailable marks transport failures, 5xx and 429 responses.
	ErrRemoteUnavailable = client.ErrRemoteUnavailable
	// ErrMalformedResponse marks a response that does not have the expected shape.
	ErrMalformedResponse = client.ErrMalformedResponse
	// ErrRefreshFailed marks a TLD refresh that installed nothing.
	ErrRefreshFailed = tld.ErrRefreshFailed

	ErrUnexpectedStatusCode = client.ErrUnexpectedStatusCode
	ErrAuthFailure          = client.ErrAuthFailure
	ErrPageMissing          = wiki.ErrPageMissing
)
