// Package client provides the HTTP plumbing the source clients are built on.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("arachnid/1.0"),
//		client.WithGate(gate),
//	)
//
// # Making Requests
//
// Construct a [URL] and [Request], then execute with [Client.Do]:
//
//	u := client.URL("https", "api.example.com", "/v1/resource")
//	req, err := client.Request(ctx, u, http.MethodGet)
//	err = c.Do(req, http.StatusOK, client.WithDestination(&result))
//
// Bodies that are not JSON are handed to a decoder instead:
//
//	err = c.Get(ctx, u, http.StatusOK, client.WithDecoder(func(r io.Reader) error {
//		return parse(r)
//	}))
//
// # Gating
//
// With [WithGate], every call first asks the gate for admission and, once
// admitted, is reported back to the gate when it ends, including when the
// transport fails or the body does not decode. A rejected call never
// reaches the network.
//
// # Errors
//
// Failures are classified with sentinels for [errors.Is]:
// [ErrRemoteUnavailable] for transport errors, 5xx and 429 responses,
// [ErrMalformedResponse] for bodies that fail to decode, and
// [ErrUnexpectedStatusCode] for any other status mismatch, reported as an
// [UnexpectedStatusError].
package client
